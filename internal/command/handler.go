// Package command accepts order placement commands from the message bus and
// runs them through the same workflow as the HTTP API.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sanchey92/order-service/internal/domain/model"
)

type OrderPlacer interface {
	Place(ctx context.Context, cmd *model.PlaceOrderCommand) (*model.Order, error)
}

type Handler struct {
	logger *slog.Logger
	placer OrderPlacer
}

func NewHandler(l *slog.Logger, placer OrderPlacer) *Handler {
	return &Handler{logger: l, placer: placer}
}

// Handle decodes one PlaceOrderCommand and places it. Any returned error means
// the command was not applied and should be dead-lettered by the caller.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var cmd model.PlaceOrderCommand

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return model.NewError(model.KindInvalidInput, fmt.Sprintf("invalid command payload: %v", err))
	}

	order, err := h.placer.Place(ctx, &cmd)
	if err != nil {
		if kind, ok := model.KindOf(err); ok {
			h.logger.WarnContext(ctx, "order command rejected",
				slog.String("customer_id", cmd.CustomerID),
				slog.String("kind", string(kind)),
				slog.String("reason", err.Error()))
		}
		return fmt.Errorf("command.Handle: %w", err)
	}

	h.logger.DebugContext(ctx, "order command applied", slog.String("order_id", order.ID))
	return nil
}
