package order

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sanchey92/order-service/internal/domain/model"
)

// Get returns the order with its line items and customer loaded.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	order, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewError(model.KindOrderNotFound, fmt.Sprintf("could not find order: %s", id))
		}
		return nil, fmt.Errorf("service.Get: %w", err)
	}
	return order, nil
}
