package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sanchey92/order-service/internal/domain/model"
	"github.com/sanchey92/order-service/internal/http/lib/api/decode"
	"github.com/sanchey92/order-service/internal/http/lib/api/response"
)

type OrderPlacer interface {
	Place(ctx context.Context, cmd *model.PlaceOrderCommand) (*model.Order, error)
}

type createRequest struct {
	CustomerID string                   `json:"customer_id"`
	Products   []model.RequestedProduct `json:"products"`
}

func (r *createRequest) Validate() error {
	if r.CustomerID == "" {
		return errors.New("customer_id is required")
	}
	if len(r.Products) == 0 {
		return errors.New("products must not be empty")
	}
	for _, p := range r.Products {
		if p.ID == "" {
			return errors.New("product id is required")
		}
		if p.Quantity <= 0 {
			return errors.New("product quantity must be greater than zero")
		}
	}
	return nil
}

func Create(log *slog.Logger, service OrderPlacer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest

		if err := decode.JSON(w, r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		order, err := service.Place(r.Context(), &model.PlaceOrderCommand{
			CustomerID: req.CustomerID,
			Products:   req.Products,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		response.Created(w, newOrderResponse(order))
	}
}
