package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sanchey92/order-service/internal/domain/model"
	"github.com/sanchey92/order-service/internal/http/lib/api/response"
)

type OrderGetter interface {
	Get(ctx context.Context, id string) (*model.Order, error)
}

type lineItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customer_id"`
	Customer   *model.Customer    `json:"customer,omitempty"`
	Total      decimal.Decimal    `json:"total"`
	Products   []lineItemResponse `json:"products"`
	CreatedAt  time.Time          `json:"created_at"`
}

func Get(log *slog.Logger, service OrderGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			response.BadRequest(w, "order id is required")
			return
		}

		order, err := service.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		response.OK(w, newOrderResponse(order))
	}
}

func newOrderResponse(o *model.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Customer:   o.Customer,
		Total:      o.Total,
		Products:   items,
		CreatedAt:  o.CreatedAt,
	}
}
