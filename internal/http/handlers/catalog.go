package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sanchey92/order-service/internal/domain/model"
	"github.com/sanchey92/order-service/internal/http/lib/api/decode"
	"github.com/sanchey92/order-service/internal/http/lib/api/response"
)

type CatalogService interface {
	CreateCustomer(ctx context.Context, c *model.NewCustomer) (*model.Customer, error)
	CreateProduct(ctx context.Context, p *model.NewProduct) (*model.Product, error)
}

func CreateCustomer(log *slog.Logger, service CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.NewCustomer

		if err := decode.JSON(w, r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		customer, err := service.CreateCustomer(r.Context(), &req)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		response.Created(w, customer)
	}
}

func CreateProduct(log *slog.Logger, service CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.NewProduct

		if err := decode.JSON(w, r, &req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		product, err := service.CreateProduct(r.Context(), &req)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		response.Created(w, product)
	}
}
