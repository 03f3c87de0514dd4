package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sanchey92/order-service/internal/http/handlers"
	"github.com/sanchey92/order-service/internal/http/lib/api/response"
	"github.com/sanchey92/order-service/internal/http/middlewares"
)

type OrderService interface {
	handlers.OrderPlacer
	handlers.OrderGetter
}

func New(log *slog.Logger, orders OrderService, catalog handlers.CatalogService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.Recovery(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handlers.Create(log, orders))
		r.Get("/{id}", handlers.Get(log, orders))
	})
	r.Post("/customers", handlers.CreateCustomer(log, catalog))
	r.Post("/products", handlers.CreateProduct(log, catalog))

	return r
}
