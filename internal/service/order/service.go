package order

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sanchey92/order-service/internal/domain/model"
)

type CustomerProvider interface {
	FindCustomer(ctx context.Context, id string) (*model.Customer, error)
}

type ProductProvider interface {
	FindProducts(ctx context.Context, ids []string) ([]*model.Product, error)
	UpdateQuantities(ctx context.Context, updates []model.StockUpdate) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, draft *model.OrderDraft) (*model.Order, error)
	FindOrder(ctx context.Context, id string) (*model.Order, error)
}

type Service struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	customers CustomerProvider
	products  ProductProvider
	orders    OrderStore
}

func NewOrderService(l *slog.Logger, customers CustomerProvider, products ProductProvider, orders OrderStore) *Service {
	return &Service{
		logger:    l,
		tracer:    otel.Tracer("github.com/sanchey92/order-service/internal/service/order"),
		customers: customers,
		products:  products,
		orders:    orders,
	}
}
