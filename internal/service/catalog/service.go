// Package catalog holds the write side of the customer and product records
// the order workflow reads. It exists so a standalone deployment can be
// seeded; lookups used during placement go straight to storage.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/sanchey92/order-service/internal/domain/model"
)

type Saver interface {
	CreateCustomer(ctx context.Context, c *model.NewCustomer) (*model.Customer, error)
	CreateProduct(ctx context.Context, p *model.NewProduct) (*model.Product, error)
}

type Service struct {
	logger *slog.Logger
	saver  Saver
}

func NewCatalogService(l *slog.Logger, saver Saver) *Service {
	return &Service{
		logger: l,
		saver:  saver,
	}
}

func (s *Service) CreateCustomer(ctx context.Context, c *model.NewCustomer) (*model.Customer, error) {
	if c.Name == "" {
		return nil, model.NewError(model.KindInvalidInput, "name is required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return nil, model.NewError(model.KindInvalidInput, "email is invalid")
	}

	customer, err := s.saver.CreateCustomer(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("service.CreateCustomer: %w", err)
	}

	s.logger.InfoContext(ctx, "customer created", slog.String("id", customer.ID))
	return customer, nil
}

func (s *Service) CreateProduct(ctx context.Context, p *model.NewProduct) (*model.Product, error) {
	if p.Name == "" {
		return nil, model.NewError(model.KindInvalidInput, "name is required")
	}
	if p.Price.IsNegative() {
		return nil, model.NewError(model.KindInvalidInput, "price must not be negative")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return nil, model.NewError(model.KindInvalidInput, "price must have at most two decimal places")
	}
	if p.Quantity < 0 {
		return nil, model.NewError(model.KindInvalidInput, "quantity must not be negative")
	}

	product, err := s.saver.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("service.CreateProduct: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("id", product.ID),
		slog.String("price", product.Price.String()),
		slog.Int("quantity", product.Quantity))
	return product, nil
}
