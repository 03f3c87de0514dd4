package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sanchey92/order-service/internal/domain/model"
)

// Place validates the command against the current customer and catalog state,
// persists the order and then writes back the decremented stock.
//
// Validation finishes before the first write. Stock is written as absolute
// values computed from the snapshot read here, with no re-check, so two
// concurrent placements for one product can both pass and one decrement is
// lost.
func (s *Service) Place(ctx context.Context, cmd *model.PlaceOrderCommand) (*model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Place")
	defer span.End()

	order, err := s.place(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.InfoContext(ctx, "order placed",
		slog.String("id", order.ID),
		slog.String("customer_id", order.CustomerID),
		slog.Int("items", len(order.Items)),
		slog.String("total", order.Total.String()))
	return order, nil
}

func (s *Service) place(ctx context.Context, cmd *model.PlaceOrderCommand) (*model.Order, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	customer, err := s.customers.FindCustomer(ctx, cmd.CustomerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewError(model.KindCustomerNotFound, "could not find any customer with this id")
		}
		return nil, fmt.Errorf("service.Place: find customer: %w", err)
	}

	requested, ids := sumRequested(cmd.Products)

	found, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service.Place: find products: %w", err)
	}
	if len(found) == 0 {
		return nil, model.NewError(model.KindNoProductsFound, "could not find products with these ids")
	}

	catalog := make(map[string]*model.Product, len(found))
	for _, p := range found {
		catalog[p.ID] = p
	}

	for _, rp := range cmd.Products {
		if _, ok := catalog[rp.ID]; !ok {
			return nil, model.NewError(model.KindProductNotFound, fmt.Sprintf("could not find product: %s", rp.ID))
		}
	}

	for _, id := range ids {
		if requested[id] > catalog[id].Quantity {
			return nil, model.NewError(model.KindInsufficientStock,
				fmt.Sprintf("the quantity is not available for product: %s", id))
		}
	}

	items := make([]model.LineItem, 0, len(cmd.Products))
	for _, rp := range cmd.Products {
		items = append(items, model.LineItem{
			ProductID: rp.ID,
			Quantity:  rp.Quantity,
			Price:     catalog[rp.ID].Price,
		})
	}

	order, err := s.orders.CreateOrder(ctx, &model.OrderDraft{Customer: customer, Items: items})
	if err != nil {
		return nil, fmt.Errorf("service.Place: create order: %w", err)
	}

	updates := make([]model.StockUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, model.StockUpdate{
			ProductID: id,
			Quantity:  catalog[id].Quantity - requested[id],
		})
	}

	if err = s.products.UpdateQuantities(ctx, updates); err != nil {
		// The order row is already committed at this point.
		s.logger.ErrorContext(ctx, "stock update failed after order was stored",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
		return nil, fmt.Errorf("service.Place: update quantities: %w", err)
	}

	return order, nil
}

func validateCommand(cmd *model.PlaceOrderCommand) error {
	if cmd == nil || cmd.CustomerID == "" {
		return model.NewError(model.KindInvalidInput, "customer_id is required")
	}
	for _, rp := range cmd.Products {
		if rp.ID == "" {
			return model.NewError(model.KindInvalidInput, "product id is required")
		}
		if rp.Quantity <= 0 {
			return model.NewError(model.KindInvalidInput,
				fmt.Sprintf("quantity for product %s must be greater than zero", rp.ID))
		}
	}
	return nil
}

// sumRequested folds repeated product ids into one requested total and
// returns the distinct ids in first-seen order. Totals saturate at
// math.MaxInt instead of wrapping, so an oversized request always fails the
// stock check.
func sumRequested(products []model.RequestedProduct) (map[string]int, []string) {
	totals := make(map[string]int, len(products))
	ids := make([]string, 0, len(products))
	for _, rp := range products {
		sum, seen := totals[rp.ID]
		if !seen {
			ids = append(ids, rp.ID)
		}
		if rp.Quantity > math.MaxInt-sum {
			totals[rp.ID] = math.MaxInt
			continue
		}
		totals[rp.ID] = sum + rp.Quantity
	}
	return totals, ids
}
