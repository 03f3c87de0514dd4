package order_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanchey92/order-service/internal/domain/model"
	"github.com/sanchey92/order-service/internal/service/order"
	"github.com/sanchey92/order-service/internal/storage/sqlite"
)

func TestPlace_AgainstSQLite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewSQLiteStorage(ctx, logger, &sqlite.StorageConfig{Path: ":memory:", EventTopic: "order-events"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	customer, err := st.CreateCustomer(ctx, &model.NewCustomer{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	pen, err := st.CreateProduct(ctx, &model.NewProduct{Name: "pen", Price: decimal.NewFromInt(10), Quantity: 5})
	require.NoError(t, err)

	svc := order.NewOrderService(logger, st, st, st)
	cmd := &model.PlaceOrderCommand{
		CustomerID: customer.ID,
		Products:   []model.RequestedProduct{{ID: pen.ID, Quantity: 2}},
	}

	first, err := svc.Place(ctx, cmd)
	require.NoError(t, err)
	second, err := svc.Place(ctx, cmd)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = svc.Place(ctx, cmd)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	products, err := st.FindProducts(ctx, []string{pen.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, products[0].Quantity)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(20).Equal(got.Total))
	assert.Equal(t, "Ada", got.Customer.Name)

	msgs, err := st.GetBatch(ctx, 10, 3)
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "one event per placed order")
}
