package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderDraft_Total(t *testing.T) {
	d := OrderDraft{Items: []LineItem{
		{ProductID: "p1", Quantity: 3, Price: decimal.RequireFromString("0.10")},
		{ProductID: "p2", Quantity: 1, Price: decimal.RequireFromString("19.99")},
	}}

	assert.Equal(t, "20.29", d.Total().StringFixed(2))
	assert.True(t, OrderDraft{}.Total().IsZero())
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError(KindProductNotFound, "could not find product: p9"))

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NotErrorIs(t, err, ErrInsufficientStock)
	assert.EqualError(t, errors.Unwrap(err), "could not find product: p9")

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindProductNotFound, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)

	assert.Equal(t, "order_not_found", ErrOrderNotFound.Error())
}

func TestNewOrderPlacedMessage(t *testing.T) {
	o := &Order{
		ID:         "o1",
		CustomerID: "c1",
		Items:      []LineItem{{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(5)}},
		Total:      decimal.NewFromInt(10),
		CreatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg, err := NewOrderPlacedMessage("order-events", o)
	require.NoError(t, err)

	assert.Equal(t, "order-events", msg.Topic)
	assert.Equal(t, "c1", msg.Key)
	assert.Equal(t, EventOrderPlaced, msg.EventType)
	assert.Equal(t, map[string]string{"order-id": "o1"}, msg.Headers)

	var payload OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "o1", payload.OrderID)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "p1", payload.Items[0].ProductID)
	assert.True(t, o.Total.Equal(payload.Total))
}
