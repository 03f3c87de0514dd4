package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "OrderPlaced"

type OutboxMessage struct {
	ID        int64
	Topic     string
	Key       string
	EventType string
	Payload   []byte
	Headers   map[string]string
}

type OrderPlaced struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Items      []LineItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewOrderPlacedMessage builds the outbox row recorded alongside a new order.
func NewOrderPlacedMessage(topic string, o *Order) (*OutboxMessage, error) {
	payload, err := json.Marshal(OrderPlaced{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      o.Items,
		Total:      o.Total,
		CreatedAt:  o.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order placed: %w", err)
	}

	return &OutboxMessage{
		Topic:     topic,
		Key:       o.CustomerID,
		EventType: EventOrderPlaced,
		Payload:   payload,
		Headers:   map[string]string{"order-id": o.ID},
	}, nil
}
