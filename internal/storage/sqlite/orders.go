package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanchey92/order-service/internal/domain/model"
)

// CreateOrder stores the order, its line items and an OrderPlaced outbox
// message in one transaction.
func (s *Storage) CreateOrder(ctx context.Context, draft *model.OrderDraft) (*model.Order, error) {
	o := &model.Order{
		ID:         uuid.NewString(),
		CustomerID: draft.Customer.ID,
		Customer:   draft.Customer,
		Items:      draft.Items,
		Total:      draft.Total(),
		CreatedAt:  time.Now().UTC(),
	}

	msg, err := model.NewOrderPlacedMessage(s.eventTopic, o)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	err = s.RunInTx(ctx, func(ctx context.Context) error {
		const insertOrder = `INSERT INTO orders (id, customer_id, total, created_at) VALUES (?, ?, ?, ?)`
		if _, err := s.conn(ctx).ExecContext(ctx, insertOrder,
			o.ID, o.CustomerID, o.Total.String(), formatTime(o.CreatedAt)); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		const insertItem = `INSERT INTO order_products (order_id, position, product_id, quantity, price)
		                    VALUES (?, ?, ?, ?, ?)`
		for i, item := range o.Items {
			if _, err := s.conn(ctx).ExecContext(ctx, insertItem,
				o.ID, i, item.ProductID, item.Quantity, item.Price.String()); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
		}

		return s.InsertOutboxMsg(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return o, nil
}

// FindOrder loads the order together with its line items, in the order they
// were placed, and its customer.
func (s *Storage) FindOrder(ctx context.Context, id string) (*model.Order, error) {
	const q = `
		SELECT o.id, o.customer_id, o.total, o.created_at,
		       c.id, c.name, c.email, c.created_at
		FROM   orders o
		JOIN   customers c ON c.id = o.customer_id
		WHERE  o.id = ?`

	o := &model.Order{Customer: &model.Customer{}}
	var total, createdAt, customerCreatedAt string
	err := s.conn(ctx).QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.CustomerID, &total, &createdAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Email, &customerCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.Customer.CreatedAt, err = parseTime(customerCreatedAt); err != nil {
		return nil, err
	}

	if o.Items, err = s.findLineItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Storage) findLineItems(ctx context.Context, orderID string) ([]model.LineItem, error) {
	const q = `SELECT product_id, quantity, price FROM order_products WHERE order_id = ? ORDER BY position`

	rows, err := s.conn(ctx).QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("find line items: %w", err)
	}
	defer rows.Close()

	items := make([]model.LineItem, 0)
	for rows.Next() {
		var item model.LineItem
		var price string
		if err = rows.Scan(&item.ProductID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse line item price: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}
	return items, nil
}

func (s *Storage) InsertOutboxMsg(ctx context.Context, msg *model.OutboxMessage) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	const q = `INSERT INTO outbox (topic, key, event_type, payload, headers, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`

	if _, err = s.conn(ctx).ExecContext(ctx, q,
		msg.Topic, msg.Key, msg.EventType, msg.Payload, string(headers), formatTime(time.Now())); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}
	return nil
}
