package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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
		if err := s.insertOrder(ctx, o); err != nil {
			return err
		}
		if err := s.insertLineItems(ctx, o); err != nil {
			return err
		}
		return s.InsertOutboxMsg(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return o, nil
}

func (s *Storage) insertOrder(ctx context.Context, o *model.Order) error {
	query := `INSERT INTO orders (id, customer_id, total, created_at)
              VALUES ($1, $2, $3::numeric, $4)`

	if _, err := s.conn(ctx).Exec(ctx, query, o.ID, o.CustomerID, o.Total.String(), o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Storage) insertLineItems(ctx context.Context, o *model.Order) error {
	query := `INSERT INTO order_products (order_id, position, product_id, quantity, price)
              VALUES ($1, $2, $3, $4, $5::numeric)`

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(query, o.ID, i, item.ProductID, item.Quantity, item.Price.String())
	}

	br := s.conn(ctx).SendBatch(ctx, batch)
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert line item: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return nil
}

// FindOrder loads the order together with its line items, in the order they
// were placed, and its customer.
func (s *Storage) FindOrder(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT o.id, o.customer_id, o.total::text, o.created_at,
                     c.id, c.name, c.email, c.created_at
              FROM orders o
              JOIN customers c ON c.id = o.customer_id
              WHERE o.id = $1`

	o := &model.Order{Customer: &model.Customer{}}
	var total string
	err := s.conn(ctx).QueryRow(ctx, query, id).Scan(
		&o.ID, &o.CustomerID, &total, &o.CreatedAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Email, &o.Customer.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}

	if o.Items, err = s.findLineItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Storage) findLineItems(ctx context.Context, orderID string) ([]model.LineItem, error) {
	query := `SELECT product_id, quantity, price::text
              FROM order_products
              WHERE order_id = $1
              ORDER BY position`

	rows, err := s.conn(ctx).Query(ctx, query, orderID)
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
	query := `INSERT INTO outbox (topic, key, event_type, payload, headers)
              VALUES ($1, $2, $3, $4, $5)`

	if _, err = s.conn(ctx).Exec(ctx, query, msg.Topic, msg.Key, msg.EventType, msg.Payload, headers); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}
	return nil
}
