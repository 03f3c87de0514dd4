package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sanchey92/order-service/internal/domain/model"
)

func (s *Storage) FindCustomer(ctx context.Context, id string) (*model.Customer, error) {
	const q = `SELECT id, name, email, created_at FROM customers WHERE id = ?`

	c := &model.Customer{}
	var createdAt string
	err := s.conn(ctx).QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Storage) CreateCustomer(ctx context.Context, nc *model.NewCustomer) (*model.Customer, error) {
	c := &model.Customer{
		ID:        uuid.NewString(),
		Name:      nc.Name,
		Email:     nc.Email,
		CreatedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO customers (id, name, email, created_at) VALUES (?, ?, ?, ?)`

	if _, err := s.conn(ctx).ExecContext(ctx, q, c.ID, c.Name, c.Email, formatTime(c.CreatedAt)); err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}
