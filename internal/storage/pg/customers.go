package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sanchey92/order-service/internal/domain/model"
)

func (s *Storage) FindCustomer(ctx context.Context, id string) (*model.Customer, error) {
	query := `SELECT id, name, email, created_at
              FROM customers
              WHERE id = $1`

	c := &model.Customer{}
	err := s.conn(ctx).QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
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

	query := `INSERT INTO customers (id, name, email, created_at)
              VALUES ($1, $2, $3, $4)`

	if _, err := s.conn(ctx).Exec(ctx, query, c.ID, c.Name, c.Email, c.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}
