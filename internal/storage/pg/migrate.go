package pg

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		price      NUMERIC(12, 2) NOT NULL,
		quantity   INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES customers (id),
		total       NUMERIC(14, 2) NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id   TEXT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		product_id TEXT NOT NULL REFERENCES products (id),
		quantity   INTEGER NOT NULL,
		price      NUMERIC(12, 2) NOT NULL,
		PRIMARY KEY (order_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id           BIGSERIAL PRIMARY KEY,
		topic        TEXT NOT NULL,
		key          TEXT NOT NULL,
		event_type   TEXT NOT NULL,
		payload      JSONB NOT NULL,
		headers      JSONB NOT NULL DEFAULT '{}',
		retry_count  INTEGER NOT NULL DEFAULT 0,
		last_error   TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox (created_at) WHERE published_at IS NULL`,
}

// Migrate creates the tables the service needs if they are missing.
func (s *Storage) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
