// Package sqlite implements the customer, product, order and outbox stores on
// an embedded SQLite database. It backs local runs and the storage tests; the
// Postgres store in package pg is the production implementation of the same
// contracts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Fixed-width fractions keep stored timestamps sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type StorageConfig struct {
	// Path is a file path or ":memory:".
	Path       string
	EventTopic string
}

type Storage struct {
	logger     *slog.Logger
	db         *sql.DB
	eventTopic string
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteStorage(ctx context.Context, log *slog.Logger, cfg *StorageConfig) (*Storage, error) {
	db, err := sql.Open(DriverName, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", cfg.Path, err)
	}

	// A single connection serialises writers and keeps ":memory:" databases
	// alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &Storage{logger: log, db: db, eventTopic: cfg.EventTopic}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// RunInTx runs fn inside a transaction carried by the context it receives.
// Nested calls join the outer transaction.
func (s *Storage) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("rollback failed", slog.Any("error", rbErr))
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
