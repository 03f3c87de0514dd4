package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanchey92/order-service/internal/domain/model"
)

// FindProducts returns the products whose id is in ids. Unknown ids are
// silently absent from the result.
func (s *Storage) FindProducts(ctx context.Context, ids []string) ([]*model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT id, name, price, quantity, created_at, updated_at
	      FROM products
	      WHERE id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`

	rows, err := s.conn(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		var price, createdAt, updatedAt string
		if err = rows.Scan(&p.ID, &p.Name, &price, &p.Quantity, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// UpdateQuantities overwrites stock with the given absolute values in a
// single transaction.
func (s *Storage) UpdateQuantities(ctx context.Context, updates []model.StockUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	const q = `UPDATE products SET quantity = ?, updated_at = ? WHERE id = ?`

	return s.RunInTx(ctx, func(ctx context.Context) error {
		now := formatTime(time.Now())
		for _, u := range updates {
			if _, err := s.conn(ctx).ExecContext(ctx, q, u.Quantity, now, u.ProductID); err != nil {
				return fmt.Errorf("update quantity of %s: %w", u.ProductID, err)
			}
		}
		return nil
	})
}

func (s *Storage) CreateProduct(ctx context.Context, np *model.NewProduct) (*model.Product, error) {
	now := time.Now().UTC()
	p := &model.Product{
		ID:        uuid.NewString(),
		Name:      np.Name,
		Price:     np.Price,
		Quantity:  np.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.insertProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Storage) insertProduct(ctx context.Context, p *model.Product) error {
	const q = `INSERT INTO products (id, name, price, quantity, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.conn(ctx).ExecContext(ctx, q,
		p.ID, p.Name, p.Price.String(), p.Quantity, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}
