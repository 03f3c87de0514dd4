package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sanchey92/order-service/internal/domain/model"
)

// FindProducts returns the products whose id is in ids. Unknown ids are
// silently absent from the result.
func (s *Storage) FindProducts(ctx context.Context, ids []string) ([]*model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, name, price::text, quantity, created_at, updated_at
              FROM products
              WHERE id = ANY($1)`

	rows, err := s.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		var price string
		if err = rows.Scan(&p.ID, &p.Name, &price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", p.ID, err)
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

	query := `UPDATE products
              SET quantity = $2, updated_at = now()
              WHERE id = $1`

	return s.RunInTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(query, u.ProductID, u.Quantity)
		}

		br := s.conn(ctx).SendBatch(ctx, batch)
		for _, u := range updates {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("update quantity of %s: %w", u.ProductID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
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

	query := `INSERT INTO products (id, name, price, quantity, created_at, updated_at)
              VALUES ($1, $2, $3::numeric, $4, $5, $6)`

	if _, err := s.conn(ctx).Exec(ctx, query, p.ID, p.Name, p.Price.String(), p.Quantity, p.CreatedAt, p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}
