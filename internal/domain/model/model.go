package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Email     string    `json:"email"      db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Product struct {
	ID        string          `json:"id"         db:"id"`
	Name      string          `json:"name"       db:"name"`
	Price     decimal.Decimal `json:"price"      db:"price"`
	Quantity  int             `json:"quantity"   db:"quantity"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type Order struct {
	ID         string          `json:"id"          db:"id"`
	CustomerID string          `json:"customer_id" db:"customer_id"`
	Customer   *Customer       `json:"customer"    db:"-"`
	Items      []LineItem      `json:"products"    db:"-"`
	Total      decimal.Decimal `json:"total"       db:"total"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
}

// LineItem keeps the unit price captured when the order was placed, so later
// catalog changes never reprice historical orders.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderDraft is what the workflow hands to order persistence.
type OrderDraft struct {
	Customer *Customer
	Items    []LineItem
}

func (d OrderDraft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// StockUpdate carries the absolute quantity a product should be left with.
type StockUpdate struct {
	ProductID string
	Quantity  int
}

type RequestedProduct struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type PlaceOrderCommand struct {
	CustomerID string             `json:"customer_id"`
	Products   []RequestedProduct `json:"products"`
}

type NewCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type NewProduct struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}
