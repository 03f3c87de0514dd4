package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanchey92/order-service/internal/domain/model"
	"github.com/sanchey92/order-service/internal/http/router"
)

type stubOrders struct {
	placeErr error
	got      *model.PlaceOrderCommand
}

func (s *stubOrders) Place(_ context.Context, cmd *model.PlaceOrderCommand) (*model.Order, error) {
	s.got = cmd
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return &model.Order{
		ID:         "o1",
		CustomerID: cmd.CustomerID,
		Items:      []model.LineItem{{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(10)}},
		Total:      decimal.NewFromInt(20),
	}, nil
}

func (s *stubOrders) Get(_ context.Context, id string) (*model.Order, error) {
	if id != "o1" {
		return nil, model.NewError(model.KindOrderNotFound, "could not find order: "+id)
	}
	return &model.Order{
		ID:         "o1",
		CustomerID: "c1",
		Customer:   &model.Customer{ID: "c1", Name: "Ada"},
		Items:      []model.LineItem{{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(10)}},
		Total:      decimal.NewFromInt(20),
	}, nil
}

type stubCatalog struct {
	err error
}

func (s *stubCatalog) CreateCustomer(_ context.Context, c *model.NewCustomer) (*model.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Customer{ID: "c1", Name: c.Name, Email: c.Email}, nil
}

func (s *stubCatalog) CreateProduct(_ context.Context, p *model.NewProduct) (*model.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Product{ID: "p1", Name: p.Name, Price: p.Price, Quantity: p.Quantity}, nil
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newHandler(orders *stubOrders, catalog *stubCatalog) http.Handler {
	return router.New(slog.New(slog.NewTextHandler(io.Discard, nil)), orders, catalog)
}

func TestCreateOrder(t *testing.T) {
	orders := &stubOrders{}
	h := newHandler(orders, &stubCatalog{})

	rec := serve(t, h, http.MethodPost, "/orders", `{"customer_id":"c1","products":[{"id":"p1","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ID       string `json:"id"`
		Total    string `json:"total"`
		Products []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
			Price     string `json:"price"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "o1", body.ID)
	assert.Equal(t, "20", body.Total)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "10", body.Products[0].Price)

	require.NotNil(t, orders.got)
	assert.Equal(t, "c1", orders.got.CustomerID)
	assert.Equal(t, []model.RequestedProduct{{ID: "p1", Quantity: 2}}, orders.got.Products)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		placeErr   error
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed json",
			body:       `{"customer_id":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"customer_id":"c1","products":[{"id":"p1","quantity":1}],"extra":true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no products",
			body:       `{"customer_id":"c1","products":[]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "products must not be empty",
		},
		{
			name:       "zero quantity",
			body:       `{"customer_id":"c1","products":[{"id":"p1","quantity":0}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "customer not found",
			body:       `{"customer_id":"c9","products":[{"id":"p1","quantity":1}]}`,
			placeErr:   model.NewError(model.KindCustomerNotFound, "could not find any customer with this id"),
			wantStatus: http.StatusNotFound,
			wantError:  "could not find any customer with this id",
		},
		{
			name:       "product not found",
			body:       `{"customer_id":"c1","products":[{"id":"p9","quantity":1}]}`,
			placeErr:   model.NewError(model.KindProductNotFound, "could not find product: p9"),
			wantStatus: http.StatusNotFound,
			wantError:  "could not find product: p9",
		},
		{
			name:       "insufficient stock",
			body:       `{"customer_id":"c1","products":[{"id":"p1","quantity":99}]}`,
			placeErr:   model.NewError(model.KindInsufficientStock, "the quantity is not available for product: p1"),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "the quantity is not available for product: p1",
		},
		{
			name:       "storage failure is hidden",
			body:       `{"customer_id":"c1","products":[{"id":"p1","quantity":1}]}`,
			placeErr:   errors.New("pq: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&stubOrders{placeErr: tt.placeErr}, &stubCatalog{})

			rec := serve(t, h, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Status int    `json:"status"`
				Error  string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.NotEmpty(t, body.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body.Error)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	h := newHandler(&stubOrders{}, &stubCatalog{})

	rec := serve(t, h, http.MethodGet, "/orders/o1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ID       string `json:"id"`
		Customer struct {
			Name string `json:"name"`
		} `json:"customer"`
		Products []json.RawMessage `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "o1", body.ID)
	assert.Equal(t, "Ada", body.Customer.Name)
	assert.Len(t, body.Products, 1)

	rec = serve(t, h, http.MethodGet, "/orders/o2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	h := newHandler(&stubOrders{}, &stubCatalog{})

	rec := serve(t, h, http.MethodPost, "/customers", `{"name":"Ada","email":"ada@example.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, h, http.MethodPost, "/products", `{"name":"pen","price":"9.99","quantity":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var product struct {
		Price string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	assert.Equal(t, "9.99", product.Price)

	h = newHandler(&stubOrders{}, &stubCatalog{err: model.NewError(model.KindInvalidInput, "email is invalid")})
	rec = serve(t, h, http.MethodPost, "/customers", `{"name":"Ada","email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newHandler(&stubOrders{}, &stubCatalog{})

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
