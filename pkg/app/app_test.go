package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/database/seeders"
	"github.com/shashiranjanraj/zepto/pkg/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool              `json:"success"`
	Status  int               `json:"status"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Count   *int              `json:"count"`
	Meta    json.RawMessage   `json:"meta"`
	Errors  map[string]string `json:"errors"`
}

type client struct {
	t   *testing.T
	url string
}

func (c client) do(method, path, token string, body any, headers ...string) (int, envelope) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.url+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func boot(t *testing.T) (*app.Application, client) {
	t.Helper()
	for k, v := range map[string]string{
		"DB_DRIVER":               "memory",
		"CACHE_DRIVER":            "memory",
		"PAYMENT_DRIVER":          "simulated",
		"PAYMENT_SIMULATED_DELAY": "0s",
		"JWT_SECRET":              "app-test-secret",
		"ADMIN_PHONE":             "9999999999",
		"ADMIN_PASSWORD":          "admin123",
		"RATE_LIMIT_PER_MINUTE":   "10000",
		"EVENT_WORKERS":           "2",
		"LOG_MONGO_URI":           "",
	} {
		config.Set(k, v)
	}

	ctx := context.Background()
	a, err := app.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	require.NoError(t, seeders.RunAll(ctx, a.Store, io.Discard))

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, client{t: t, url: srv.URL}
}

func TestCheckoutFlow(t *testing.T) {
	a, c := boot(t)

	code, env := c.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "phone": "9876543210", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var session struct {
		Token   string `json:"token"`
		IsAdmin bool   `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)
	assert.False(t, session.IsAdmin)

	code, env = c.do(http.MethodGet, "/api/products?limit=5&category=Dairy&sortBy=price&order=asc", "", nil)
	require.Equal(t, http.StatusOK, code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	require.Len(t, products, 5)
	assert.LessOrEqual(t, products[0].Price, products[1].Price)
	milk := products[0]

	order := map[string]any{
		"items": []map[string]any{{"product": milk.ID, "name": milk.Name, "quantity": 2}},
		"deliveryAddress": map[string]string{
			"name": "Asha", "phone": "9876543210", "addressLine": "12 Marine Drive",
			"city": "Mumbai", "state": "Maharashtra", "pincode": "400001",
		},
		"paymentMethod": "COD",
	}

	code, _ = c.do(http.MethodPost, "/api/orders", "", order)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = c.do(http.MethodPost, "/api/orders", session.Token, order, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusCreated, code, env.Message)
	var placed models.OrderView
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	assert.Equal(t, models.StatusConfirmed, placed.OrderStatus)
	require.NotNil(t, placed.User)
	assert.Equal(t, "Asha", placed.User.Name)

	code, env = c.do(http.MethodPost, "/api/orders", session.Token, order, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusCreated, code)
	var replay models.OrderView
	require.NoError(t, json.Unmarshal(env.Data, &replay))
	assert.Equal(t, placed.OrderID, replay.OrderID)

	code, env = c.do(http.MethodGet, "/api/products/"+milk.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	var after models.Product
	require.NoError(t, json.Unmarshal(env.Data, &after))
	assert.Equal(t, milk.Stock-2, after.Stock)

	code, env = c.do(http.MethodGet, "/api/orders", session.Token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	greedy := map[string]any{
		"items":           []map[string]any{{"product": milk.ID, "quantity": after.Stock + 1}},
		"deliveryAddress": order["deliveryAddress"],
		"paymentMethod":   "COD",
	}
	code, env = c.do(http.MethodPost, "/api/orders", session.Token, greedy)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "insufficient_stock", env.Kind)

	code, _ = c.do(http.MethodPut, "/api/admin/orders/"+placed.ID+"/status", session.Token, map[string]string{"status": "Packed"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodPost, "/api/auth/login", "", map[string]string{"phone": "9999999999", "password": "admin123"})
	require.Equal(t, http.StatusOK, code)
	var adminSession struct {
		Token   string `json:"token"`
		IsAdmin bool   `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &adminSession))
	assert.True(t, adminSession.IsAdmin)

	code, env = c.do(http.MethodPut, "/api/admin/orders/"+placed.ID+"/status", adminSession.Token, map[string]string{"status": "Out for Delivery"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var updated models.Order
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, models.StatusOutForDelivery, updated.OrderStatus)
	assert.Len(t, updated.StatusHistory, 2)

	code, env = c.do(http.MethodPut, "/api/orders/"+placed.ID+"/status", adminSession.Token, map[string]string{"status": "Lost"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "status")

	code, env = c.do(http.MethodGet, "/api/admin/stats", adminSession.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var stats struct {
		Products int64 `json:"totalProducts"`
		Orders   int64 `json:"totalOrders"`
		Users    int64 `json:"totalUsers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 50, stats.Products)
	assert.EqualValues(t, 1, stats.Orders)
	assert.EqualValues(t, 2, stats.Users)

	a.Events.Wait()
	resp, err := http.Get(c.url + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "zepto_orders_placed_total")
}

func TestPaymentsAndPincode(t *testing.T) {
	_, c := boot(t)

	code, env := c.do(http.MethodGet, "/api/payments/methods", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"cod"`)

	code, env = c.do(http.MethodPost, "/api/addresses/validate-pincode", "", map[string]string{"pincode": "400005"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"serviceable":true`)

	code, env = c.do(http.MethodPost, "/api/addresses/validate-pincode", "", map[string]string{"pincode": "12"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "pincode")

	code, env = c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ravi", "phone": "9123456780", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code)
	var s struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &s))

	code, env = c.do(http.MethodPost, "/api/payments/create", s.Token, map[string]any{"amount": 125})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"orderId":"order_sim_`)

	code, _ = c.do(http.MethodPost, "/api/payments/create", s.Token, map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodPost, "/api/payments/verify", s.Token, map[string]string{"razorpay_order_id": "order_1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_argument", env.Kind)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	_, c := boot(t)
	code, env := c.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Kind)
}

func TestRouteTable(t *testing.T) {
	names := map[string]string{}
	for _, r := range app.RouteTable() {
		names[r.Name] = r.Method + " " + r.Path
	}
	assert.Equal(t, "POST /api/orders", names["orders.store"])
	assert.Equal(t, "PATCH /api/admin/products/{id}/stock", names["admin.products.stock"])
	assert.Equal(t, "GET /metrics", names["metrics"])
}
