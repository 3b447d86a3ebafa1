package orders

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/httpapi"
	"github.com/joao-fontenele/textile-shop/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()

	f := newFixture(t, memory.New(), linen(50), zipper())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(f.svc, logger)
	tokens := auth.Tokens{
		"client-token": client,
		"other-token":  other,
		"admin-token":  admin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", auth.Require(tokens, logger, h.HandleCreate))
	mux.HandleFunc("GET /orders", auth.Require(tokens, logger, h.HandleList))
	mux.HandleFunc("GET /orders/stats", auth.Require(tokens, logger, h.HandleStats))
	mux.HandleFunc("GET /orders/{orderId}", auth.Require(tokens, logger, h.HandleGet))
	mux.HandleFunc("PUT /orders/{orderId}/status", auth.Require(tokens, logger, h.HandleUpdateStatus))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, f
}

func call(t *testing.T, srv *httptest.Server, method, path, token, body string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandler_CreateOrder(t *testing.T) {
	srv, f := newTestServer(t)

	status, body := call(t, srv, http.MethodPost, "/orders", "client-token",
		`{"items":[{"product_id":"FAB-000001","color":"sand","meters":30},{"product_id":"ACC-000001","color":"black","rolls":2}]}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var result CreateResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ORD-2026-000001", result.PublicID)
	assert.Equal(t, domain.OrderStatusPending, result.Status)
	assert.Equal(t, "3006.4", result.TotalAmount.String())
	assert.NotEmpty(t, result.ChatID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "20", f.availability(t, "p-linen").String())
}

func TestHandler_CreateOrderErrors(t *testing.T) {
	srv, f := newTestServer(t)

	tests := []struct {
		name   string
		token  string
		body   string
		status int
		error  string
	}{
		{"no token", "", `{"items":[]}`, http.StatusUnauthorized, "missing or invalid client authentication"},
		{"malformed body", "client-token", `{"items":`, http.StatusBadRequest, "invalid body: invalid request body"},
		{"unknown product", "client-token", `{"items":[{"product_id":"FAB-404","color":"red","meters":5}]}`, http.StatusNotFound, "product not found: FAB-404"},
		{"below minimum cut", "client-token", `{"items":[{"product_id":"p-linen","color":"red","meters":1}]}`, http.StatusBadRequest, "product FAB-000001 has a minimum cut of 3 meters, requested 1"},
		{"insufficient stock", "client-token", `{"items":[{"product_id":"p-linen","color":"red","meters":"50.5"}]}`, http.StatusBadRequest, "insufficient stock for product FAB-000001: available 50, requested 50.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, srv, http.MethodPost, "/orders", tt.token, tt.body)
			assert.Equal(t, tt.status, status)

			var resp httpapi.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.error, resp.Error)
		})
	}

	assert.Equal(t, "50", f.availability(t, "p-linen").String())
}

func TestHandler_StatusLifecycle(t *testing.T) {
	srv, f := newTestServer(t)

	status, body := call(t, srv, http.MethodPost, "/orders", "client-token",
		`{"items":[{"product_id":"p-linen","color":"sand","meters":30}]}`)
	require.Equal(t, http.StatusCreated, status)
	var created CreateResult
	require.NoError(t, json.Unmarshal(body, &created))

	status, _ = call(t, srv, http.MethodPut, "/orders/"+created.OrderID+"/status", "client-token", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, srv, http.MethodPut, "/orders/"+created.PublicID+"/status", "admin-token", `{"status":"DELIVERED"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"success":false,"error":"cannot change order status from PENDING to DELIVERED"}`, string(body))

	status, body = call(t, srv, http.MethodPut, "/orders/"+created.OrderID+"/status", "client-token", `{"status":"CANCELLED"}`)
	require.Equal(t, http.StatusOK, status)
	var order domain.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, "50", f.availability(t, "p-linen").String())

	status, _ = call(t, srv, http.MethodPut, "/orders/missing/status", "admin-token", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_GetListAndStats(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, token := range []string{"client-token", "client-token", "other-token"} {
		status, _ := call(t, srv, http.MethodPost, "/orders", token, `{"items":[{"product_id":"p-linen","color":"sand","meters":5}]}`)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := call(t, srv, http.MethodGet, "/orders?page=1&limit=1", "client-token", "")
	require.Equal(t, http.StatusOK, status)
	var page httpapi.Page[domain.Order]
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, httpapi.Pagination{Total: 2, Page: 1, Limit: 1, Pages: 2}, page.Pagination)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "ORD-2026-000002", page.Data[0].PublicID)

	status, body = call(t, srv, http.MethodGet, "/orders?clientId=client-2&status=pending", "admin-token", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, int64(1), page.Pagination.Total)

	status, _ = call(t, srv, http.MethodGet, "/orders?status=LOST", "admin-token", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, http.MethodGet, "/orders/ORD-2026-000003", "client-token", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, srv, http.MethodGet, "/orders/ORD-2026-000001", "client-token", "")
	require.Equal(t, http.StatusOK, status)
	var order domain.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Len(t, order.Items, 1)

	status, _ = call(t, srv, http.MethodGet, "/orders/stats", "client-token", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, srv, http.MethodGet, "/orders/stats", "admin-token", "")
	require.Equal(t, http.StatusOK, status)
	var stats domain.OrderStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, "1500", stats.TotalRevenue.String())
}
