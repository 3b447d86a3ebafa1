package app

import (
	"context"
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
	"github.com/joao-fontenele/textile-shop/internal/config"
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/orders"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := OpenStore(context.Background(), &config.Config{StoreDriver: config.StoreSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	handler, err := API{
		Store: store,
		Tokens: auth.Tokens{
			"admin":  {ClientID: "ops", Admin: true},
			"client": {ClientID: "client-1"},
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}.Handler()
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func request(t *testing.T, srv *httptest.Server, method, path, token, body string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_OrderLifecycle(t *testing.T) {
	srv := newTestAPI(t)

	assert.Equal(t, http.StatusOK, request(t, srv, http.MethodGet, "/healthz", "", "", nil))

	var product domain.Product
	status := request(t, srv, http.MethodPost, "/products", "admin", `{
		"name": "Linen",
		"product_type": "FABRIC",
		"price": 100,
		"warehouse_availability": 50,
		"minimum_cut": 3,
		"meters_per_roll": 25,
		"composition": [{"material": "linen", "percentage": 100}]
	}`, &product)
	require.Equal(t, http.StatusCreated, status)

	var created orders.CreateResult
	status = request(t, srv, http.MethodPost, "/orders", "client",
		`{"items":[{"product_id":"`+product.PublicID+`","color":"sand","meters":30}]}`, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(2), created.Items[0].Rolls)
	assert.Equal(t, "3000", created.TotalAmount.String())

	var got domain.Product
	require.Equal(t, http.StatusOK, request(t, srv, http.MethodGet, "/products/"+product.ID, "", "", &got))
	assert.Equal(t, "20", got.WarehouseAvailability.String())

	status = request(t, srv, http.MethodPost, "/chats/"+created.ChatID+"/messages", "client", `{"body":"Please ship before Friday"}`, nil)
	assert.Equal(t, http.StatusCreated, status)

	var order domain.Order
	status = request(t, srv, http.MethodPut, "/orders/"+created.OrderID+"/status", "client", `{"status":"CANCELLED"}`, &order)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)

	require.Equal(t, http.StatusOK, request(t, srv, http.MethodGet, "/products/"+product.PublicID, "", "", &got))
	assert.Equal(t, "50", got.WarehouseAvailability.String())

	var errResp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	status = request(t, srv, http.MethodGet, "/orders", "", "", &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, errResp.Success)
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(context.Background(), &config.Config{StoreDriver: config.StoreMemory})
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	_, err = OpenStore(context.Background(), &config.Config{StoreDriver: "mysql"})
	assert.Error(t, err)
}
