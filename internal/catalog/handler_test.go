package catalog

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
	"github.com/joao-fontenele/textile-shop/internal/domain"
	"github.com/joao-fontenele/textile-shop/internal/httpapi"
)

func newTestMux(t *testing.T) (*http.ServeMux, *Service) {
	t.Helper()

	svc := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(svc, logger)
	tokens := auth.Tokens{
		"admin":  {ClientID: "ops", Admin: true},
		"client": {ClientID: "c1"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", h.HandleList)
	mux.HandleFunc("GET /products/{productId}", h.HandleGet)
	mux.HandleFunc("POST /products", auth.Require(tokens, logger, h.HandleCreate))
	mux.HandleFunc("PUT /products/{productId}", auth.Require(tokens, logger, h.HandleUpdate))
	mux.HandleFunc("POST /products/{productId}/stock", auth.Require(tokens, logger, h.HandleAdjustStock))
	return mux, svc
}

func do(mux http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const linenJSON = `{
	"name": "Linen",
	"product_type": "FABRIC",
	"price": "100",
	"warehouse_availability": 50,
	"minimum_cut": 3,
	"meters_per_roll": 25,
	"composition": [{"material": "linen", "percentage": 100}]
}`

func TestHandler_CreateRequiresAdmin(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := do(mux, http.MethodPost, "/products", "", linenJSON)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(mux, http.MethodPost, "/products", "client", linenJSON)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"admin access required"}`, rec.Body.String())

	rec = do(mux, http.MethodPost, "/products", "admin", linenJSON)
	require.Equal(t, http.StatusCreated, rec.Code)

	var product domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	assert.Equal(t, "Linen", product.Name)
	assert.Equal(t, "50", product.WarehouseAvailability.String())
}

func TestHandler_CreateValidation(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := do(mux, http.MethodPost, "/products", "admin", `{"name":"Zipper","product_type":"ACCESSORY","price":1,"minimum_cut":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid minimum_cut: only fabric has a minimum cut"}`, rec.Body.String())

	rec = do(mux, http.MethodPost, "/products", "admin", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetAndList(t *testing.T) {
	mux, svc := newTestMux(t)
	p, err := svc.Create(context.Background(), linen())
	require.NoError(t, err)

	rec := do(mux, http.MethodGet, "/products/"+p.PublicID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(mux, http.MethodGet, "/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, http.MethodGet, "/products?type=FABRIC&limit=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page httpapi.Page[domain.Product]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, httpapi.Pagination{Total: 1, Page: 1, Limit: 10, Pages: 1}, page.Pagination)
}

func TestHandler_AdjustStock(t *testing.T) {
	mux, svc := newTestMux(t)
	p, err := svc.Create(context.Background(), linen())
	require.NoError(t, err)

	rec := do(mux, http.MethodPost, "/products/"+p.ID+"/stock", "admin", `{"delta": "-20.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var level domain.StockLevel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &level))
	assert.Equal(t, "29.5", level.Available.String())

	rec = do(mux, http.MethodPost, "/products/"+p.ID+"/stock", "admin", `{"delta": -100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Update(t *testing.T) {
	mux, svc := newTestMux(t)
	p, err := svc.Create(context.Background(), linen())
	require.NoError(t, err)

	body := strings.Replace(linenJSON, `"Linen"`, `"Heavy linen"`, 1)
	rec := do(mux, http.MethodPut, "/products/"+p.ID, "admin", body)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heavy linen", got.Name)
}
