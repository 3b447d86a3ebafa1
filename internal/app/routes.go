package app

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/textile-shop/internal/auth"
	"github.com/joao-fontenele/textile-shop/internal/catalog"
	"github.com/joao-fontenele/textile-shop/internal/chat"
	"github.com/joao-fontenele/textile-shop/internal/httpapi"
	"github.com/joao-fontenele/textile-shop/internal/orders"
	"github.com/joao-fontenele/textile-shop/internal/storage"
	"github.com/joao-fontenele/textile-shop/internal/telemetry"
)

type API struct {
	Store     storage.Store
	Publisher orders.Publisher
	Tokens    auth.Tokens
	Metrics   http.Handler
	Logger    *slog.Logger
}

// Handler builds the instrumented route table of the shop API.
func (a API) Handler() (http.Handler, error) {
	orderService, err := orders.NewService(a.Store, a.Publisher, a.Logger)
	if err != nil {
		return nil, err
	}

	products := catalog.NewHandler(catalog.NewService(a.Store), a.Logger)
	orderHandler := orders.NewHandler(orderService, a.Logger)
	chats := chat.NewHandler(chat.NewService(a.Store), a.Logger)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}
	private := func(h http.HandlerFunc) http.HandlerFunc {
		return auth.Require(a.Tokens, a.Logger, h)
	}

	handle("GET /products", products.HandleList)
	handle("GET /products/{productId}", products.HandleGet)
	handle("POST /products", private(products.HandleCreate))
	handle("PUT /products/{productId}", private(products.HandleUpdate))
	handle("POST /products/{productId}/stock", private(products.HandleAdjustStock))

	handle("POST /orders", private(orderHandler.HandleCreate))
	handle("GET /orders", private(orderHandler.HandleList))
	handle("GET /orders/stats", private(orderHandler.HandleStats))
	handle("GET /orders/{orderId}", private(orderHandler.HandleGet))
	handle("PUT /orders/{orderId}/status", private(orderHandler.HandleUpdateStatus))

	handle("GET /chats/{chatId}/messages", private(chats.HandleList))
	handle("POST /chats/{chatId}/messages", private(chats.HandlePost))

	mux.HandleFunc("GET /healthz", httpapi.HandleHealth)
	if a.Metrics != nil {
		mux.Handle("GET /metrics", a.Metrics)
	}

	return otelhttp.NewHandler(httpapi.Recover(a.Logger, mux), "textile-shop",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	), nil
}
