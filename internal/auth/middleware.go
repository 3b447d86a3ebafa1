package auth

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/textile-shop/internal/httpapi"
)

// Require rejects requests without a known bearer token with 401 and stores
// the resolved identity in the request context.
func Require(tokens Tokens, logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := tokens.Resolve(r.Header.Get("Authorization"))
		if !ok {
			httpapi.WriteError(w, logger, http.StatusUnauthorized, "missing or invalid client authentication")
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}
