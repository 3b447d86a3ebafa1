// Package auth resolves the bearer token of a request into the calling
// client. Token issuance lives outside this service; tokens are configured
// as a static table.
package auth

import (
	"context"
	"fmt"
	"strings"
)

type Identity struct {
	ClientID string
	Admin    bool
}

// CanAccess reports whether the identity may act on a resource owned by clientID.
func (i Identity) CanAccess(clientID string) bool {
	return i.Admin || i.ClientID == clientID
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Tokens maps bearer tokens to identities.
type Tokens map[string]Identity

// ParseTokens reads entries of the form "token=client_id" or
// "token=client_id:admin".
func ParseTokens(entries []string) (Tokens, error) {
	tokens := make(Tokens, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		token, rest, ok := strings.Cut(entry, "=")
		if !ok || token == "" || rest == "" {
			return nil, fmt.Errorf("malformed auth token entry %q", entry)
		}

		clientID, role, _ := strings.Cut(rest, ":")
		if clientID == "" {
			return nil, fmt.Errorf("auth token entry %q has no client id", entry)
		}
		if role != "" && role != "admin" {
			return nil, fmt.Errorf("auth token entry %q has unknown role %q", entry, role)
		}

		tokens[token] = Identity{ClientID: clientID, Admin: role == "admin"}
	}
	return tokens, nil
}

func (t Tokens) Resolve(header string) (Identity, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, false
	}
	id, ok := t[strings.TrimSpace(token)]
	return id, ok
}
