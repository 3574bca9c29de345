// Package middleware adapts the gateway's session and observability
// concerns onto chi's http.Handler chain.
package middleware

import (
	"context"
	"net/http"

	"swapmesh/gateway/session"
)

type contextKey string

const claimsContextKey contextKey = "gateway.session_claims"

// RequireSession rejects requests with no valid gateway session bearer
// token. Handlers that need the caller identity read it back with
// ClaimsFromContext.
func RequireSession(auth *session.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				next.ServeHTTP(w, r)
				return
			}
			token := session.ExtractBearer(r.Header.Get("Authorization"))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.Verify(token)
			if err != nil {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified session claims attached by
// RequireSession, if any.
func ClaimsFromContext(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*session.Claims)
	return claims
}
