// Package auth provides the minimal authentication sentrywatch needs on its
// data plane: none on ingest (the ingest key travels in the request body and
// is resolved by db.Queries.GetApiByIngestKey in the ingest handler), and a single
// shared operator bearer token on the management surface (API registration
// CRUD, alert acknowledgement). Full identity/session management is out of
// scope; this is deliberately the smallest thing that lets an operator lock
// down the management routes in production.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireOperatorToken returns middleware that rejects requests whose
// Authorization header does not carry the configured bearer token. If token
// is empty, the middleware is a no-op (useful for local development).
func RequireOperatorToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"missing or invalid operator token"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
