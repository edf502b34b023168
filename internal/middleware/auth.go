package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the shared key when API_KEY is configured.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware rejects requests without the configured key. An empty key
// disables the check; health and metrics endpoints are always open.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || r.URL.Path == "/healthCheck" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(APIKeyHeader)), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
