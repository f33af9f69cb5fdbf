package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	headerAPIKey = "X-API-Key"
	bearerPrefix = "Bearer "
)

// requestKey extracts the presented API key: the X-API-Key header first,
// then an Authorization bearer token. Returns "" when neither is present.
func requestKey(r *http.Request) string {
	if key := r.Header.Get(headerAPIKey); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		return auth[len(bearerPrefix):]
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// APIKeyAuth guards the remux API with a shared key. The comparison is
// constant-time so response timing leaks nothing about the key.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestKey(r)
			if key == "" {
				unauthorized(w, "missing API key")
				return
			}

			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
