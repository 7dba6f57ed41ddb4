package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// RequireAPIKey guards mutating routes with a bearer key compared against
// a bcrypt hash. With no hash configured the guard is a no-op, which is
// the expected setup for a kiosk deployment on a trusted network.
func RequireAPIKey(apiKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				WriteAPIError(w, http.StatusUnauthorized, "missing_key", "X-API-Key header is required")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(key)); err != nil {
				WriteAPIError(w, http.StatusForbidden, "invalid_key", "API key is not valid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
