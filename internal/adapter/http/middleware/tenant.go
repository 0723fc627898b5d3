package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/hoaledger/internal/domain"
)

// Tenant rejects requests whose {tenantID} route parameter is not a UUID.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := domain.ValidateTenantID(chi.URLParam(r, "tenantID")); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "invalid tenant id",
				"message": err.Error(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
