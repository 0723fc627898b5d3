package middleware

import (
	"net/http"

	"github.com/iho/hoaledger/internal/domain"
)

// UserIDHeader names the caller for the audit trail. Authentication happens
// upstream; the header is trusted as given.
const UserIDHeader = "X-User-ID"

// Actor attaches the caller identity to the request context so audit entries
// record who asked.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := domain.ContextWithActor(r.Context(), domain.Actor{
			UserID:    r.Header.Get(UserIDHeader),
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
