package middleware

import (
	"net/http"
	"strings"

	"github.com/rpattn/talentcrm/internal/auth"

	"github.com/google/uuid"
)

// AuthContextMiddleware copies the authenticated organization and actor
// headers into the request context. Upstream auth is expected to have
// validated them; malformed values are simply ignored here.
func AuthContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if raw := strings.TrimSpace(r.Header.Get("X-Organization-ID")); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ctx = auth.ContextWithOrganizationID(ctx, id)
			}
		}
		if raw := strings.TrimSpace(r.Header.Get("X-Actor-ID")); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ctx = auth.ContextWithActorID(ctx, id)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
