package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/sarafi-settlement/internal/handler"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

// Tenant requires X-Tenant-ID on every /api/ request and scopes the request
// context to it. X-Operator-ID is optional and recorded as the actor.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		id := strings.TrimSpace(r.Header.Get(tenant.Header))
		if id == "" {
			handler.RespondAppError(w, handler.ErrMissingTenant, nil)
			return
		}
		if !tenant.ValidID(id) {
			handler.RespondAppError(w, handler.ErrInvalidTenant, nil)
			return
		}

		ctx := tenant.ContextWithTenantID(r.Context(), id)
		if op := strings.TrimSpace(r.Header.Get(tenant.OperatorHeader)); tenant.ValidID(op) {
			ctx = tenant.ContextWithOperator(ctx, op)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
