// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/phonebook/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit event routes (typically at /api/v1/audit-events).
// The caller must already be authenticated; only admins get through.
func Routes(h *Handler, am *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(am.RequireAdmin)
	r.Get("/", h.ServeList)
	return r
}
