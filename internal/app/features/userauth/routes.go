// internal/app/features/userauth/routes.go
package userauth

import (
	"github.com/dalemusser/phonebook/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /user. lim throttles the two endpoints that talk to
// the identity provider; nil disables throttling.
func Routes(h *Handler, lim *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(lim.Middleware)
		r.Get("/login", h.ServeLogin)
		r.Get("/callback", h.ServeCallback)
	})
	r.Post("/logout", h.HandleLogout)
	r.Get("/check-auth", h.ServeCheckAuth)
	return r
}
