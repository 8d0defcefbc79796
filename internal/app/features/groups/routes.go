// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// LIST / CREATE
	r.Get("/", h.ServeGroupsList)
	r.Post("/", h.HandleCreateGroup)

	// MEMBERSHIP (addressed by its own id)
	r.Put("/group-members/{gmID}", h.HandleUpdateMembership)
	r.Patch("/group-members/{gmID}", h.HandleUpdateMembership)
	r.Delete("/group-members/{gmID}", h.HandleDeleteMembership)

	// VIEW / EDIT / DELETE
	r.Get("/{id}", h.ServeGroup)
	r.Put("/{id}", h.HandleEditGroup)
	r.Patch("/{id}", h.HandleEditGroup)
	r.Delete("/{id}", h.HandleDeleteGroup)

	// MEMBERS of one group
	r.Get("/{id}/members", h.ServeGroupMembers)
	r.Post("/{id}/members", h.HandleAddMember)

	return r
}
