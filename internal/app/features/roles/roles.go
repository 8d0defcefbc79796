// internal/app/features/roles/roles.go
package roles

import (
	"net/http"

	rolestore "github.com/dalemusser/phonebook/internal/app/store/roles"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeList handles GET /roles.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "roles.list")
	defer cancel()

	roles, err := h.Roles.List(ctx, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, roles)
}

// ServeRole handles GET /roles/{id}.
func (h *Handler) ServeRole(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "roles.get")
	defer cancel()

	role, err := h.Roles.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, role)
}

// HandleCreate handles POST /roles.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in rolestore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "roles.create")
	defer cancel()

	role, err := h.Roles.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EntityCreated(ctx, r, refs.Roles, role.ID, map[string]string{"name": role.Name})
	jsonio.Write(w, http.StatusCreated, role)
}

// HandleUpdate handles PUT and PATCH /roles/{id}. Both are partial.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p rolestore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "roles.update")
	defer cancel()

	role, err := h.Roles.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.Audit.EntityUpdated(ctx, r, refs.Roles, id, fields)
	}
	jsonio.Write(w, http.StatusOK, role)
}

// HandleDelete handles DELETE /roles/{id}. A role still referenced by any
// membership, board seat or talk assignment is a 409.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "roles.delete")
	defer cancel()

	ok, err := h.Roles.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("role %d not found", id))
		return
	}
	h.Log.Info("role deleted", zap.Int64("role_id", id))
	h.Audit.EntityDeleted(ctx, r, refs.Roles, id)
	jsonio.NoContent(w)
}
