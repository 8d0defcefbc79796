// internal/app/features/groups/group.go
package groups

import (
	"context"
	"net/http"

	groupstore "github.com/dalemusser/phonebook/internal/app/store/groups"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.uber.org/zap"
)

func (h *Handler) writeFull(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, g models.Group) {
	full, err := h.Views.Group(ctx, g)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, full)
}

// ServeGroup handles GET /groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.get")
	defer cancel()

	g, err := h.Groups.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeFull(ctx, w, r, http.StatusOK, g)
}

// HandleCreateGroup handles POST /groups.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var in groupstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.create")
	defer cancel()

	g, err := h.Groups.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.EntityCreated(ctx, r, refs.Groups, g.ID, map[string]string{"name": g.Name})
	h.writeFull(ctx, w, r, http.StatusCreated, g)
}

// HandleEditGroup handles PUT and PATCH /groups/{id}. Re-parenting that
// would make a group its own ancestor is rejected with code group_cycle.
func (h *Handler) HandleEditGroup(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p groupstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.update")
	defer cancel()

	g, err := h.Groups.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.AuditLog.EntityUpdated(ctx, r, refs.Groups, id, fields)
	}
	h.writeFull(ctx, w, r, http.StatusOK, g)
}

// HandleDeleteGroup handles DELETE /groups/{id}. Groups with members or
// subgroups are not deleted.
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.delete")
	defer cancel()

	ok, err := h.Groups.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("group %d not found", id))
		return
	}
	h.Log.Info("group deleted", zap.Int64("group_id", id))
	h.AuditLog.EntityDeleted(ctx, r, refs.Groups, id)
	jsonio.NoContent(w)
}
