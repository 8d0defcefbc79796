// internal/app/features/members/member.go
package members

import (
	"context"
	"net/http"

	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
	"go.uber.org/zap"
)

func (h *Handler) writeFull(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, m models.Member) {
	full, err := h.Views.Member(ctx, m)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, full)
}

// ServeMember handles GET /members/{id}. The institution is embedded in
// lite form.
func (h *Handler) ServeMember(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.get")
	defer cancel()

	m, err := h.Members.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeFull(ctx, w, r, http.StatusOK, m)
}

// HandleCreate handles POST /members.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in memberstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.create")
	defer cancel()

	m, err := h.Members.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("member created", zap.Int64("member_id", m.ID), zap.Int64("institution_id", m.InstitutionID))
	h.AuditLog.EntityCreated(ctx, r, refs.Members, m.ID, map[string]string{"email": m.Email})
	h.writeFull(ctx, w, r, http.StatusCreated, m)
}

// HandleUpdate handles PUT and PATCH /members/{id}. Moving a member to a
// different institution appends the old affiliation to the history.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p memberstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.update")
	defer cancel()

	m, err := h.Members.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.AuditLog.EntityUpdated(ctx, r, refs.Members, id, fields)
	}
	h.writeFull(ctx, w, r, http.StatusOK, m)
}

// HandleDelete handles DELETE /members/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.delete")
	defer cancel()

	ok, err := h.Members.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("member %d not found", id))
		return
	}
	h.Log.Info("member deleted", zap.Int64("member_id", id))
	h.AuditLog.EntityDeleted(ctx, r, refs.Members, id)
	jsonio.NoContent(w)
}

// ServeHistory handles GET /members/{id}/history.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "members.history")
	defer cancel()

	if _, err := h.Members.Get(ctx, id); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	rows, err := h.History.ListByMember(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	views, err := h.Views.History(ctx, rows)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, views)
}
