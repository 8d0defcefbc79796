// internal/app/features/conferences/conference.go
package conferences

import (
	"context"
	"net/http"

	conferencestore "github.com/dalemusser/phonebook/internal/app/store/conferences"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

func (h *Handler) writeFull(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, c models.Conference) {
	full, err := h.Views.Conference(ctx, c)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, full)
}

// ServeConference handles GET /conferences/{id}.
func (h *Handler) ServeConference(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "conferences.get")
	defer cancel()

	c, err := h.Conferences.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeFull(ctx, w, r, http.StatusOK, c)
}

// HandleCreate handles POST /conferences.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in conferencestore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "conferences.create")
	defer cancel()

	c, err := h.Conferences.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EntityCreated(ctx, r, refs.Conferences, c.ID, map[string]string{"name": c.Name})
	h.writeFull(ctx, w, r, http.StatusCreated, c)
}

// HandleUpdate handles PUT and PATCH /conferences/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p conferencestore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "conferences.update")
	defer cancel()

	c, err := h.Conferences.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.Audit.EntityUpdated(ctx, r, refs.Conferences, id, fields)
	}
	h.writeFull(ctx, w, r, http.StatusOK, c)
}

// HandleDelete handles DELETE /conferences/{id}; 409 while talks remain.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "conferences.delete")
	defer cancel()

	ok, err := h.Conferences.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("conference %d not found", id))
		return
	}
	h.Audit.EntityDeleted(ctx, r, refs.Conferences, id)
	jsonio.NoContent(w)
}
