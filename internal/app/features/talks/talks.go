// internal/app/features/talks/talks.go
package talks

import (
	"context"
	"net/http"

	"github.com/dalemusser/phonebook/internal/app/projection"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	talkstore "github.com/dalemusser/phonebook/internal/app/store/talks"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

func (h *Handler) writeFull(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, t models.Talk) {
	full, err := h.Views.Talk(ctx, t)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, full)
}

// ServeList handles GET /talks?conference_id=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	confID, err := jsonio.QueryID(r, "conference_id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "talks.list")
	defer cancel()

	ts, err := h.Talks.List(ctx, talkstore.Filter{ConferenceID: confID}, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, projection.TalkLites(ts))
}

func (h *Handler) ServeTalk(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "talks.get")
	defer cancel()

	t, err := h.Talks.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeFull(ctx, w, r, http.StatusOK, t)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in talkstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talks.create")
	defer cancel()

	t, err := h.Talks.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EntityCreated(ctx, r, refs.Talks, t.ID, map[string]string{"title": t.Title})
	h.writeFull(ctx, w, r, http.StatusCreated, t)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p talkstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talks.update")
	defer cancel()

	t, err := h.Talks.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.Audit.EntityUpdated(ctx, r, refs.Talks, id, fields)
	}
	h.writeFull(ctx, w, r, http.StatusOK, t)
}

// HandleDelete handles DELETE /talks/{id}; 409 while assignments remain.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talks.delete")
	defer cancel()

	ok, err := h.Talks.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("talk %d not found", id))
		return
	}
	h.Audit.EntityDeleted(ctx, r, refs.Talks, id)
	jsonio.NoContent(w)
}
