// internal/app/features/talkassignments/assignments.go
package talkassignments

import (
	"context"
	"net/http"
	"strconv"

	assignmentstore "github.com/dalemusser/phonebook/internal/app/store/assignments"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

func (h *Handler) writeView(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, ta models.TalkAssignment) {
	v, err := h.Views.Assignment(ctx, ta)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, v)
}

// ServeList handles GET /talk-assignments?talk_id=&member_id=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var f assignmentstore.Filter
	if f.TalkID, err = jsonio.QueryID(r, "talk_id"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if f.MemberID, err = jsonio.QueryID(r, "member_id"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talkassignments.list")
	defer cancel()

	rows, err := h.Assignments.List(ctx, f, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	views, err := h.Views.Assignments(ctx, rows)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, views)
}

func (h *Handler) ServeAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "talkassignments.get")
	defer cancel()

	ta, err := h.Assignments.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeView(ctx, w, r, http.StatusOK, ta)
}

// HandleCreate handles POST /talk-assignments. assignment_date defaults to
// today when omitted.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in assignmentstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talkassignments.create")
	defer cancel()

	ta, err := h.Assignments.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EntityCreated(ctx, r, refs.TalkAssignments, ta.ID, map[string]string{
		"talk_id":   strconv.FormatInt(ta.TalkID, 10),
		"member_id": strconv.FormatInt(ta.MemberID, 10),
	})
	h.writeView(ctx, w, r, http.StatusCreated, ta)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p assignmentstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talkassignments.update")
	defer cancel()

	ta, err := h.Assignments.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.Audit.EntityUpdated(ctx, r, refs.TalkAssignments, id, fields)
	}
	h.writeView(ctx, w, r, http.StatusOK, ta)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "talkassignments.delete")
	defer cancel()

	ok, err := h.Assignments.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("talk assignment %d not found", id))
		return
	}
	h.Audit.EntityDeleted(ctx, r, refs.TalkAssignments, id)
	jsonio.NoContent(w)
}
