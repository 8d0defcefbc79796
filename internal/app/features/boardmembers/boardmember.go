// internal/app/features/boardmembers/boardmember.go
package boardmembers

import (
	"context"
	"net/http"

	boardstore "github.com/dalemusser/phonebook/internal/app/store/boardmembers"
	"github.com/dalemusser/phonebook/internal/app/store/refs"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/patch"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

func (h *Handler) writeView(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, bm models.InstitutionalBoardMember) {
	v, err := h.Views.BoardMember(ctx, bm)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, status, v)
}

func (h *Handler) ServeBoardMember(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "boardmembers.get")
	defer cancel()

	bm, err := h.Boards.Get(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.writeView(ctx, w, r, http.StatusOK, bm)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in boardstore.Input
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "boardmembers.create")
	defer cancel()

	bm, err := h.Boards.Create(ctx, in)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EntityCreated(ctx, r, refs.BoardMembers, bm.ID, map[string]string{"board_type": string(bm.BoardType)})
	h.writeView(ctx, w, r, http.StatusCreated, bm)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var p boardstore.Patch
	if err := jsonio.Decode(w, r, &p); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "boardmembers.update")
	defer cancel()

	bm, err := h.Boards.Update(ctx, id, p)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if fields := patch.Present(p); len(fields) > 0 {
		h.Audit.EntityUpdated(ctx, r, refs.BoardMembers, id, fields)
	}
	h.writeView(ctx, w, r, http.StatusOK, bm)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "boardmembers.delete")
	defer cancel()

	ok, err := h.Boards.Delete(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if !ok {
		jsonio.Error(w, r, h.Log, apperr.NotFound("board member %d not found", id))
		return
	}
	h.Audit.EntityDeleted(ctx, r, refs.BoardMembers, id)
	jsonio.NoContent(w)
}
