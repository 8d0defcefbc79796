// internal/app/features/boardmembers/list.go
package boardmembers

import (
	"net/http"

	boardstore "github.com/dalemusser/phonebook/internal/app/store/boardmembers"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/phonebook/internal/domain/models"
)

func parseFilter(r *http.Request) (boardstore.Filter, error) {
	var f boardstore.Filter
	if raw := r.URL.Query().Get("board_type"); raw != "" {
		bt, err := models.ParseBoardType(raw)
		if err != nil {
			return f, apperr.Validation("%v", err)
		}
		f.BoardType = bt
	}
	var err error
	if f.MemberID, err = jsonio.QueryID(r, "member_id"); err != nil {
		return f, err
	}
	if f.InstitutionID, err = jsonio.QueryID(r, "institution_id"); err != nil {
		return f, err
	}
	if f.RoleID, err = jsonio.QueryID(r, "role_id"); err != nil {
		return f, err
	}
	return f, nil
}

// ServeList handles GET /board-members?board_type=&member_id=&institution_id=&role_id=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "boardmembers.list")
	defer cancel()

	seats, err := h.Boards.List(ctx, f, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	views, err := h.Views.BoardMembers(ctx, seats)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, views)
}
