// internal/app/features/members/list.go
package members

import (
	"net/http"

	"github.com/dalemusser/phonebook/internal/app/projection"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
)

// ServeList handles GET /members?institution_id=&is_active=&skip=&limit=.
//
// The response is {items, total, skip, limit}; total counts every member
// matching the filter, not just the page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var f memberstore.Filter
	if f.InstitutionID, err = jsonio.QueryID(r, "institution_id"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if f.IsActive, err = jsonio.QueryBool(r, "is_active"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "members.list")
	defer cancel()

	items, err := h.Members.List(ctx, f, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	total, err := h.Members.Count(ctx, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, projection.NewMemberPage(items, total, page))
}
