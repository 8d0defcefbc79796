// internal/app/features/groups/list.go
package groups

import (
	"net/http"

	"github.com/dalemusser/phonebook/internal/app/projection"
	groupstore "github.com/dalemusser/phonebook/internal/app/store/groups"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
)

// ServeGroupsList handles GET /groups?parent_group_id=&is_active=.
// Each entry is a full group: parent, subgroups and memberships.
func (h *Handler) ServeGroupsList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	var f groupstore.Filter
	if f.ParentGroupID, err = jsonio.QueryID(r, "parent_group_id"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if f.IsActive, err = jsonio.QueryBool(r, "is_active"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.list")
	defer cancel()

	gs, err := h.Groups.List(ctx, f, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	out := make([]projection.GroupFull, 0, len(gs))
	for _, g := range gs {
		full, err := h.Views.Group(ctx, g)
		if err != nil {
			jsonio.Error(w, r, h.Log, err)
			return
		}
		out = append(out, full)
	}
	jsonio.Write(w, http.StatusOK, out)
}
