// internal/app/features/institutions/list.go
package institutions

import (
	"net/http"
	"strings"

	"github.com/dalemusser/phonebook/internal/app/projection"
	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
)

// ServeList handles GET /institutions?country=&is_active=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	f := institutionstore.Filter{Country: strings.TrimSpace(r.URL.Query().Get("country"))}
	if f.IsActive, err = jsonio.QueryBool(r, "is_active"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institutions.list")
	defer cancel()

	insts, err := h.Institutions.List(ctx, f, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, projection.InstitutionLites(insts))
}

// ServeMembers handles GET /institutions/{id}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.IDParam(r, "id")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institutions.members")
	defer cancel()

	if _, err := h.Institutions.Get(ctx, id); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ms, err := h.Members.ByInstitution(ctx, id)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, projection.MemberLites(ms))
}
