// internal/app/features/conferences/list.go
package conferences

import (
	"net/http"

	"github.com/dalemusser/phonebook/internal/app/projection"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
)

// ServeList handles GET /conferences. Entries are lite; fetch one
// conference for its talks.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "conferences.list")
	defer cancel()

	confs, err := h.Conferences.List(ctx, page)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, projection.ConferenceLites(confs))
}
