// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/phonebook/internal/app/store/audit"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/paging"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
)

type eventPage struct {
	Items []audit.Event `json:"items"`
	Total int64         `json:"total"`
	Skip  int64         `json:"skip"`
	Limit int64         `json:"limit"`
}

func parseDay(r *http.Request, name string) (*time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, apperr.Validation("%s must be a YYYY-MM-DD date", name)
	}
	return &t, nil
}

// ServeList handles GET /audit-events, newest first.
//
// Filters: category, event_type, entity, member_id, start_date, end_date
// (inclusive calendar days, UTC), skip, limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, err := paging.Parse(r)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		Entity:    strings.TrimSpace(q.Get("entity")),
		Limit:     page.Limit,
		Offset:    page.Skip,
	}
	if f.MemberID, err = jsonio.QueryID(r, "member_id"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if f.StartTime, err = parseDay(r, "start_date"); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	end, err := parseDay(r, "end_date")
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if end != nil {
		endOfDay := end.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit.list")
	defer cancel()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, f)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, eventPage{Items: events, Total: total, Skip: page.Skip, Limit: page.Limit})
}
