// internal/app/features/userauth/redirect.go
package userauth

import (
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/pantry/urlutil"
)

func origin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// returnTo resolves the redirect_url given at login. Relative paths land on
// the frontend; absolute URLs are honoured only for allowed origins.
// Anything else falls back to the frontend root.
func (h *Handler) returnTo(raw string) string {
	home := h.frontend + "/"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return home
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return h.frontend + urlutil.SafeReturn(raw, "", "/")
	}
	if o := origin(raw); o != "" {
		if _, ok := h.origins[o]; ok {
			return raw
		}
	}
	return home
}
