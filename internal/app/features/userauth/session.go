// internal/app/features/userauth/session.go
package userauth

import (
	"net/http"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
)

type checkAuthResponse struct {
	Authenticated bool       `json:"authenticated"`
	Sub           string     `json:"sub,omitempty"`
	Email         string     `json:"email,omitempty"`
	Name          string     `json:"name,omitempty"`
	IsAdmin       bool       `json:"is_admin,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ServeCheckAuth handles GET /user/check-auth. A missing or invalid token
// is reported as authenticated=false, never as an error.
func (h *Handler) ServeCheckAuth(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.Authenticate(r)
	if err != nil {
		jsonio.Write(w, http.StatusOK, checkAuthResponse{Authenticated: false})
		return
	}
	out := checkAuthResponse{
		Authenticated: true,
		Sub:           u.Subject,
		Email:         u.Email,
		Name:          u.Name,
		IsAdmin:       u.IsAdmin,
	}
	if !u.ExpiresAt.IsZero() {
		out.ExpiresAt = &u.ExpiresAt
	}
	jsonio.Write(w, http.StatusOK, out)
}

// HandleLogout handles POST /user/logout. Tokens are stateless, so logout
// only clears the cookie; a copied token stays valid until it expires.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var sub, email string
	if u, err := h.Auth.Authenticate(r); err == nil {
		sub, email = u.Subject, u.Email
	}
	h.Auth.Clear(w)
	h.AuditLog.Logout(r.Context(), r, sub, email)
	jsonio.Write(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
