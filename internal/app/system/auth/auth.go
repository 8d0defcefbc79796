// Package auth carries the signed-in user through a request: it reads the
// access_token cookie, verifies it, and exposes the claims to handlers.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/sessiontoken"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

// CookieName is the session cookie holding the signed token.
const CookieName = "access_token"

// SessionUser is the verified identity attached to a request.
type SessionUser struct {
	Subject   string
	Email     string
	Name      string
	IsAdmin   bool
	ExpiresAt time.Time
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// Manager verifies session cookies and writes them after login.
type Manager struct {
	tokens *sessiontoken.Issuer
	admins map[string]struct{}
	log    *zap.Logger
}

// NewManager wires the token issuer and the admin email allow-list.
func NewManager(tokens *sessiontoken.Issuer, adminEmails []string, logger *zap.Logger) *Manager {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.TrimSpace(e); e != "" {
			admins[text.Fold(e)] = struct{}{}
		}
	}
	return &Manager{tokens: tokens, admins: admins, log: logger}
}

// IsAdmin reports whether email is on the admin list.
func (m *Manager) IsAdmin(email string) bool {
	_, ok := m.admins[text.Fold(strings.TrimSpace(email))]
	return ok
}

// Issue mints a token for id and sets it as the session cookie.
func (m *Manager) Issue(w http.ResponseWriter, id sessiontoken.Identity) (*SessionUser, error) {
	raw, exp, err := m.tokens.Issue(id)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(m.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return &SessionUser{Subject: id.Subject, Email: id.Email, Name: id.Name, IsAdmin: id.IsAdmin, ExpiresAt: exp}, nil
}

// Clear expires the session cookie. The token itself stays valid until its
// expiry; there is no server-side revocation.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate verifies the request's session cookie.
func (m *Manager) Authenticate(r *http.Request) (*SessionUser, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, apperr.Unauthorized("not authenticated")
	}
	claims, err := m.tokens.Verify(c.Value)
	if err != nil {
		return nil, err
	}
	u := &SessionUser{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
	}
	return u, nil
}

// RequireAuth rejects requests without a valid session with a 401 JSON body
// and otherwise stores the user in the request context.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := m.Authenticate(r)
		if err != nil {
			m.log.Debug("rejected unauthenticated request",
				zap.String("path", r.URL.Path),
				zap.String("reason", apperr.Message(err)))
			jsonio.Error(w, r, m.log, err)
			return
		}
		next.ServeHTTP(w, WithUser(r, u))
	})
}

// RequireAdmin rejects requests whose session user is not an admin with
// 403. It expects RequireAuth to have run first and answers 401 otherwise.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			jsonio.Error(w, r, m.log, apperr.Unauthorized("not authenticated"))
			return
		}
		if !u.IsAdmin {
			m.log.Info("admin route refused", zap.String("path", r.URL.Path), zap.String("email", u.Email))
			jsonio.Error(w, r, m.log, apperr.WithCode(apperr.Forbidden("administrator access required"), "admin_required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the user placed in context by RequireAuth.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithUser returns r carrying u. Tests use it to skip cookie handling.
func WithUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
