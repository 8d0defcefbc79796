// internal/app/features/userauth/login.go
package userauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/jsonio"
	"github.com/dalemusser/phonebook/internal/app/system/sessiontoken"
	"github.com/dalemusser/phonebook/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /user/login                                                              |
| Starts the OIDC flow: state, nonce and PKCE verifier go into a short-lived   |
| signed cookie, the browser goes to the provider.                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := h.returnTo(query.Get(r, "redirect_url"))

	flow, err := h.State.Begin(w, r, ret)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upstream(), h.Log, "userauth.login")
	defer cancel()

	dest, err := h.Provider.AuthCodeURL(ctx, flow)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	h.Log.Debug("starting oidc login", zap.String("return_url", ret))
	http.Redirect(w, r, dest, http.StatusFound)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /user/callback                                                           |
| Exchanges the code, resolves or provisions the member, issues the session    |
| token cookie and redirects to the return URL saved at login.                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.Log.Warn("identity provider returned an error",
			zap.String("error", e),
			zap.String("description", q.Get("error_description")))
		h.fail(w, r, outcomeDenied, "", apperr.WithCode(apperr.Unauthorized("login was denied by the identity provider"), "login_denied"))
		return
	}

	flow, err := h.State.Consume(w, r, q.Get("state"))
	if err != nil {
		h.fail(w, r, outcomeBadState, "", err)
		return
	}
	code := q.Get("code")
	if code == "" {
		h.fail(w, r, outcomeBadState, "", apperr.WithCode(apperr.Validation("authorization code is missing"), "missing_code"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upstream(), h.Log, "userauth.exchange")
	defer cancel()

	claims, err := h.Provider.Exchange(ctx, code, flow)
	if err != nil {
		h.fail(w, r, outcomeFailed, "", err)
		return
	}
	claims.Email = strings.TrimSpace(claims.Email)
	if claims.Subject == "" || claims.Email == "" {
		h.fail(w, r, outcomeMissing, claims.Email,
			apperr.WithCode(apperr.Validation("identity provider did not supply the sub and email claims"), "missing_claims"))
		return
	}

	dbctx, dbcancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "userauth.resolve")
	defer dbcancel()

	m, err := h.resolveMember(dbctx, r, claims)
	if err != nil {
		h.fail(w, r, outcomeError, claims.Email, err)
		return
	}
	if !m.IsActive {
		h.Metrics.ObserveLogin(outcomeInactive)
		h.AuditLog.LoginFailedInactive(dbctx, r, m.ID, claims.Subject, m.Email)
		h.Log.Info("login refused for inactive member", zap.Int64("member_id", m.ID))
		jsonio.Error(w, r, h.Log, apperr.WithCode(apperr.Forbidden("member is inactive"), "member_inactive"))
		return
	}

	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if _, err := h.Auth.Issue(w, sessiontoken.Identity{
		Subject: claims.Subject,
		Email:   m.Email,
		Name:    name,
		IsAdmin: h.Auth.IsAdmin(m.Email),
	}); err != nil {
		h.fail(w, r, outcomeError, m.Email, err)
		return
	}

	h.Metrics.ObserveLogin(outcomeOK)
	h.AuditLog.LoginSuccess(dbctx, r, m.ID, claims.Subject, m.Email)
	h.Log.Info("member logged in",
		zap.Int64("member_id", m.ID),
		zap.String("sub", claims.Subject))

	http.Redirect(w, r, flow.ReturnURL, http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, outcome, email string, err error) {
	h.Metrics.ObserveLogin(outcome)
	var ae *apperr.Error
	reason := outcome
	if errors.As(err, &ae) {
		reason = ae.Message
	}
	h.AuditLog.LoginFailed(r.Context(), r, email, reason)
	jsonio.Error(w, r, h.Log, err)
}
