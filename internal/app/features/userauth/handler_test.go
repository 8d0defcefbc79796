package userauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/phonebook/internal/app/features/userauth"
	institutionstore "github.com/dalemusser/phonebook/internal/app/store/institutions"
	memberstore "github.com/dalemusser/phonebook/internal/app/store/members"
	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/dalemusser/phonebook/internal/app/system/auth"
	"github.com/dalemusser/phonebook/internal/app/system/oauthstate"
	"github.com/dalemusser/phonebook/internal/app/system/sessiontoken"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeProvider struct {
	claims  userauth.Claims
	err     error
	urlErr  error
	lastURL string
}

func (f *fakeProvider) AuthCodeURL(_ context.Context, flow *oauthstate.Flow) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	f.lastURL = "https://idp.example.org/authorize?state=" + url.QueryEscape(flow.State)
	return f.lastURL, nil
}

func (f *fakeProvider) Exchange(_ context.Context, code string, _ *oauthstate.Flow) (*userauth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := f.claims
	return &c, nil
}

type env struct {
	router   http.Handler
	db       *mongo.Database
	provider *fakeProvider
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)

	tokens, err := sessiontoken.New("test-secret-0123456789", "HS256", time.Hour)
	if err != nil {
		t.Fatalf("sessiontoken.New: %v", err)
	}
	state, err := oauthstate.New("test-session-key-for-testing-only", "")
	if err != nil {
		t.Fatalf("oauthstate.New: %v", err)
	}
	fp := &fakeProvider{claims: userauth.Claims{
		Subject:    "http://cilogon.org/serverA/users/42",
		Email:      "ada@example.org",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		IdPName:    "Example University",
		IdP:        "https://idp.example.org/shibboleth",
	}}
	h := userauth.NewHandler(db,
		userauth.Config{FrontendURL: "https://phonebook.example.org", AllowedOrigins: []string{"https://docs.example.org"}},
		auth.NewManager(tokens, []string{"admin@example.org"}, zap.NewNop()),
		state, fp, nil, nil, zap.NewNop())
	return &env{router: userauth.Routes(h, nil), db: db, provider: fp}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login runs /user/login and returns the state cookie and state value.
func (e *env) login(t *testing.T, redirect string) (*http.Cookie, string) {
	t.Helper()
	target := "/login"
	if redirect != "" {
		target += "?redirect_url=" + url.QueryEscape(redirect)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	c := cookieNamed(rec, oauthstate.DefaultCookieName)
	if c == nil {
		t.Fatal("login did not set the state cookie")
	}
	return c, loc.Query().Get("state")
}

func (e *env) callback(t *testing.T, stateCookie *http.Cookie, state string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(stateCookie)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCallback_ProvisionsMemberAndIssuesCookie(t *testing.T) {
	e := newEnv(t)
	c, state := e.login(t, "/members/7")

	rec := e.callback(t, c, state)
	if rec.Code != http.StatusFound {
		t.Fatalf("callback status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "https://phonebook.example.org/members/7" {
		t.Errorf("Location = %q", got)
	}
	tok := cookieNamed(rec, auth.CookieName)
	if tok == nil || !tok.HttpOnly || !tok.Secure || tok.MaxAge != 3600 {
		t.Fatalf("unexpected access_token cookie: %+v", tok)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	m, ok, err := memberstore.New(e.db, zap.NewNop()).GetBySubject(ctx, "http://cilogon.org/serverA/users/42")
	if err != nil || !ok {
		t.Fatalf("member not provisioned: ok=%v err=%v", ok, err)
	}
	if m.FirstName != "Ada" || m.LastName != "Lovelace" || m.ExperimentalData["idp_name"] != "Example University" {
		t.Errorf("unexpected member: %+v", m)
	}
	inst, err := institutionstore.New(e.db, zap.NewNop()).Get(ctx, m.InstitutionID)
	if err != nil {
		t.Fatalf("institution: %v", err)
	}
	if inst.FullName != "Example University" || inst.Country != userauth.UnknownCountry || inst.EntityID != "https://idp.example.org/shibboleth" {
		t.Errorf("unexpected institution: %+v", inst)
	}

	// A second login reuses the member and the institution.
	c, state = e.login(t, "")
	if rec := e.callback(t, c, state); rec.Code != http.StatusFound {
		t.Fatalf("second callback status = %d", rec.Code)
	}
	n, _ := memberstore.New(e.db, zap.NewNop()).Count(ctx, memberstore.Filter{})
	if n != 1 {
		t.Errorf("expected 1 member after two logins, got %d", n)
	}
}

func TestCallback_DefaultInstitution(t *testing.T) {
	e := newEnv(t)
	e.provider.claims.IdPName = ""
	e.provider.claims.IdP = ""

	c, state := e.login(t, "")
	if rec := e.callback(t, c, state); rec.Code != http.StatusFound {
		t.Fatalf("callback status = %d, body %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, ok, err := institutionstore.New(e.db, zap.NewNop()).FindForIdP(ctx, "", institutionstore.DefaultName)
	if err != nil || !ok {
		t.Errorf("default institution not created: ok=%v err=%v", ok, err)
	}
}

func TestCallback_MissingEmail(t *testing.T) {
	e := newEnv(t)
	e.provider.claims.Email = ""

	c, state := e.login(t, "")
	rec := e.callback(t, c, state)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if cookieNamed(rec, auth.CookieName) != nil {
		t.Error("no session cookie expected")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, _ := memberstore.New(e.db, zap.NewNop()).Count(ctx, memberstore.Filter{})
	ni, _ := institutionstore.New(e.db, zap.NewNop()).Count(ctx, institutionstore.Filter{})
	if n != 0 || ni != 0 {
		t.Errorf("nothing should be created, got %d members and %d institutions", n, ni)
	}
}

func TestCallback_InactiveMember(t *testing.T) {
	e := newEnv(t)
	fx := testutil.NewFixtures(t, e.db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	inst := fx.CreateInstitution(ctx, "Example University")
	fx.CreateMemberWithSubject(ctx, "ada@example.org", inst.ID, "http://cilogon.org/serverA/users/42", false)

	c, state := e.login(t, "")
	rec := e.callback(t, c, state)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"member_inactive"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if cookieNamed(rec, auth.CookieName) != nil {
		t.Error("inactive member must not receive a session cookie")
	}
}

func TestCallback_LinksExistingMemberByEmail(t *testing.T) {
	e := newEnv(t)
	fx := testutil.NewFixtures(t, e.db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	inst := fx.CreateInstitution(ctx, "Lab A")
	existing := fx.CreateMember(ctx, "Ada@Example.org", inst.ID)

	c, state := e.login(t, "")
	if rec := e.callback(t, c, state); rec.Code != http.StatusFound {
		t.Fatalf("callback status = %d, body %s", rec.Code, rec.Body.String())
	}

	m, ok, err := memberstore.New(e.db, zap.NewNop()).GetBySubject(ctx, "http://cilogon.org/serverA/users/42")
	if err != nil || !ok {
		t.Fatalf("subject not linked: ok=%v err=%v", ok, err)
	}
	if m.ID != existing.ID || m.InstitutionID != inst.ID {
		t.Errorf("linked wrong member: %+v", m)
	}
}

func TestCallback_ProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"exchange rejected", apperr.WithCode(apperr.Unauthorized("authorization code was rejected"), "exchange_failed"), http.StatusUnauthorized},
		{"provider unreachable", apperr.Upstream(apperr.ErrUpstreamUnavailable, nil, "identity provider is unreachable"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.provider.err = tc.err
			c, state := e.login(t, "")
			if rec := e.callback(t, c, state); rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestCallback_BadState(t *testing.T) {
	e := newEnv(t)
	c, _ := e.login(t, "")
	if rec := e.callback(t, c, "forged"); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", "/callback?error=access_denied", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("denied status = %d, want 401", rec.Code)
	}
}

func TestLogin_ProviderUnreachable(t *testing.T) {
	e := newEnv(t)
	e.provider.urlErr = apperr.Upstream(apperr.ErrUpstreamUnavailable, nil, "identity provider is unreachable")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", "/login", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRedirectURL_OnlyAllowedOrigins(t *testing.T) {
	tests := []struct {
		redirect string
		want     string
	}{
		{"", "https://phonebook.example.org/"},
		{"/groups", "https://phonebook.example.org/groups"},
		{"https://docs.example.org/guide", "https://docs.example.org/guide"},
		{"https://evil.example.com/", "https://phonebook.example.org/"},
		{"//evil.example.com/", "https://phonebook.example.org/"},
		{"javascript:alert(1)", "https://phonebook.example.org/"},
	}
	for _, tt := range tests {
		e := newEnv(t)
		c, state := e.login(t, tt.redirect)
		rec := e.callback(t, c, state)
		if got := rec.Header().Get("Location"); got != tt.want {
			t.Errorf("redirect_url %q: Location = %q, want %q", tt.redirect, got, tt.want)
		}
	}
}

func TestCheckAuthAndLogout(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", "/check-auth", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"authenticated":false`) {
		t.Fatalf("anonymous check-auth: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/check-auth", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "not.a.jwt"})
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"authenticated":false`) {
		t.Fatalf("garbage token check-auth: %d %s", rec.Code, rec.Body.String())
	}

	c, state := e.login(t, "")
	tok := cookieNamed(e.callback(t, c, state), auth.CookieName)
	if tok == nil {
		t.Fatal("no access_token after callback")
	}

	req = httptest.NewRequest("GET", "/check-auth", nil)
	req.AddCookie(tok)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	body := rec.Body.String()
	if !strings.Contains(body, `"authenticated":true`) || !strings.Contains(body, `"email":"ada@example.org"`) {
		t.Errorf("check-auth body = %s", body)
	}

	req = httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(tok)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if cleared := cookieNamed(rec, auth.CookieName); cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("logout did not clear the cookie: %+v", cleared)
	}
}
