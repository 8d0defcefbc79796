// Package oauthstate keeps the per-login OAuth values (state, nonce, PKCE
// verifier, return URL) in a signed and encrypted short-lived cookie, so the
// server holds nothing between /user/login and /user/callback.
package oauthstate

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/oauth2"
)

const (
	DefaultCookieName = "phonebook-login"
	TTL               = 10 * time.Minute

	keyState    = "state"
	keyNonce    = "nonce"
	keyVerifier = "verifier"
	keyReturn   = "return_url"
)

// Flow is one in-progress login.
type Flow struct {
	State     string
	Nonce     string
	Verifier  string
	ReturnURL string
}

// Store reads and writes the login cookie.
type Store struct {
	name    string
	cookies *sessions.CookieStore
}

// New derives independent hash and encryption keys from secret.
func New(secret, cookieName string) (*Store, error) {
	if len(secret) < 16 {
		return nil, errors.New("oauthstate: session key must be at least 16 characters")
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	keys := make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("phonebook oauth login state")), keys); err != nil {
		return nil, fmt.Errorf("oauthstate: derive keys: %w", err)
	}

	cs := sessions.NewCookieStore(keys[:32], keys[32:])
	cs.MaxAge(int(TTL.Seconds()))
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.Secure = true
	cs.Options.SameSite = http.SameSiteLaxMode

	return &Store{name: cookieName, cookies: cs}, nil
}

// Begin starts a login: fresh state, nonce and verifier are generated and
// written to the cookie.
func (s *Store) Begin(w http.ResponseWriter, r *http.Request, returnURL string) (*Flow, error) {
	// A stale or undecodable cookie is simply replaced.
	sess, _ := s.cookies.New(r, s.name)

	f := &Flow{
		State:     uuid.NewString(),
		Nonce:     uuid.NewString(),
		Verifier:  oauth2.GenerateVerifier(),
		ReturnURL: returnURL,
	}
	sess.Values[keyState] = f.State
	sess.Values[keyNonce] = f.Nonce
	sess.Values[keyVerifier] = f.Verifier
	sess.Values[keyReturn] = f.ReturnURL

	if err := sess.Save(r, w); err != nil {
		return nil, fmt.Errorf("oauthstate: save: %w", err)
	}
	return f, nil
}

// Consume reads the flow back, checks it against the state echoed by the
// provider, and expires the cookie. It fails with Unauthorized when the
// cookie is missing, expired, tampered with, or for a different state.
func (s *Store) Consume(w http.ResponseWriter, r *http.Request, state string) (*Flow, error) {
	sess, err := s.cookies.Get(r, s.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return nil, apperr.WithCode(apperr.Unauthorized("login session expired or tampered with"), "invalid_state")
		}
		return nil, apperr.WithCode(apperr.Unauthorized("login session unreadable"), "invalid_state")
	}
	if sess.IsNew {
		return nil, apperr.WithCode(apperr.Unauthorized("login session missing or expired"), "invalid_state")
	}

	f := &Flow{
		State:     str(sess.Values[keyState]),
		Nonce:     str(sess.Values[keyNonce]),
		Verifier:  str(sess.Values[keyVerifier]),
		ReturnURL: str(sess.Values[keyReturn]),
	}

	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return nil, fmt.Errorf("oauthstate: clear: %w", err)
	}

	if f.State == "" || subtle.ConstantTimeCompare([]byte(f.State), []byte(state)) != 1 {
		return nil, apperr.WithCode(apperr.Unauthorized("login state mismatch"), "invalid_state")
	}
	return f, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
