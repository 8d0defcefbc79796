// Package sessiontoken mints and verifies the HS256 tokens carried in the
// access_token cookie.
package sessiontoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Algorithm is the only signing method issued or accepted.
const Algorithm = "HS256"

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = time.Hour

// Claims is the token payload.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Identity is what a token is minted for.
type Identity struct {
	Subject string
	Email   string
	Name    string
	IsAdmin bool
}

// Issuer signs and verifies tokens with a single shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New validates the configuration once at startup. Only HS256 is supported.
func New(secret, algorithm string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("sessiontoken: signing secret is empty")
	}
	if algorithm != "" && algorithm != Algorithm {
		return nil, fmt.Errorf("sessiontoken: unsupported algorithm %q (only %s)", algorithm, Algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of newly issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for id that expires TTL from now.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:   id.Email,
		Name:    id.Name,
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses raw and returns its claims. Any failure (bad signature,
// other algorithm, expiry, missing subject) is an Unauthorized error.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, apperr.Unauthorized("not authenticated")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.WithCode(apperr.Unauthorized("token has expired"), "token_expired")
		}
		return nil, apperr.Unauthorized("invalid token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apperr.Unauthorized("invalid token")
	}
	return claims, nil
}
