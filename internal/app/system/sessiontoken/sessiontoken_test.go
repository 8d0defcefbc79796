package sessiontoken

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret-0123456789abcdef"

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := New(testSecret, "HS256", time.Hour)
	require.NoError(t, err)
	return iss
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New("", "HS256", time.Hour)
	assert.Error(t, err)

	_, err = New(testSecret, "RS256", time.Hour)
	assert.Error(t, err)

	iss, err := New(testSecret, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, iss.TTL())
}

func TestIssueVerify(t *testing.T) {
	iss := newIssuer(t)
	raw, exp, err := iss.Issue(Identity{Subject: "http://cilogon.org/serverA/users/1", Email: "x@y.com", Name: "X Y", IsAdmin: true})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "http://cilogon.org/serverA/users/1", claims.Subject)
	assert.Equal(t, "x@y.com", claims.Email)
	assert.Equal(t, "X Y", claims.Name)
	assert.True(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := New("a-completely-different-secret-value", "HS256", time.Hour)
	require.NoError(t, err)
	raw, _, err := other.Issue(Identity{Subject: "s", Email: "e@x.org"})
	require.NoError(t, err)

	_, err = newIssuer(t).Verify(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	claims := Claims{
		Email: "e@x.org",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "s",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	cases := map[string]jwt.SigningMethod{
		"HS384": jwt.SigningMethodHS384,
		"HS512": jwt.SigningMethodHS512,
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := jwt.NewWithClaims(m, claims).SignedString([]byte(testSecret))
			require.NoError(t, err)
			_, err = newIssuer(t).Verify(raw)
			assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
		})
	}

	t.Run("none", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = newIssuer(t).Verify(raw)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})
}

func TestVerify_Expired(t *testing.T) {
	iss := newIssuer(t)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := iss.Issue(Identity{Subject: "s", Email: "e@x.org"})
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(raw)
	require.Error(t, err)
	assert.Equal(t, 401, apperr.Status(err))
	assert.Equal(t, "token_expired", apperr.Code(err))
}

func TestVerify_MissingExpiry(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "s"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newIssuer(t).Verify(raw)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestVerify_Garbage(t *testing.T) {
	iss := newIssuer(t)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := iss.Verify(raw)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized), raw)
	}
}
