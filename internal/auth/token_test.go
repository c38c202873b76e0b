package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apricityDigital/attendease-backend/internal/services/authz"
)

func scopeOf(cities ...int64) authz.CityScope {
	return authz.CityScope{Cities: cities}
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	t.Run("round trip", func(t *testing.T) {
		token, err := issuer.Issue(42, "supervisor")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "supervisor", claims.Role)
		assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, err := NewTokenIssuer("other-secret").Issue(42, "user")
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		claims := Claims{
			UserID: 42,
			Role:   "user",
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned algorithm rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestExtractToken(t *testing.T) {
	newRequest := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	}

	t.Run("no credential", func(t *testing.T) {
		_, err := ExtractToken(newRequest())
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("cookie wins over everything", func(t *testing.T) {
		r := newRequest()
		r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")
		r.Header.Set("x-access-token", "from-x-header")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", token)
	})

	t.Run("bearer header", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("Authorization", "Bearer from-header")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "from-header", token)
	})

	t.Run("authorization without bearer prefix ignored", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		r.Header.Set("x-access-token", "fallback")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "fallback", token)
	})

	t.Run("x-access-token header", func(t *testing.T) {
		r := newRequest()
		r.Header.Set("x-access-token", "from-x-header")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "from-x-header", token)
	})

	t.Run("query parameter is last resort", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me?token=from-query", nil)

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "from-query", token)
	})

	t.Run("empty cookie falls through", func(t *testing.T) {
		r := newRequest()
		r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: ""})
		r.Header.Set("x-access-token", "fallback")

		token, err := ExtractToken(r)
		require.NoError(t, err)
		assert.Equal(t, "fallback", token)
	})
}

func TestPermissionScopeContext(t *testing.T) {
	ctx := context.Background()

	_, ok := GetPermissionScope(ctx, "attendance:view")
	assert.False(t, ok)

	ctx = SetPermissionScope(ctx, "attendance:view", scopeOf(3, 5))
	scope, ok := GetPermissionScope(ctx, "attendance:view")
	require.True(t, ok)
	assert.ElementsMatch(t, []int64{3, 5}, scope.Cities)

	// Writing a second key must not mutate the bag seen by the first context.
	child := SetPermissionScope(ctx, "employee:view", scopeOf(9))
	_, ok = GetPermissionScope(ctx, "employee:view")
	assert.False(t, ok)
	_, ok = GetPermissionScope(child, "employee:view")
	assert.True(t, ok)
}
