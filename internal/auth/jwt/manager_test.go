package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/shopstock/stock-backend/internal/auth/jwt"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(expiry time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "stock-test",
	})
}

var shopUser = &actor.Actor{
	ID:       "u1",
	Username: "shop1",
	Email:    "shop1@example.com",
	Groups:   []string{actor.GroupShopUsers},
}

func TestIssueAndValidate(t *testing.T) {
	m := newManager(time.Hour)

	token, expiry, err := m.Issue(shopUser)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, shopUser, claims.Actor())
	assert.Equal(t, "stock-test", claims.Issuer)
}

func TestValidate_Rejects(t *testing.T) {
	t.Run("expired", func(t *testing.T) {
		m := newManager(-time.Minute)
		token, _, err := m.Issue(shopUser)
		require.NoError(t, err)

		_, err = m.ValidateAccessToken(token)
		assert.True(t, errors.Is(err, errors.ErrTokenExpired))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := newManager(time.Hour).Issue(shopUser)
		require.NoError(t, err)

		other := jwt.NewManager(&config.JWTConfig{Secret: "other", AccessExpiry: time.Hour})
		_, err = other.ValidateAccessToken(token)
		assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
	})

	t.Run("non HMAC signing method", func(t *testing.T) {
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, jwt.Claims{Username: "x"}).
			SignedString(gojwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = newManager(time.Hour).ValidateAccessToken(token)
		assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
	})

	t.Run("missing username", func(t *testing.T) {
		m := newManager(time.Hour)
		token, _, err := m.Issue(&actor.Actor{ID: "u1"})
		require.NoError(t, err)

		_, err = m.ValidateAccessToken(token)
		assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
	})
}

func TestMiddleware(t *testing.T) {
	m := newManager(time.Hour)
	var seen *actor.Actor
	h := m.Middleware(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = actor.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		token, _, err := m.Issue(shopUser)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rr := testutil.ExecuteRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		require.NotNil(t, seen)
		assert.Equal(t, "shop1", seen.Username)
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := testutil.ExecuteRequest(h, req)
			testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		})
	}
}
