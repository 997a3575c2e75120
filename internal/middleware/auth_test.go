package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auth-service/internal/model"
	"auth-service/internal/service"
)

func newMiddlewareFixture(t *testing.T) (*AuthMiddleware, *service.TokenIssuer) {
	t.Helper()

	issuer, err := service.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	return NewAuthMiddleware(issuer), issuer
}

func claimsEcho(t *testing.T) (http.Handler, *model.AuthClaims) {
	t.Helper()

	captured := &model.AuthClaims{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		*captured = *claims
		w.WriteHeader(http.StatusOK)
	}), captured
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	m, _ := newMiddlewareFixture(t)
	next, _ := claimsEcho(t)

	for _, header := range []string{"", "Token abc", "Bearer", "bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rec := httptest.NewRecorder()
		m.RequireAuth(next).ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	t.Parallel()

	m, issuer := newMiddlewareFixture(t)
	next, _ := claimsEcho(t)

	pair, err := issuer.IssuePair(model.User{ID: "u1"})
	require.NoError(t, err)

	// A refresh token presented as a bearer credential must not pass.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)

	rec := httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthPassesClaims(t *testing.T) {
	t.Parallel()

	m, issuer := newMiddlewareFixture(t)
	next, captured := claimsEcho(t)

	pair, err := issuer.IssuePair(model.User{ID: "u1", Role: model.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	rec := httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", captured.UserID)
	require.Equal(t, model.RoleAdmin, captured.Role)
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	m, issuer := newMiddlewareFixture(t)

	handler := m.RequireAuth(m.RequireRoles(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	adminPair, err := issuer.IssuePair(model.User{ID: "u1", Role: model.RoleAdmin})
	require.NoError(t, err)
	userPair, err := issuer.IssuePair(model.User{ID: "u2", Role: model.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userPair.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
