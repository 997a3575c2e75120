package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auth-service/internal/model"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuerRejectsSharedSecret(t *testing.T) {
	_, err := NewTokenIssuer("same", "same", time.Minute, time.Hour)
	require.Error(t, err)

	_, err = NewTokenIssuer("", "refresh", time.Minute, time.Hour)
	require.Error(t, err)
}

func TestIssuePairRequiresUserID(t *testing.T) {
	issuer := newTestIssuer(t)

	_, err := issuer.IssuePair(model.User{Email: "a@x.com"})
	require.Error(t, err)
}

func TestIssuePairDefaultsRole(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair(model.User{ID: "u1", Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, pair.User.Role)

	claims, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, claims.Role)
}

func TestParseEnforcesTokenType(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair(model.User{ID: "u1", Role: model.RoleAdmin})
	require.NoError(t, err)

	// An access token is not a refresh token and vice versa, even before
	// the signing keys are considered.
	_, err = issuer.ParseRefresh(pair.AccessToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = issuer.ParseAccess(pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	claims, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, model.RoleAdmin, claims.Role)
	require.NotEmpty(t, claims.TokenID)

	refreshClaims, err := issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "u1", refreshClaims.UserID)
}

func TestDistinctSecretsDoNotCrossVerify(t *testing.T) {
	issuer := newTestIssuer(t)

	// Same TTLs and claims layout, but swapped secrets: nothing issued by
	// one issuer may verify under the other's keys.
	swapped, err := NewTokenIssuer("refresh-secret", "access-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	pair, err := issuer.IssuePair(model.User{ID: "u1"})
	require.NoError(t, err)

	_, err = swapped.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = swapped.ParseRefresh(pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	expired, err := NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	require.NoError(t, err)

	pair, err := expired.IssuePair(model.User{ID: "u1"})
	require.NoError(t, err)

	_, err = expired.ParseRefresh(pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = expired.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t)

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, err := issuer.ParseAccess(token)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	}
}

func TestFingerprintIsStableAndOpaque(t *testing.T) {
	require.Equal(t, Fingerprint("token"), Fingerprint("token"))
	require.NotEqual(t, Fingerprint("token"), Fingerprint("token2"))
	require.Len(t, Fingerprint("token"), 64)
	require.NotContains(t, Fingerprint("token"), "token")
}
