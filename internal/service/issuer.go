package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auth-service/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenIssuer mints and verifies the access/refresh token pair. Access and
// refresh tokens are signed with distinct secrets so leaking one key cannot
// forge the other token type. Issuance has no side effects; persistence of
// the refresh fingerprint is the caller's job.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenIssuer(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}

	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

func (i *TokenIssuer) IssuePair(user model.User) (model.TokenPair, error) {
	if user.ID == "" {
		return model.TokenPair{}, fmt.Errorf("user id is required for token issuance")
	}

	role := user.Role
	if role == "" {
		role = model.RoleUser
	}

	now := time.Now().UTC()

	accessToken, err := signToken(i.accessSecret, jwt.MapClaims{
		"sub":  user.ID,
		"role": role,
		"typ":  tokenTypeAccess,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(i.accessTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := signToken(i.refreshSecret, jwt.MapClaims{
		"sub": user.ID,
		"typ": tokenTypeRefresh,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(i.refreshTTL).Unix(),
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(i.accessTTL.Seconds()),
		User:         model.Profile{ID: user.ID, Email: user.Email, Role: role},
	}, nil
}

func (i *TokenIssuer) ParseAccess(tokenString string) (*model.AuthClaims, error) {
	return parseToken(tokenString, i.accessSecret, tokenTypeAccess)
}

func (i *TokenIssuer) ParseRefresh(tokenString string) (*model.AuthClaims, error) {
	return parseToken(tokenString, i.refreshSecret, tokenTypeRefresh)
}

// RefreshTTL exposes the refresh token lifetime for cookie max-age and
// store expiry settings.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func signToken(secret []byte, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, model.ErrInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrInvalidToken
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != expectedType {
		return nil, model.ErrInvalidToken
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, model.ErrInvalidToken
	}

	return claims, nil
}

// Fingerprint is the value mirrored into the session store: the hex SHA-256
// of the raw refresh token. The store never sees the token itself.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
