package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/model"
)

// UserStore is the persistence capability for user records.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByGoogleSubject(ctx context.Context, subject string) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	LinkGoogleSubject(ctx context.Context, userID string, subject string) error
}

// SessionStore holds the single live refresh fingerprint per user. Swap is
// the compare-and-swap used during rotation; it is the only serialization
// point in the whole refresh path.
type SessionStore interface {
	Get(ctx context.Context, userID string) (string, error)
	Put(ctx context.Context, userID string, fingerprint string) error
	Swap(ctx context.Context, userID string, expected string, next string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	issuer   *TokenIssuer
	hasher   PasswordHasher
	codes    *exchangeCodes
}

func NewAuthService(users UserStore, sessions SessionStore, issuer *TokenIssuer, hasher PasswordHasher) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		hasher:   hasher,
		codes:    newExchangeCodes(),
	}
}

func (s *AuthService) Register(ctx context.Context, email string, password string) (model.Profile, error) {
	email = strings.TrimSpace(email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.Profile{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return model.Profile{}, model.ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.Profile{}, fmt.Errorf("create user: %w", err)
	}

	return model.Profile{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("find user: %w", err)
	}

	// Federated-only accounts have no password digest.
	if user.PasswordHash == "" {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	return s.establishSession(ctx, user)
}

// Refresh runs the rotation protocol: verify the presented token, compare
// it against the store's live fingerprint, mint a new pair, and swap the
// fingerprint. Re-presenting a rotated-away token fails with ErrStaleToken
// even while it is still cryptographically valid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.ErrStaleToken
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("find user: %w", err)
	}

	presented := Fingerprint(refreshToken)

	current, err := s.sessions.Get(ctx, user.ID)
	if errors.Is(err, model.ErrSessionNotFound) {
		return model.TokenPair{}, model.ErrStaleToken
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("get session: %w", err)
	}

	if current != presented {
		slog.Warn("refresh token superseded, possible replay", "user_id", user.ID, "jti", claims.TokenID)
		return model.TokenPair{}, model.ErrStaleToken
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}

	swapped, err := s.sessions.Swap(ctx, user.ID, presented, Fingerprint(pair.RefreshToken))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("swap session: %w", err)
	}
	if !swapped {
		// Lost the race against a concurrent rotation: exactly one of N
		// presenters of the same token wins.
		slog.Warn("refresh rotation lost compare-and-swap", "user_id", user.ID, "jti", claims.TokenID)
		return model.TokenPair{}, model.ErrStaleToken
	}

	return pair, nil
}

// Logout clears the caller's refresh session. A token that fails to parse
// identifies nobody, so there is nothing to clear and no error to report;
// the handler clears the cookie regardless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.sessions.Clear(ctx, claims.UserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// LoginFederated establishes a session for an identity already verified by
// a federated provider. A provider subject seen for the first time is
// linked to an existing account with the same email, or a new
// password-less account is created.
func (s *AuthService) LoginFederated(ctx context.Context, ext model.ExternalIdentity) (model.TokenPair, error) {
	if ext.Subject == "" {
		return model.TokenPair{}, fmt.Errorf("federated identity has no subject")
	}

	user, err := s.users.FindByGoogleSubject(ctx, ext.Subject)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, fmt.Errorf("find federated user: %w", err)
	}

	if errors.Is(err, model.ErrUserNotFound) {
		user, err = s.adoptFederatedIdentity(ctx, ext)
		if err != nil {
			return model.TokenPair{}, err
		}
	}

	return s.establishSession(ctx, user)
}

func (s *AuthService) adoptFederatedIdentity(ctx context.Context, ext model.ExternalIdentity) (model.User, error) {
	if ext.Email != "" {
		existing, err := s.users.FindByEmail(ctx, ext.Email)
		if err == nil {
			if err := s.users.LinkGoogleSubject(ctx, existing.ID, ext.Subject); err != nil {
				return model.User{}, fmt.Errorf("link federated identity: %w", err)
			}
			existing.GoogleSubject = ext.Subject
			return existing, nil
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return model.User{}, fmt.Errorf("find user by email: %w", err)
		}
	}

	now := time.Now().UTC()
	user := model.User{
		ID:            uuid.NewString(),
		Email:         strings.TrimSpace(ext.Email),
		GoogleSubject: ext.Subject,
		Role:          model.RoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("create federated user: %w", err)
	}
	return user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	return model.Profile{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// MintExchangeCode stores a freshly issued pair under a one-time code for
// the federated redirect. The code, not the access token, goes into the
// redirect URL.
func (s *AuthService) MintExchangeCode(pair model.TokenPair) string {
	return s.codes.mint(pair)
}

// RedeemExchangeCode swaps a one-time code for its token pair. A code can
// be redeemed exactly once and expires after a short window.
func (s *AuthService) RedeemExchangeCode(code string) (model.TokenPair, error) {
	pair, ok := s.codes.redeem(code)
	if !ok {
		return model.TokenPair{}, model.ErrInvalidToken
	}
	return pair, nil
}

// establishSession issues a pair and unconditionally installs its refresh
// fingerprint as the user's single live session. Login and the federated
// callback both land here; rotation goes through Refresh's compare-and-swap
// instead.
func (s *AuthService) establishSession(ctx context.Context, user model.User) (model.TokenPair, error) {
	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}

	if err := s.sessions.Put(ctx, user.ID, Fingerprint(pair.RefreshToken)); err != nil {
		return model.TokenPair{}, fmt.Errorf("store session: %w", err)
	}

	return pair, nil
}
