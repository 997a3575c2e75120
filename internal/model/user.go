package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	GoogleSubject string    `json:"-"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuthClaims is the verified payload of an access or refresh token.
type AuthClaims struct {
	UserID  string `json:"sub"`
	Role    string `json:"role"`
	Type    string `json:"typ"`
	TokenID string `json:"jti"`
}

type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenPair is the result of a single issuance. The refresh token travels
// only in the HTTP-only cookie, never in a response body, so it is excluded
// from JSON encoding.
type TokenPair struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"-"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
	User         Profile `json:"user"`
}

// ExternalIdentity is a user identity already verified by a federated
// provider. The handshake itself is opaque to the core.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
}
