package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrTokenSigning = errors.New("failed to sign token")
)

// IsTokenError reports whether err is one of the token failures above, as
// opposed to a storage failure hit while validating.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrRevokedToken) ||
		errors.Is(err, ErrTokenSigning)
}

// Claims is the payload carried by every bearer and verification token.
// Purpose is only set on verification links, which never act as bearer
// tokens.
type Claims struct {
	ID        string    `json:"jti"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Purpose   string    `json:"purpose,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Signer creates and reads tokens in one wire format.
// Implementations include JWTSigner (HS256) and PasetoSigner (v4.local).
type Signer interface {
	// Sign issues a token for claims that expires after ttl. ID, IssuedAt
	// and ExpiresAt are filled in by the signer.
	Sign(claims Claims, ttl time.Duration) (string, error)
	// Verify checks integrity and expiry.
	Verify(token string) (*Claims, error)
	// VerifySignature checks integrity only; expired tokens pass.
	VerifySignature(token string) (*Claims, error)
	// Decode reads claims without checking integrity or expiry.
	Decode(token string) (*Claims, error)
}
