package verification

import (
	"time"

	"github.com/google/uuid"
)

// Type scopes a verification to the action it authorizes.
type Type string

const (
	TypeEmail    Type = "email"
	TypePassword Type = "password"
)

// Verification is a single-use token linking a user to one pending action.
type Verification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Type      Type
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the verification can no longer be redeemed.
func (v *Verification) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
