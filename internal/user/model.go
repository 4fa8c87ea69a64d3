package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Lastname     string    `json:"lastname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateParams holds the fields required to register a user.
type CreateParams struct {
	Name         string
	Lastname     string
	Email        string
	PasswordHash string
}

// ProfileUpdate carries optional profile changes; nil fields are left as is.
type ProfileUpdate struct {
	Name     *string
	Lastname *string
}

// IsEmpty reports whether the update changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Lastname == nil
}
