package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull"`
	Lastname     string    `bun:"lastname,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Verified     bool      `bun:"verified,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// RevokedToken is a denylist row. The token stays here until ExpiresAt.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rt"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Token     string    `bun:"token,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Verification is a single-use, purpose scoped token.
type Verification struct {
	bun.BaseModel `bun:"table:verifications,alias:v"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Token     string    `bun:"token,notnull"`
	Type      string    `bun:"type,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Task is the tasks table row.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	UserID      uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	Image       *string   `bun:"image"`
	Deadline    time.Time `bun:"deadline,notnull"`
	Status      string    `bun:"status,notnull,default:'pending'"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
