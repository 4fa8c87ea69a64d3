package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/task-api/internal/database"
)

// RevocationStore is the durable denylist of revoked bearer tokens.
type RevocationStore interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// RevocationRepository handles revoked token persistence
type RevocationRepository struct {
	db  bun.IDB
	now func() time.Time
}

func NewRevocationRepository(db bun.IDB) *RevocationRepository {
	return &RevocationRepository{db: db, now: time.Now}
}

// Add stores a revoked token. Revoking the same token twice is a no-op.
func (r *RevocationRepository) Add(ctx context.Context, token string, expiresAt time.Time) error {
	row := &database.RevokedToken{
		ID:        uuid.New(),
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (token) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports whether token is on the denylist
func (r *RevocationRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.RevokedToken)(nil)).
		Where("token = ?", token).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}

	return exists, nil
}

// DeleteExpired removes denylist rows whose token can no longer validate
// anyway. Should be run periodically (e.g., via the sweep endpoint or taskctl).
func (r *RevocationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.RevokedToken)(nil)).
		Where("expires_at <= ?", r.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return n, nil
}
