package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/task-api/internal/database"
)

var ErrNotFound = errors.New("verification not found")

// Repository persists verification records. Several records may exist for
// the same user and type; only the token identifies one.
type Repository struct {
	db  bun.IDB
	now func() time.Time
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create stores a verification for userID.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, token string, typ Type, expiresAt time.Time) (*Verification, error) {
	dbv := &database.Verification{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		Type:      string(typ),
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: r.now().UTC(),
	}

	if _, err := r.db.NewInsert().Model(dbv).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}

	return mapDBVerificationToModel(dbv), nil
}

// FindByToken returns the verification matching token and type regardless
// of expiry, so callers can tell an expired link from an unknown one.
func (r *Repository) FindByToken(ctx context.Context, token string, typ Type) (*Verification, error) {
	dbv := new(database.Verification)
	err := r.db.NewSelect().
		Model(dbv).
		Where("token = ?", token).
		Where("type = ?", string(typ)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find verification: %w", err)
	}

	return mapDBVerificationToModel(dbv), nil
}

// Delete removes a verification by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.Verification)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete verification: %w", err)
	}
	return nil
}

// DeleteExpired removes every verification past its expiry and returns how
// many rows were deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Verification)(nil)).
		Where("expires_at <= ?", r.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verifications: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func mapDBVerificationToModel(dbv *database.Verification) *Verification {
	return &Verification{
		ID:        dbv.ID,
		UserID:    dbv.UserID,
		Token:     dbv.Token,
		Type:      Type(dbv.Type),
		ExpiresAt: dbv.ExpiresAt,
		CreatedAt: dbv.CreatedAt,
	}
}
