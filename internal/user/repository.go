package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/task-api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// pq error code for unique_violation
const uniqueViolation = "23505"

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new unverified user.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*User, error) {
	now := time.Now().UTC()
	dbUser := &database.User{
		ID:           uuid.New(),
		Name:         params.Name,
		Lastname:     params.Lastname,
		Email:        normalizeEmail(params.Email),
		PasswordHash: params.PasswordHash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", normalizeEmail(email)).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// EmailExists reports whether an account already uses email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("email = ?", normalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// MarkVerified flips the verified flag. It only matches unverified users so
// the flag changes exactly once; ErrNotFound is returned otherwise.
func (r *Repository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verified = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Where("verified = ?", false).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark user as verified: %w", err)
	}

	return expectOneRow(result)
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectOneRow(result)
}

// UpdateProfile applies the non-nil fields of update and returns the user.
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, userID)
	}

	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", userID)
	if update.Name != nil {
		q = q.Set("name = ?", *update.Name)
	}
	if update.Lastname != nil {
		q = q.Set("lastname = ?", *update.Lastname)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, userID)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		Name:         dbu.Name,
		Lastname:     dbu.Lastname,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Verified:     dbu.Verified,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
}
