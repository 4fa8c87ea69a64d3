package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/task-api/internal/apperror"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/verification"
)

// UserStore is the subset of the user repository the auth flows need.
type UserStore interface {
	Create(ctx context.Context, params user.CreateParams) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update user.ProfileUpdate) (*user.User, error)
}

// VerificationStore persists single-use email and password links.
type VerificationStore interface {
	Create(ctx context.Context, userID uuid.UUID, token string, typ verification.Type, expiresAt time.Time) (*verification.Verification, error)
	FindByToken(ctx context.Context, token string, typ verification.Type) (*verification.Verification, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, token string, expiresAt time.Time) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string, expiresAt time.Time) error
}

// SignUpInput is a validated registration request.
type SignUpInput struct {
	Name     string
	Lastname string
	Email    string
	Password string
}

// ChangePasswordInput is a validated password change for the session user.
type ChangePasswordInput struct {
	CurrentPassword string
	Password        string
	Revoke          bool
}

// Service handles authentication business logic
type Service struct {
	users           UserStore
	verifications   VerificationStore
	tokens          *TokenManager
	emails          EmailService
	tokenTTL        time.Duration
	verificationTTL time.Duration
	now             func() time.Time
}

func NewService(
	users UserStore,
	verifications VerificationStore,
	tokens *TokenManager,
	emails EmailService,
	tokenTTL time.Duration,
	verificationTTL time.Duration,
) *Service {
	return &Service{
		users:           users,
		verifications:   verifications,
		tokens:          tokens,
		emails:          emails,
		tokenTTL:        tokenTTL,
		verificationTTL: verificationTTL,
		now:             time.Now,
	}
}

// SignUp creates an unverified account and sends one verification email.
// A failed email leaves the account in place; the user can ask for a new link.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*user.User, error) {
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, user.CreateParams{
		Name:         in.Name,
		Lastname:     in.Lastname,
		Email:        in.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if err := s.startVerification(ctx, newUser, verification.TypeEmail); err != nil {
		return nil, err
	}

	return newUser, nil
}

// SignIn checks credentials and issues a bearer token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*user.User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		logging.GetLoggerFromContext(ctx).Warn("stored password hash unreadable", "user_id", u.ID, "error", err)
		return nil, "", ErrInvalidCredentials
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	if !u.Verified {
		return nil, "", ErrAccountNotVerified
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}

	return u, token, nil
}

// SignOut revokes the session token.
func (s *Service) SignOut(ctx context.Context, session *Session) error {
	return s.tokens.Revoke(ctx, session.Token)
}

// Refresh revokes the session token and issues a new one. Two concurrent
// refreshes with the same token may both succeed.
func (s *Service) Refresh(ctx context.Context, session *Session) (string, error) {
	if err := s.tokens.Revoke(ctx, session.Token); err != nil {
		return "", err
	}
	return s.issueToken(session.User)
}

// UpdateProfile applies name changes to the session user.
func (s *Service) UpdateProfile(ctx context.Context, session *Session, update user.ProfileUpdate) (*user.User, error) {
	if update.IsEmpty() {
		return nil, ErrNothingToUpdate
	}

	u, err := s.users.UpdateProfile(ctx, session.User.ID, update)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return u, nil
}

// ChangePassword sets a new password for the session user. With Revoke set
// the current token is revoked and a fresh one returned; otherwise the
// returned token is empty.
func (s *Service) ChangePassword(ctx context.Context, session *Session, in ChangePasswordInput) (string, error) {
	u := session.User

	if in.CurrentPassword != "" {
		ok, err := VerifyPassword(in.CurrentPassword, u.PasswordHash)
		if err != nil || !ok {
			return "", ErrInvalidCredentials
		}
	}

	same, err := VerifyPassword(in.Password, u.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to compare passwords: %w", err)
	}
	if same {
		return "", ErrSamePassword
	}

	if err := s.setPassword(ctx, u.ID, in.Password); err != nil {
		return "", err
	}

	if !in.Revoke {
		return "", nil
	}

	if err := s.tokens.Revoke(ctx, session.Token); err != nil {
		return "", err
	}
	return s.issueToken(u)
}

// RequestPasswordReset emails a password reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.startVerification(ctx, u, verification.TypePassword)
}

// ResetPassword redeems a password reset link.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	v, err := s.redeem(ctx, token, verification.TypePassword)
	if err != nil {
		return err
	}

	if err := s.setPassword(ctx, v.UserID, password); err != nil {
		return err
	}

	return s.verifications.Delete(ctx, v.ID)
}

// RequestEmailVerification sends a fresh verification link. Older links
// stay valid until they expire.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified {
		return ErrAlreadyVerified
	}
	return s.startVerification(ctx, u, verification.TypeEmail)
}

// VerifyEmail redeems an email verification link.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	v, err := s.redeem(ctx, token, verification.TypeEmail)
	if err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, v.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidLink
		}
		return err
	}
	if u.Verified {
		return s.spend(ctx, v.ID, ErrAlreadyVerified)
	}

	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return s.spend(ctx, v.ID, ErrAlreadyVerified)
		}
		return err
	}

	return s.verifications.Delete(ctx, v.ID)
}

// spend deletes a redeemed verification and returns result.
func (s *Service) spend(ctx context.Context, id uuid.UUID, result error) error {
	if err := s.verifications.Delete(ctx, id); err != nil {
		return err
	}
	return result
}

// SweepRevokedTokens deletes expired denylist rows.
func (s *Service) SweepRevokedTokens(ctx context.Context) (int64, error) {
	return s.tokens.SweepExpired(ctx)
}

// SweepVerifications deletes expired verification links.
func (s *Service) SweepVerifications(ctx context.Context) (int64, error) {
	return s.verifications.DeleteExpired(ctx)
}

func (s *Service) issueToken(u *user.User) (string, error) {
	return s.tokens.Generate(Claims{UserID: u.ID.String(), Email: u.Email}, s.tokenTTL)
}

func (s *Service) userByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	passwordHash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return nil
}

// startVerification stores a new link for u and emails it.
func (s *Service) startVerification(ctx context.Context, u *user.User, typ verification.Type) error {
	token, err := s.tokens.Generate(Claims{
		UserID:  u.ID.String(),
		Email:   u.Email,
		Purpose: string(typ),
	}, s.verificationTTL)
	if err != nil {
		return err
	}

	claims, err := s.tokens.Decode(token)
	if err != nil {
		return err
	}

	if _, err := s.verifications.Create(ctx, u.ID, token, typ, claims.ExpiresAt); err != nil {
		return err
	}

	switch typ {
	case verification.TypePassword:
		err = s.emails.SendPasswordResetEmail(ctx, u.Email, u.Name, token, claims.ExpiresAt)
	default:
		err = s.emails.SendVerificationEmail(ctx, u.Email, u.Name, token, claims.ExpiresAt)
	}
	if err != nil {
		return apperror.NewDependency("failed to send email", err)
	}

	return nil
}

// redeem returns the live verification for token. An expired one is deleted.
func (s *Service) redeem(ctx context.Context, token string, typ verification.Type) (*verification.Verification, error) {
	if token == "" {
		return nil, ErrInvalidLink
	}

	v, err := s.verifications.FindByToken(ctx, token, typ)
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, err
	}

	if v.IsExpired(s.now()) {
		if err := s.verifications.Delete(ctx, v.ID); err != nil {
			logging.GetLoggerFromContext(ctx).Warn("failed to delete expired verification", "id", v.ID, "error", err)
		}
		return nil, ErrInvalidLink
	}

	return v, nil
}
