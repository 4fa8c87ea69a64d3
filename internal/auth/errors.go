package auth

import "github.com/redmonkez12/task-api/internal/apperror"

// Errors surfaced to clients by the auth flows.
var (
	ErrUnauthenticated       = apperror.NewAuthentication("unauthenticated")
	ErrSessionExpired        = apperror.NewAuthentication("Token expired")
	ErrInvalidMaintenanceKey = apperror.NewAuthentication("invalid maintenance key")
	ErrUserNotFound          = apperror.NewNotFound("user not found")
	ErrEmailExists           = apperror.NewConflict("email already exists")
	ErrInvalidCredentials    = apperror.NewValidation("invalid credentials")
	ErrAccountNotVerified    = apperror.NewAuthorization("account not verified")
	ErrAlreadyVerified       = apperror.NewDomain("account already verified")
	ErrSamePassword          = apperror.NewDomain("password must differ from the previous one")
	ErrInvalidLink           = apperror.NewValidation("invalid or expired link")
	ErrNothingToUpdate       = apperror.NewValidation("nothing to update")
)
