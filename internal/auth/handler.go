package auth

import (
	"net/http"

	"github.com/redmonkez12/task-api/internal/httputil"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/validation"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SignUpRequest represents the registration request body
type SignUpRequest struct {
	Name            string `json:"name" validate:"required,max=50"`
	Lastname        string `json:"lastname" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// SignInRequest represents the login request body
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=50"`
	Lastname *string `json:"lastname" validate:"omitempty,min=1,max=50"`
}

// ChangePasswordRequest represents a password change for the current user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Revoke          bool   `json:"revoke"`
}

// EmailRequest starts an email based flow
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// MessageResponse is the envelope for responses without data
type MessageResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

// UserResponse wraps a user in the envelope
type UserResponse struct {
	Status int        `json:"status"`
	Msg    string     `json:"msg,omitempty"`
	User   *user.User `json:"user"`
}

// SignInResponse carries the bearer token and its user
type SignInResponse struct {
	Status int        `json:"status"`
	Token  string     `json:"token"`
	User   *user.User `json:"user"`
}

// TokenResponse carries a freshly issued bearer token
type TokenResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Token  string `json:"token,omitempty"`
}

// SweepResponse reports how many rows a sweep removed
type SweepResponse struct {
	Status  int   `json:"status"`
	Deleted int64 `json:"deleted"`
}

// SignUp handles user registration
// @Summary      Register a new user
// @Description  Create an unverified account. A verification email valid for 30 minutes is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Registration data"
// @Success      201 {object} UserResponse
// @Failure      400 {object} MessageResponse "Validation error or email already exists"
// @Failure      429 {object} MessageResponse "Too many requests"
// @Failure      500 {object} MessageResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.FromContext[SignUpRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	logger := logging.GetLoggerFromContext(r.Context()).WithFields(map[string]any{"email": req.Email})

	newUser, err := h.service.SignUp(r.Context(), SignUpInput{
		Name:     req.Name,
		Lastname: req.Lastname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logger.Info("user registered successfully", "user_id", newUser.ID)

	httputil.RespondJSON(w, UserResponse{
		Status: http.StatusCreated,
		Msg:    "account created, check your email to verify it",
		User:   newUser,
	}, http.StatusCreated)
}

// SignIn handles user login
// @Summary      User login
// @Description  Authenticate a verified user and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Login credentials"
// @Success      200 {object} SignInResponse
// @Failure      400 {object} MessageResponse "Invalid credentials or account not verified"
// @Failure      429 {object} MessageResponse "Too many requests"
// @Router       /auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.FromContext[SignInRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	u, token, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("user logged in successfully", "user_id", u.ID)

	httputil.RespondJSON(w, SignInResponse{Status: http.StatusOK, Token: token, User: u}, http.StatusOK)
}

// SignOut revokes the current bearer token
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse
// @Failure      401 {object} MessageResponse
// @Router       /auth/signout [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.service.SignOut(r.Context(), session); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.Respond(w, http.StatusOK, "signed out", nil)
}

// Refresh swaps the current bearer token for a new one
// @Summary      Refresh token
// @Description  Revokes the presented token and returns a new one
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TokenResponse
// @Failure      401 {object} MessageResponse
// @Router       /auth/refresh [get]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	token, err := h.service.Refresh(r.Context(), session)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TokenResponse{Status: http.StatusOK, Token: token}, http.StatusOK)
}

// Me returns the current user
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} MessageResponse
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	httputil.RespondJSON(w, UserResponse{Status: http.StatusOK, User: session.User}, http.StatusOK)
}

// UpdateProfile changes the current user's name
// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} UserResponse
// @Failure      400 {object} MessageResponse
// @Router       /auth [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	req, ok := validation.FromContext[UpdateProfileRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), session, user.ProfileUpdate{
		Name:     req.Name,
		Lastname: req.Lastname,
	})
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, UserResponse{Status: http.StatusOK, Msg: "profile updated", User: u}, http.StatusOK)
}

// ChangePassword sets a new password for the current user
// @Summary      Change password
// @Description  With revoke=true the presented token is revoked and a new one returned
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "New password"
// @Success      200 {object} TokenResponse
// @Failure      400 {object} MessageResponse "Same password or validation error"
// @Router       /auth/change-password [put]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	req, ok := validation.FromContext[ChangePasswordRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	token, err := h.service.ChangePassword(r.Context(), session, ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
		Revoke:          req.Revoke,
	})
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("password changed", "user_id", session.User.ID, "revoked", req.Revoke)

	httputil.RespondJSON(w, TokenResponse{Status: http.StatusOK, Msg: "password updated", Token: token}, http.StatusOK)
}

// RequestPasswordReset emails a reset link
// @Summary      Request password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Account email"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} MessageResponse "User not found"
// @Router       /auth/reset-password [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.FromContext[EmailRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.Respond(w, http.StatusOK, "password reset email sent", nil)
}

// ResetPassword redeems a reset link
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token query string true "Reset token from the email"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} MessageResponse "Invalid or expired link"
// @Router       /auth/reset-password [put]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.FromContext[ResetPasswordRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	if err := h.service.ResetPassword(r.Context(), r.URL.Query().Get("token"), req.Password); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.Respond(w, http.StatusOK, "password updated", nil)
}

// RequestEmailVerification sends a new verification link
// @Summary      Resend verification email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Account email"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} MessageResponse "Already verified"
// @Failure      404 {object} MessageResponse "User not found"
// @Router       /auth/verify-email [post]
func (h *Handler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	req, ok := validation.FromContext[EmailRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	if err := h.service.RequestEmailVerification(r.Context(), req.Email); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.Respond(w, http.StatusOK, "verification email sent", nil)
}

// VerifyEmail redeems a verification link
// @Summary      Verify email
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token from the email"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} MessageResponse "Invalid or expired link"
// @Router       /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.Respond(w, http.StatusOK, "email verified", nil)
}

// RemoveTokens sweeps expired revoked tokens
// @Summary      Sweep revoked tokens
// @Tags         maintenance
// @Produce      json
// @Param        X-Maintenance-Key header string true "Maintenance key"
// @Success      200 {object} SweepResponse
// @Failure      401 {object} MessageResponse
// @Router       /auth/remove-tokens [post]
func (h *Handler) RemoveTokens(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.SweepRevokedTokens(r.Context())
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("swept revoked tokens", "deleted", n)
	httputil.RespondJSON(w, SweepResponse{Status: http.StatusOK, Deleted: n}, http.StatusOK)
}

// RemoveVerifications sweeps expired verification links
// @Summary      Sweep verifications
// @Tags         maintenance
// @Produce      json
// @Param        X-Maintenance-Key header string true "Maintenance key"
// @Success      200 {object} SweepResponse
// @Failure      401 {object} MessageResponse
// @Router       /auth/remove-verifications [post]
func (h *Handler) RemoveVerifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.SweepVerifications(r.Context())
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("swept verifications", "deleted", n)
	httputil.RespondJSON(w, SweepResponse{Status: http.StatusOK, Deleted: n}, http.StatusOK)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		httputil.RespondErr(w, r, ErrUnauthenticated)
		return nil, false
	}
	return session, true
}
