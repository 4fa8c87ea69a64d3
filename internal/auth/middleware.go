package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/task-api/internal/httputil"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// MaintenanceKeyHeader carries the shared secret for sweep endpoints.
const MaintenanceKeyHeader = "X-Maintenance-Key"

// Session is the authenticated caller of a request.
type Session struct {
	User  *user.User
	Token string
}

// UserLoader resolves the user behind a token.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Middleware handles authentication for protected routes
type Middleware struct {
	tokens *TokenManager
	users  UserLoader
}

func NewMiddleware(tokens *TokenManager, users UserLoader) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// RequireAuth validates the bearer token and attaches the Session.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httputil.RespondErr(w, r, ErrUnauthenticated)
			return
		}

		claims, err := m.tokens.Validate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, ErrExpiredToken):
				httputil.RespondErr(w, r, ErrSessionExpired.Wrap(err))
			case IsTokenError(err):
				httputil.RespondErr(w, r, ErrUnauthenticated.Wrap(err))
			default:
				httputil.RespondErr(w, r, err)
			}
			return
		}

		if claims.Purpose != "" {
			httputil.RespondErr(w, r, ErrUnauthenticated)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			httputil.RespondErr(w, r, ErrUnauthenticated.Wrap(err))
			return
		}

		u, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				httputil.RespondErr(w, r, ErrUserNotFound)
				return
			}
			httputil.RespondErr(w, r, err)
			return
		}

		if !u.Verified {
			httputil.RespondErr(w, r, ErrAccountNotVerified)
			return
		}

		logging.Annotate(r.Context(), "user_id", u.ID.String())
		ctx := logging.WithLogger(r.Context(), logging.GetLoggerFromContext(r.Context()).WithFields(map[string]any{
			"user_id": u.ID.String(),
		}))
		ctx = WithSession(ctx, &Session{User: u, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireMaintenanceKey guards operational endpoints with a shared secret.
func RequireMaintenanceKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(MaintenanceKeyHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httputil.RespondErr(w, r, ErrInvalidMaintenanceKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// WithSession stores session in ctx.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// SessionFromContext extracts the session set by RequireAuth.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*Session)
	return session, ok && session != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return session.User.ID, true
}
