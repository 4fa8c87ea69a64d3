package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/task-api/internal/auth"
	"github.com/redmonkez12/task-api/internal/config"
	"github.com/redmonkez12/task-api/internal/httputil"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/ratelimit"
	"github.com/redmonkez12/task-api/internal/task"
	"github.com/redmonkez12/task-api/internal/validation"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth           *auth.Handler
	AuthMiddleware *auth.Middleware
	Tasks          *task.Handler
	Validator      *validation.Validator
	// Limiter is optional; nil disables rate limiting
	Limiter *ratelimit.Limiter
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.MaintenanceKeyHeader},
			ExposedHeaders:   []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(Metrics)                       // Prometheus request metrics
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		logger.Info("swagger UI disabled (production mode)")
	}

	v := h.Validator
	limit := func(scope string) func(http.Handler) http.Handler {
		if h.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return h.Limiter.Middleware(scope)
	}

	authed := h.AuthMiddleware.RequireAuth

	r.Route("/api/auth", func(r chi.Router) {
		// Public
		r.With(limit("signup"), validation.Body[auth.SignUpRequest](v)).Post("/signup", h.Auth.SignUp)
		r.With(limit("signin"), validation.Body[auth.SignInRequest](v)).Post("/signin", h.Auth.SignIn)
		r.With(limit("reset-password"), validation.Body[auth.EmailRequest](v)).Post("/reset-password", h.Auth.RequestPasswordReset)
		r.With(validation.Body[auth.ResetPasswordRequest](v)).Put("/reset-password", h.Auth.ResetPassword)
		r.With(limit("verify-email"), validation.Body[auth.EmailRequest](v)).Post("/verify-email", h.Auth.RequestEmailVerification)
		r.Get("/verify-email", h.Auth.VerifyEmail)

		// Maintenance
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireMaintenanceKey(cfg.Auth.MaintenanceKey))
			r.Post("/remove-tokens", h.Auth.RemoveTokens)
			r.Post("/remove-verifications", h.Auth.RemoveVerifications)
		})

		// Session. Bodies are validated before the token is checked.
		r.With(authed).Post("/signout", h.Auth.SignOut)
		r.With(authed).Get("/refresh", h.Auth.Refresh)
		r.With(authed).Get("/me", h.Auth.Me)
		r.With(validation.Body[auth.UpdateProfileRequest](v), authed).Put("/", h.Auth.UpdateProfile)
		r.With(validation.Body[auth.ChangePasswordRequest](v), authed).Put("/change-password", h.Auth.ChangePassword)
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.With(authed).Get("/", h.Tasks.List)
		r.With(validation.Body[task.CreateTaskRequest](v), authed).Post("/", h.Tasks.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(authed).Get("/", h.Tasks.Get)
			r.With(validation.Body[task.UpdateTaskRequest](v), authed).Put("/", h.Tasks.Update)
			r.With(authed).Delete("/", h.Tasks.Delete)
			r.With(validation.Body[task.ChangeStatusRequest](v), authed).Put("/change-status", h.Tasks.ChangeStatus)
			r.With(authed).Put("/image", h.Tasks.UploadImage)
			r.With(authed).Delete("/image", h.Tasks.RemoveImage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.Respond(w, http.StatusOK, "api is running", nil)
}
