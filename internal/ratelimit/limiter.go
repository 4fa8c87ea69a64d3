package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/task-api/internal/apperror"
	"github.com/redmonkez12/task-api/internal/config"
	"github.com/redmonkez12/task-api/internal/httputil"
	"github.com/redmonkez12/task-api/internal/logging"
)

// ErrTooManyRequests is returned once a client exceeds its window budget.
var ErrTooManyRequests = apperror.New(apperror.KindRateLimited, "too many requests, please try again later")

// Limiter counts requests per client in fixed Redis windows.
type Limiter struct {
	client      *redis.Client
	enabled     bool
	maxRequests int
	window      time.Duration
}

func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client:      client,
		enabled:     cfg.Enabled,
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
	}
}

// Result describes the state of a client's window after one hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count64, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// the window starts at the first hit
	if count64 == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	resetIn, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if resetIn < 0 {
		resetIn = l.window
	}

	count := int(count64)
	remaining := l.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= l.maxRequests,
		Limit:     l.maxRequests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

// Middleware limits requests per client IP under the given scope, so each
// endpoint gets its own budget.
func (l *Limiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.GetLoggerFromContext(r.Context())

			res, err := l.Allow(r.Context(), scope+":"+clientIP(r))
			if err != nil {
				// fail open
				logger.Error("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetIn).Unix(), 10))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.ResetIn.Seconds())))
				httputil.RespondErr(w, r, ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP expects middleware.RealIP to have normalized RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
