package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/task-api/internal/auth"
	"github.com/redmonkez12/task-api/internal/config"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/task"
	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/validation"
)

const (
	testSecret         = "0123456789abcdef0123456789abcdef"
	testMaintenanceKey = "sweep-secret"
)

type routerFixture struct {
	router http.Handler
	users  *memUsers
	tasks  *memTasks
	emails *countingEmails
	tokens *auth.TokenManager
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	signer, err := auth.NewJWTSigner([]byte(testSecret))
	require.NoError(t, err)

	users := newMemUsers()
	tasks := &memTasks{tasks: map[uuid.UUID]*task.Task{}}
	emails := &countingEmails{}
	tokens := auth.NewTokenManager(signer, &memRevocations{tokens: map[string]time.Time{}}, nil)

	authService := auth.NewService(users, &memVerifications{}, tokens, emails, time.Hour, 30*time.Minute)
	taskService := task.NewService(tasks, nopMedia{})

	cfg := &config.Config{
		Server: config.ServerConfig{Env: "prod"},
		Auth:   config.AuthConfig{MaintenanceKey: testMaintenanceKey},
	}
	logger := logging.New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := NewRouter(cfg, Handlers{
		Auth:           auth.NewHandler(authService),
		AuthMiddleware: auth.NewMiddleware(tokens, users),
		Tasks:          task.NewHandler(taskService, 5<<20),
		Validator:      validation.New(),
	}, logger)

	return &routerFixture{router: router, users: users, tasks: tasks, emails: emails, tokens: tokens}
}

func (f *routerFixture) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (f *routerFixture) verifiedUser(t *testing.T) (*user.User, string) {
	t.Helper()
	u := f.users.add(user.User{Name: "Ada", Lastname: "Lovelace", Email: "ada@example.com", Verified: true})
	token, err := f.tokens.Generate(auth.Claims{UserID: u.ID.String(), Email: u.Email}, time.Hour)
	require.NoError(t, err)
	return u, token
}

func TestHealth(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(http.StatusOK), body["status"])
	assert.Equal(t, "api is running", body["msg"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSignUp_CreatesUserAndSendsOneEmail(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/auth/signup", "", `{
		"name": "Ada",
		"lastname": "Lovelace",
		"email": "ada@example.com",
		"password": "secret1",
		"confirmPassword": "secret1"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(http.StatusCreated), body["status"])

	u, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", u["email"])
	assert.Equal(t, false, u["verified"])
	assert.NotContains(t, u, "password")
	assert.NotContains(t, u, "passwordHash")
	assert.NotContains(t, rec.Body.String(), "secret1")

	assert.Equal(t, []string{"ada@example.com"}, f.emails.verify)
	assert.Equal(t, 1, f.users.writes)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newRouterFixture(t)
	f.users.add(user.User{Email: "ada@example.com"})

	rec, body := f.do(t, http.MethodPost, "/api/auth/signup", "", `{"name":"A","lastname":"L","email":"ada@example.com","password":"secret1","confirmPassword":"secret1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already exists", body["msg"])
	assert.Equal(t, 0, f.users.writes)
	assert.Empty(t, f.emails.verify)
}

func TestSignUp_ValidationError(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/auth/signup", "", `{"name":"A","lastname":"L","email":"nope","password":"secret1","confirmPassword":"secret1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid email", body["msg"])
}

func TestProtectedRoute_ExpiredToken(t *testing.T) {
	f := newRouterFixture(t)
	u, _ := f.verifiedUser(t)

	past := time.Now().Add(-2 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID.String(),
		"sub":     u.ID.String(),
		"email":   u.Email,
		"jti":     uuid.NewString(),
		"iat":     past.Unix(),
		"exp":     past.Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec, body := f.do(t, http.MethodGet, "/api/tasks", expired, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]any{"status": float64(401), "msg": "Token expired"}, body)
}

func TestProtectedRoute_ValidatesBodyBeforeToken(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/tasks", "", `{"description":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/api/auth/change-password", "", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := f.do(t, http.MethodPost, "/api/tasks", "", `{"title":"Write report","deadline":"2030-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", body["msg"])
}

func TestProtectedRoute_MissingToken(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/auth/me", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", body["msg"])
}

func TestChangeStatus_RefreshesUpdatedAt(t *testing.T) {
	f := newRouterFixture(t)
	u, token := f.verifiedUser(t)

	old := time.Now().Add(-time.Hour).UTC()
	tk := f.tasks.add(task.Task{
		UserID:    u.ID,
		Title:     "write report",
		Deadline:  time.Now().Add(24 * time.Hour),
		Status:    task.StatusPending,
		CreatedAt: old,
		UpdatedAt: old,
	})

	rec, body := f.do(t, http.MethodPut, "/api/tasks/"+tk.ID.String()+"/change-status", token, `{"status":"completed"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got, ok := body["task"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", got["status"])

	updatedAt, err := time.Parse(time.RFC3339Nano, got["updatedAt"].(string))
	require.NoError(t, err)
	assert.True(t, updatedAt.After(old))
}

func TestTasks_AreScopedToOwner(t *testing.T) {
	f := newRouterFixture(t)
	_, token := f.verifiedUser(t)
	other := f.tasks.add(task.Task{UserID: uuid.New(), Title: "not yours", Status: task.StatusPending})

	rec, _ := f.do(t, http.MethodGet, "/api/tasks/"+other.ID.String(), token, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignOut_RevokesToken(t *testing.T) {
	f := newRouterFixture(t)
	_, token := f.verifiedUser(t)

	rec, _ := f.do(t, http.MethodPost, "/api/auth/signout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/api/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", body["msg"])
}

func TestMaintenanceRoutes_RequireKey(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/auth/remove-tokens", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/remove-tokens", nil)
	req.Header.Set(auth.MaintenanceKeyHeader, testMaintenanceKey)
	ok := httptest.NewRecorder()
	f.router.ServeHTTP(ok, req)

	assert.Equal(t, http.StatusOK, ok.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["deleted"])
}

func TestUnknownRoute(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", body["msg"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	f.do(t, http.MethodGet, "/health", "", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `taskapi_http_requests_total{method="GET",path="/health",status="200"}`)
}
