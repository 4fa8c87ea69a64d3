package task

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/task-api/internal/auth"
	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/validation"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

type handlerFixture struct {
	*serviceFixture
	router http.Handler
	userID uuid.UUID
}

func newHandlerFixture(maxUpload int64) *handlerFixture {
	f := newServiceFixture()
	h := NewHandler(f.service, maxUpload)
	v := validation.New()
	userID := uuid.New()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := &auth.Session{User: &user.User{ID: userID, Verified: true}, Token: "t"}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	})
	r.Get("/api/tasks", h.List)
	r.With(validation.Body[CreateTaskRequest](v)).Post("/api/tasks", h.Create)
	r.Get("/api/tasks/{id}", h.Get)
	r.With(validation.Body[UpdateTaskRequest](v)).Put("/api/tasks/{id}", h.Update)
	r.With(validation.Body[ChangeStatusRequest](v)).Put("/api/tasks/{id}/change-status", h.ChangeStatus)
	r.Put("/api/tasks/{id}/image", h.UploadImage)
	r.Delete("/api/tasks/{id}/image", h.RemoveImage)
	r.Delete("/api/tasks/{id}", h.Delete)

	return &handlerFixture{serviceFixture: f, router: r, userID: userID}
}

func (f *handlerFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func (f *handlerFixture) upload(t *testing.T, id uuid.UUID, field string, content []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "pic")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/"+id.String()+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestHandler_CreateAndGet(t *testing.T) {
	f := newHandlerFixture(5 << 20)

	rec, body := f.do(t, http.MethodPost, "/api/tasks", `{"title":"Write report","description":"q3","deadline":"2026-12-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(201), body["status"])

	created := body["task"].(map[string]any)
	assert.Equal(t, "pending", created["status"])
	assert.Nil(t, created["image"])

	rec, body = f.do(t, http.MethodGet, "/api/tasks/"+created["id"].(string), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Write report", body["task"].(map[string]any)["title"])
}

func TestHandler_CreateValidation(t *testing.T) {
	f := newHandlerFixture(5 << 20)

	rec, body := f.do(t, http.MethodPost, "/api/tasks", `{"description":"x","deadline":"2026-12-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title is required", body["msg"])

	rec, body = f.do(t, http.MethodPost, "/api/tasks", `{"title":"x","deadline":"2026-12-01T10:00:00Z","status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status must be one of: pending, in-progress, completed", body["msg"])
}

func TestHandler_ChangeStatus(t *testing.T) {
	f := newHandlerFixture(5 << 20)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.store.now = func() time.Time { return clock }
	task := f.create(t, f.userID)

	clock = clock.Add(time.Hour)
	rec, body := f.do(t, http.MethodPut, "/api/tasks/"+task.ID.String()+"/change-status", `{"status":"completed"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := body["task"].(map[string]any)
	assert.Equal(t, "completed", got["status"])

	updatedAt, err := time.Parse(time.RFC3339, got["updatedAt"].(string))
	require.NoError(t, err)
	assert.True(t, updatedAt.After(task.UpdatedAt))
}

func TestHandler_InvalidAndUnknownIDs(t *testing.T) {
	f := newHandlerFixture(5 << 20)

	rec, body := f.do(t, http.MethodGet, "/api/tasks/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid task id", body["msg"])

	rec, body = f.do(t, http.MethodDelete, "/api/tasks/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", body["msg"])
}

func TestHandler_List(t *testing.T) {
	f := newHandlerFixture(5 << 20)
	for range 3 {
		f.create(t, f.userID)
	}
	f.create(t, uuid.New())

	rec, body := f.do(t, http.MethodGet, "/api/tasks?page=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 2)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["pages"])

	rec, _ = f.do(t, http.MethodGet, "/api/tasks?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/tasks?status=later", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UploadImage(t *testing.T) {
	f := newHandlerFixture(1 << 20)
	task := f.create(t, f.userID)

	rec, body := f.upload(t, task.ID, "image", []byte(pngHeader+strings.Repeat("\x00", 64)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["task"].(map[string]any)["image"], task.ID.String())

	rec, body = f.upload(t, task.ID, "image", []byte("just text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image must be a jpeg, png, webp or gif", body["msg"])

	rec, body = f.upload(t, task.ID, "file", []byte(pngHeader))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image is required", body["msg"])

	rec, body = f.upload(t, task.ID, "image", []byte(pngHeader+strings.Repeat("\x00", 3<<20)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image must be at most 1 MB", body["msg"])
}

func TestHandler_DeleteWithImage(t *testing.T) {
	f := newHandlerFixture(1 << 20)
	task := f.create(t, f.userID)

	rec, _ := f.upload(t, task.ID, "image", []byte(pngHeader))
	require.Equal(t, http.StatusOK, rec.Code)
	*f.log = nil

	rec, body := f.do(t, http.MethodDelete, "/api/tasks/"+task.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "task deleted", body["msg"])
	assert.Equal(t, []string{"destroy:" + f.userID.String() + "/" + task.ID.String(), "delete:" + task.ID.String()}, *f.log)
}
