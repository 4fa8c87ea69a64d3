package task

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/task-api/internal/apperror"
	"github.com/redmonkez12/task-api/internal/auth"
	"github.com/redmonkez12/task-api/internal/httputil"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/validation"
)

var (
	ErrInvalidID    = apperror.NewValidation("invalid task id")
	ErrInvalidPage  = apperror.NewValidation("page and limit must be positive integers")
	ErrMissingImage = apperror.NewValidation("image is required")
	ErrImageType    = apperror.NewValidation("image must be a jpeg, png, webp or gif")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Handler contains HTTP handlers for task endpoints
type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(service *Service, maxUploadSize int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

// CreateTaskRequest represents a new task
type CreateTaskRequest struct {
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=1000"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	Status      *string   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Deadline    *time.Time `json:"deadline"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
}

// ChangeStatusRequest represents a status transition
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress completed"`
}

// TaskResponse wraps a task in the envelope
type TaskResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Task   *Task  `json:"task"`
}

// TaskListResponse is one page of tasks
type TaskListResponse struct {
	Status int    `json:"status"`
	Tasks  []Task `json:"tasks"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Total  int    `json:"total"`
	Pages  int    `json:"pages"`
}

// List returns the caller's tasks
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        page   query int    false "Page number" default(1)
// @Param        limit  query int    false "Page size (max 100)" default(10)
// @Param        status query string false "Filter by status" Enums(pending, in-progress, completed)
// @Success      200 {object} TaskListResponse
// @Failure      400 {object} auth.MessageResponse
// @Failure      401 {object} auth.MessageResponse
// @Router       /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	result, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TaskListResponse{
		Status: http.StatusOK,
		Tasks:  result.Tasks,
		Page:   result.Page,
		Limit:  result.Limit,
		Total:  result.Total,
		Pages:  result.Pages,
	}, http.StatusOK)
}

// Get returns one task
// @Summary      Get task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} TaskResponse
// @Failure      404 {object} auth.MessageResponse
// @Router       /tasks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TaskResponse{Status: http.StatusOK, Task: t}, http.StatusOK)
}

// Create adds a task
// @Summary      Create task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTaskRequest true "Task"
// @Success      201 {object} TaskResponse
// @Failure      400 {object} auth.MessageResponse
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	req, ok := validation.FromContext[CreateTaskRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	params := CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
	}
	if req.Status != nil {
		params.Status = Status(*req.Status)
	}

	t, err := h.service.Create(r.Context(), userID, params)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("task created", "task_id", t.ID)

	httputil.RespondJSON(w, TaskResponse{Status: http.StatusCreated, Msg: "task created", Task: t}, http.StatusCreated)
}

// Update changes task fields
// @Summary      Update task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body UpdateTaskRequest true "Fields to change"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} auth.MessageResponse
// @Failure      404 {object} auth.MessageResponse
// @Router       /tasks/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	req, ok := validation.FromContext[UpdateTaskRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	update := Update{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		update.Status = &status
	}

	t, err := h.service.Update(r.Context(), userID, id, update)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TaskResponse{Status: http.StatusOK, Msg: "task updated", Task: t}, http.StatusOK)
}

// ChangeStatus moves a task to another status
// @Summary      Change task status
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body ChangeStatusRequest true "New status"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} auth.MessageResponse
// @Failure      404 {object} auth.MessageResponse
// @Router       /tasks/{id}/change-status [put]
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	req, ok := validation.FromContext[ChangeStatusRequest](r.Context())
	if !ok {
		httputil.RespondErr(w, r, validation.ErrInvalidBody)
		return
	}

	t, err := h.service.ChangeStatus(r.Context(), userID, id, Status(req.Status))
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TaskResponse{Status: http.StatusOK, Msg: "status updated", Task: t}, http.StatusOK)
}

// UploadImage attaches an image to a task
// @Summary      Upload task image
// @Description  Multipart upload in field "image". Replaces the current image.
// @Tags         tasks
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id    path     string true "Task ID"
// @Param        image formData file   true "jpeg, png, webp or gif"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} auth.MessageResponse
// @Failure      404 {object} auth.MessageResponse
// @Router       /tasks/{id}/image [put]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	tooLarge := apperror.NewValidation(fmt.Sprintf("image must be at most %d MB", h.maxUploadSize>>20))

	// leave room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.RespondErr(w, r, tooLarge.Wrap(err))
			return
		}
		httputil.RespondErr(w, r, ErrMissingImage.Wrap(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.RespondErr(w, r, ErrMissingImage.Wrap(err))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		httputil.RespondErr(w, r, tooLarge)
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		httputil.RespondErr(w, r, ErrMissingImage.Wrap(err))
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !allowedImageTypes[contentType] {
		httputil.RespondErr(w, r, ErrImageType)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	t, err := h.service.UploadImage(r.Context(), userID, id, Image{
		Body:        file,
		Size:        header.Size,
		ContentType: contentType,
	})
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TaskResponse{Status: http.StatusOK, Msg: "image uploaded", Task: t}, http.StatusOK)
}

// RemoveImage deletes a task's image
// @Summary      Delete task image
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} auth.MessageResponse "Task has no image"
// @Failure      404 {object} auth.MessageResponse
// @Router       /tasks/{id}/image [delete]
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	t, err := h.service.RemoveImage(r.Context(), userID, id)
	if err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, TaskResponse{Status: http.StatusOK, Msg: "image deleted", Task: t}, http.StatusOK)
}

// Delete removes a task and its image
// @Summary      Delete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} auth.MessageResponse
// @Failure      404 {object} auth.MessageResponse
// @Router       /tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		httputil.RespondErr(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("task deleted", "task_id", id)

	httputil.Respond(w, http.StatusOK, "task deleted", nil)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErr(w, r, auth.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := h.userID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErr(w, r, ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	logging.Annotate(r.Context(), "task_id", id.String())

	return userID, id, true
}

func parseListParams(r *http.Request) (ListParams, error) {
	q := r.URL.Query()
	params := ListParams{Page: 1, Limit: DefaultLimit}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, ErrInvalidPage
		}
		params.Page = page
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, ErrInvalidPage
		}
		params.Limit = limit
	}

	if v := q.Get("status"); v != "" {
		status := Status(v)
		params.Status = &status
	}

	return params, nil
}
