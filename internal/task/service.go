package task

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/redmonkez12/task-api/internal/apperror"
	"github.com/redmonkez12/task-api/internal/logging"
)

var (
	ErrTaskNotFound    = apperror.NewNotFound("task not found")
	ErrNoImage         = apperror.NewDomain("task has no image")
	ErrNothingToUpdate = apperror.NewValidation("nothing to update")
	ErrInvalidStatus   = apperror.NewValidation("status must be one of: pending, in-progress, completed")
)

// Store is the task persistence the service needs.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Task, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Task, error)
	List(ctx context.Context, userID uuid.UUID, params ListParams) ([]Task, int, error)
	Update(ctx context.Context, userID, id uuid.UUID, update Update) (*Task, error)
	SetImage(ctx context.Context, userID, id uuid.UUID, image *string) (*Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// MediaStore hosts task images keyed by public id.
type MediaStore interface {
	Upload(ctx context.Context, publicID string, body io.Reader, size int64, contentType string) (string, error)
	Destroy(ctx context.Context, publicID string) error
}

// Image is an uploaded file ready to be stored.
type Image struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// Service handles task business logic
type Service struct {
	store Store
	media MediaStore
}

func NewService(store Store, media MediaStore) *Service {
	return &Service{store: store, media: media}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Task, error) {
	if params.Status != "" && !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.store.Create(ctx, userID, params)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Task, error) {
	return mapNotFound(s.store.GetByID(ctx, userID, id))
}

// List returns one page of the user's tasks.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	params = params.normalize()

	tasks, total, err := s.store.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Tasks: tasks,
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Pages: (total + params.Limit - 1) / params.Limit,
	}, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, update Update) (*Task, error) {
	if update.IsEmpty() {
		return nil, ErrNothingToUpdate
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return mapNotFound(s.store.Update(ctx, userID, id, update))
}

// ChangeStatus sets the status and refreshes updatedAt.
func (s *Service) ChangeStatus(ctx context.Context, userID, id uuid.UUID, status Status) (*Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return mapNotFound(s.store.Update(ctx, userID, id, Update{Status: &status}))
}

// UploadImage stores img for the task, replacing any previous image under
// the same public id.
func (s *Service) UploadImage(ctx context.Context, userID, id uuid.UUID, img Image) (*Task, error) {
	t, err := mapNotFound(s.store.GetByID(ctx, userID, id))
	if err != nil {
		return nil, err
	}

	url, err := s.media.Upload(ctx, publicID(t), img.Body, img.Size, img.ContentType)
	if err != nil {
		return nil, apperror.NewDependency("failed to upload image", err)
	}

	return mapNotFound(s.store.SetImage(ctx, userID, id, &url))
}

// RemoveImage destroys the task image and clears the field.
func (s *Service) RemoveImage(ctx context.Context, userID, id uuid.UUID) (*Task, error) {
	t, err := mapNotFound(s.store.GetByID(ctx, userID, id))
	if err != nil {
		return nil, err
	}
	if t.Image == nil {
		return nil, ErrNoImage
	}

	if err := s.media.Destroy(ctx, publicID(t)); err != nil {
		return nil, apperror.NewDependency("failed to delete image", err)
	}

	return mapNotFound(s.store.SetImage(ctx, userID, id, nil))
}

// Delete removes the task. An attached image is destroyed first; if that
// fails the task is kept.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	t, err := mapNotFound(s.store.GetByID(ctx, userID, id))
	if err != nil {
		return err
	}

	if t.Image != nil {
		if err := s.media.Destroy(ctx, publicID(t)); err != nil {
			return apperror.NewDependency("failed to delete image", err)
		}
		logging.GetLoggerFromContext(ctx).Debug("task image destroyed", "task_id", t.ID)
	}

	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	return nil
}

// publicID is the media key of a task image.
func publicID(t *Task) string {
	return t.UserID.String() + "/" + t.ID.String()
}

func mapNotFound(t *Task, err error) (*Task, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return t, err
}
