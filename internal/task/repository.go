package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/task-api/internal/database"
)

var ErrNotFound = errors.New("task not found")

// Repository handles task persistence. Every query is scoped to the owner.
type Repository struct {
	db  bun.IDB
	now func() time.Time
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create inserts a task owned by userID.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Task, error) {
	status := params.Status
	if status == "" {
		status = StatusPending
	}

	now := r.now().UTC()
	dbTask := &database.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       params.Title,
		Description: params.Description,
		Deadline:    params.Deadline.UTC(),
		Status:      string(status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.db.NewInsert().Model(dbTask).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// GetByID retrieves one of userID's tasks
func (r *Repository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// List returns one page of userID's tasks and the total matching count.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, params ListParams) ([]Task, int, error) {
	params = params.normalize()

	filter := func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("user_id = ?", userID)
		if params.Status != nil {
			q = q.Where("status = ?", string(*params.Status))
		}
		return q
	}

	total, err := filter(r.db.NewSelect().Model((*database.Task)(nil))).Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	var rows []database.Task
	err = filter(r.db.NewSelect().Model(&rows)).
		OrderExpr("created_at DESC").
		Limit(params.Limit).
		Offset(params.offset()).
		Scan(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, *mapDBTaskToModel(&rows[i]))
	}

	return tasks, total, nil
}

// Update applies the non-nil fields of update and returns the fresh row.
func (r *Repository) Update(ctx context.Context, userID, id uuid.UUID, update Update) (*Task, error) {
	q := r.db.NewUpdate().
		Model((*database.Task)(nil)).
		Set("updated_at = ?", r.now().UTC())

	if update.Title != nil {
		q = q.Set("title = ?", *update.Title)
	}
	if update.Description != nil {
		q = q.Set("description = ?", *update.Description)
	}
	if update.Deadline != nil {
		q = q.Set("deadline = ?", update.Deadline.UTC())
	}
	if update.Status != nil {
		q = q.Set("status = ?", string(*update.Status))
	}

	return r.updateAndGet(ctx, q, userID, id, "failed to update task")
}

// SetImage stores the image URL of a task; nil clears it.
func (r *Repository) SetImage(ctx context.Context, userID, id uuid.UUID, image *string) (*Task, error) {
	q := r.db.NewUpdate().
		Model((*database.Task)(nil)).
		Set("image = ?", image).
		Set("updated_at = ?", r.now().UTC())

	return r.updateAndGet(ctx, q, userID, id, "failed to set task image")
}

// Delete removes one of userID's tasks
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return expectOneRow(result)
}

func (r *Repository) updateAndGet(ctx context.Context, q *bun.UpdateQuery, userID, id uuid.UUID, msg string) (*Task, error) {
	result, err := q.
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	if err := expectOneRow(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, userID, id)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:          dbt.ID,
		UserID:      dbt.UserID,
		Title:       dbt.Title,
		Description: dbt.Description,
		Image:       dbt.Image,
		Deadline:    dbt.Deadline,
		Status:      Status(dbt.Status),
		CreatedAt:   dbt.CreatedAt,
		UpdatedAt:   dbt.UpdatedAt,
	}
}
