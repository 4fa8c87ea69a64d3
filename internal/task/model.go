package task

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       *string   `json:"image"`
	Deadline    time.Time `json:"deadline"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateParams holds a new task. An empty Status means pending.
type CreateParams struct {
	Title       string
	Description string
	Deadline    time.Time
	Status      Status
}

// Update carries optional changes; nil fields are left as is.
type Update struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Status      *Status
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Deadline == nil && u.Status == nil
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams selects one page of a user's tasks, newest first.
type ListParams struct {
	Page   int
	Limit  int
	Status *Status
}

// normalize clamps paging to sane bounds.
func (p ListParams) normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	// keep offset() from overflowing
	if maxPage := math.MaxInt/p.Limit + 1; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Limit
}

// ListResult is one page of tasks with totals for the whole selection.
type ListResult struct {
	Tasks []Task
	Page  int
	Limit int
	Total int
	Pages int
}
