package http

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/task-api/internal/task"
	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/verification"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*user.User
	writes int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*user.User{}}
}

func (m *memUsers) add(u user.User) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	m.byID[u.ID] = &u
	return &u
}

func (m *memUsers) Create(_ context.Context, p user.CreateParams) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(p.Email) {
			return nil, user.ErrDuplicateEmail
		}
	}
	m.writes++
	now := time.Now()
	u := &user.User{ID: uuid.New(), Name: p.Name, Lastname: p.Lastname, Email: strings.ToLower(p.Email), PasswordHash: p.PasswordHash, CreatedAt: now, UpdatedAt: now}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memUsers) MarkVerified(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.Verified {
		return user.ErrNotFound
	}
	u.Verified = true
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id uuid.UUID, update user.ProfileUpdate) (*user.User, error) {
	m.mu.Lock()
	u, ok := m.byID[id]
	if ok && update.Name != nil {
		u.Name = *update.Name
	}
	if ok && update.Lastname != nil {
		u.Lastname = *update.Lastname
	}
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

type memVerifications struct {
	mu   sync.Mutex
	rows []*verification.Verification
}

func (m *memVerifications) Create(_ context.Context, userID uuid.UUID, token string, typ verification.Type, expiresAt time.Time) (*verification.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &verification.Verification{ID: uuid.New(), UserID: userID, Token: token, Type: typ, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.rows = append(m.rows, v)
	return v, nil
}

func (m *memVerifications) FindByToken(_ context.Context, token string, typ verification.Type) (*verification.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.rows {
		if v.Token == token && v.Type == typ {
			cp := *v
			return &cp, nil
		}
	}
	return nil, verification.ErrNotFound
}

func (m *memVerifications) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.rows {
		if v.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memVerifications) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type memRevocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func (m *memRevocations) Add(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = expiresAt
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok, nil
}

func (m *memRevocations) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type countingEmails struct {
	mu     sync.Mutex
	verify []string
	reset  []string
}

func (c *countingEmails) SendVerificationEmail(_ context.Context, to, _, _ string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verify = append(c.verify, to)
	return nil
}

func (c *countingEmails) SendPasswordResetEmail(_ context.Context, to, _, _ string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset = append(c.reset, to)
	return nil
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*task.Task
}

func (m *memTasks) add(t task.Task) *task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	m.tasks[t.ID] = &t
	return &t
}

func (m *memTasks) Create(_ context.Context, userID uuid.UUID, p task.CreateParams) (*task.Task, error) {
	if p.Status == "" {
		p.Status = task.StatusPending
	}
	now := time.Now()
	return m.add(task.Task{UserID: userID, Title: p.Title, Description: p.Description, Deadline: p.Deadline, Status: p.Status, CreatedAt: now, UpdatedAt: now}), nil
}

func (m *memTasks) GetByID(_ context.Context, userID, id uuid.UUID) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, task.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTasks) List(_ context.Context, userID uuid.UUID, _ task.ListParams) ([]task.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []task.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (m *memTasks) Update(_ context.Context, userID, id uuid.UUID, u task.Update) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, task.ErrNotFound
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Deadline != nil {
		t.Deadline = *u.Deadline
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (m *memTasks) SetImage(_ context.Context, userID, id uuid.UUID, image *string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, task.ErrNotFound
	}
	t.Image = image
	cp := *t
	return &cp, nil
}

func (m *memTasks) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return task.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

type nopMedia struct{}

func (nopMedia) Upload(_ context.Context, publicID string, _ io.Reader, _ int64, _ string) (string, error) {
	return "https://media.example/" + publicID, nil
}

func (nopMedia) Destroy(context.Context, string) error { return nil }
