package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/verification"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memRevocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	err    error
	now    func() time.Time
}

func newMemRevocations() *memRevocations {
	return &memRevocations{tokens: map[string]time.Time{}, now: time.Now}
}

func (m *memRevocations) Add(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.tokens[token]; !ok {
		m.tokens[token] = expiresAt
	}
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.tokens[token]
	return ok, nil
}

func (m *memRevocations) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, exp := range m.tokens {
		if !m.now().Before(exp) {
			delete(m.tokens, token)
			n++
		}
	}
	return n, nil
}

func (m *memRevocations) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type memUsers struct {
	mu                  sync.Mutex
	byID                map[uuid.UUID]*user.User
	createCalls         int
	updatePasswordCalls int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*user.User{}}
}

func (m *memUsers) add(u *user.User) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.byID[u.ID] = u
	return u
}

func (m *memUsers) Create(_ context.Context, p user.CreateParams) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	email := strings.ToLower(strings.TrimSpace(p.Email))
	for _, u := range m.byID {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}
	u := &user.User{
		ID:           uuid.New(),
		Name:         p.Name,
		Lastname:     p.Lastname,
		Email:        email,
		PasswordHash: p.PasswordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.byID {
		if u.Email == email {
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
	m.updatePasswordCalls++
	u, ok := m.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uuid.UUID, update user.ProfileUpdate) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Lastname != nil {
		u.Lastname = *update.Lastname
	}
	cp := *u
	return &cp, nil
}

type memVerifications struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*verification.Verification
}

func newMemVerifications() *memVerifications {
	return &memVerifications{rows: map[uuid.UUID]*verification.Verification{}}
}

func (m *memVerifications) Create(_ context.Context, userID uuid.UUID, token string, typ verification.Type, expiresAt time.Time) (*verification.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &verification.Verification{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		Type:      typ,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	m.rows[v.ID] = v
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
	delete(m.rows, id)
	return nil
}

func (m *memVerifications) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, v := range m.rows {
		if v.IsExpired(time.Now()) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memVerifications) only(typ verification.Type) []*verification.Verification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*verification.Verification
	for _, v := range m.rows {
		if v.Type == typ {
			out = append(out, v)
		}
	}
	return out
}

type sentEmail struct {
	kind      string
	to        string
	token     string
	expiresAt time.Time
}

type recordingEmails struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (r *recordingEmails) SendVerificationEmail(_ context.Context, to, _, token string, expiresAt time.Time) error {
	return r.record("verify", to, token, expiresAt)
}

func (r *recordingEmails) SendPasswordResetEmail(_ context.Context, to, _, token string, expiresAt time.Time) error {
	return r.record("reset", to, token, expiresAt)
}

func (r *recordingEmails) record(kind, to, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentEmail{kind: kind, to: to, token: token, expiresAt: expiresAt})
	return nil
}

func (r *recordingEmails) all() []sentEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEmail(nil), r.sent...)
}
