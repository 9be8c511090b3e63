package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users in process memory. It backs tests and the
// development server when no DATABASE_URL is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if m.emailOwner(u.Email, "") {
		return ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicate
	}
	now := m.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	return m.find(func(u User) bool { return u.Email == email })
}

func (m *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	return m.find(func(u User) bool { return u.Username == username })
}

func (m *MemoryStore) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emailOwner(NormalizeEmail(email), exceptID), nil
}

func (m *MemoryStore) Save(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if m.emailOwner(u.Email, u.ID) {
		return ErrDuplicate
	}
	u.UpdatedAt = m.now().UTC()
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) find(match func(User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// caller holds the lock
func (m *MemoryStore) emailOwner(email, exceptID string) bool {
	for id, u := range m.users {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}
