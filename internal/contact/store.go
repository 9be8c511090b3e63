package contact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by Revoke for unknown or already revoked leads.
var ErrNotFound = errors.New("contact message not found or already revoked")

type Store interface {
	// Save stores m. A message repeating a known SubmissionID is ignored.
	Save(ctx context.Context, m *Message) error
	List(ctx context.Context, f Filter) ([]Message, error)
	Revoke(ctx context.Context, id string) error
}

type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Save(ctx context.Context, m *Message) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "submission_id"}}, DoNothing: true}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("save contact message: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, f Filter) ([]Message, error) {
	q := s.db.WithContext(ctx).Model(&Message{})

	if f.Email != "" {
		q = q.Where(`LOWER(email) LIKE ? ESCAPE '\'`, likeContains(f.Email))
	}
	switch f.Status {
	case StatusActive:
		q = q.Where("revoked = ?", false)
	case StatusRevoked:
		q = q.Where("revoked = ?", true)
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if f.Order == "asc" {
		dir = "ASC"
	}

	var out []Message
	if err := q.Order(col + " " + dir).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeContains builds a case-insensitive substring pattern in which % and _
// match themselves.
func likeContains(needle string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(needle)) + "%"
}

func (s *GormStore) Revoke(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]any{"revoked": true, "revoked_at": s.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("revoke contact message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore keeps leads in memory for tests and database-less development.
type MemoryStore struct {
	mu   sync.Mutex
	msgs map[string]Message
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{msgs: make(map[string]Message), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.SubmissionID != nil {
		for _, existing := range m.msgs {
			if existing.SubmissionID != nil && *existing.SubmissionID == *msg.SubmissionID {
				return nil
			}
		}
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Source == "" {
		msg.Source = SourceForm
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now().UTC()
	}
	m.msgs[msg.ID] = *msg
	return nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(f.Email)
	out := make([]Message, 0, len(m.msgs))
	for _, msg := range m.msgs {
		if needle != "" && !strings.Contains(strings.ToLower(msg.Email), needle) {
			continue
		}
		if f.Status == StatusActive && msg.Revoked || f.Status == StatusRevoked && !msg.Revoked {
			continue
		}
		out = append(out, msg)
	}

	less := func(a, b Message) bool {
		switch f.Sort {
		case "email":
			return a.Email < b.Email
		case "full_name":
			return a.FullName < b.FullName
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Order == "asc" {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out, nil
}

func (m *MemoryStore) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok || msg.Revoked {
		return ErrNotFound
	}
	now := m.now().UTC()
	msg.Revoked = true
	msg.RevokedAt = &now
	m.msgs[id] = msg
	return nil
}
