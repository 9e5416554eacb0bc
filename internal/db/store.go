package db

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"elda-admin/internal/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// DefaultPreferences is what a user sees before saving anything.
func DefaultPreferences(userID string) models.Preferences {
	return models.Preferences{UserID: userID, FontSize: "medium", Theme: "light", Language: "en"}
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (models.Preferences, error)
	SavePreferences(ctx context.Context, p models.Preferences) (models.Preferences, error)
}

type AuditFilter struct {
	UserID   string
	Resource string
	RecordID string
	Action   string
	From     time.Time
	To       time.Time
	Limit    int
}

type AuditStore interface {
	InsertAudit(ctx context.Context, entry models.AuditLog) error
	ListAudit(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
}

type Store interface {
	PreferenceStore
	AuditStore
}

func clampLimit(n int) int {
	if n <= 0 || n > 200 {
		return 50
	}
	return n
}

// MemoryStore backs the console when no DATABASE_URL is configured.
type MemoryStore struct {
	mu    sync.Mutex
	prefs map[string]models.Preferences
	audit []models.AuditLog
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]models.Preferences), now: time.Now}
}

func (s *MemoryStore) GetPreferences(_ context.Context, userID string) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[userID]
	if !ok {
		return models.Preferences{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SavePreferences(_ context.Context, p models.Preferences) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now().UTC()
	s.prefs[p.UserID] = p
	return p, nil
}

func (s *MemoryStore) InsertAudit(_ context.Context, entry models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	s.audit = append(s.audit, entry)
	return nil
}

func (s *MemoryStore) ListAudit(_ context.Context, f AuditFilter) ([]models.AuditLog, error) {
	s.mu.Lock()
	out := slices.Clone(s.audit)
	s.mu.Unlock()

	out = slices.DeleteFunc(out, func(a models.AuditLog) bool {
		switch {
		case f.UserID != "" && a.UserID != f.UserID:
			return true
		case f.Resource != "" && a.Resource != f.Resource:
			return true
		case f.RecordID != "" && a.RecordID != f.RecordID:
			return true
		case f.Action != "" && a.Action != f.Action:
			return true
		case !f.From.IsZero() && a.CreatedAt.Before(f.From):
			return true
		case !f.To.IsZero() && a.CreatedAt.After(f.To):
			return true
		}
		return false
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit := clampLimit(f.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
