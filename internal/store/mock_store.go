// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session    // keyed by session key
	turns       map[string][]*Turn     // keyed by session key
	escalations map[string]*Escalation // keyed by session key

	// AppendTurnErr, when set, is returned by AppendTurn to simulate
	// persistence failures.
	AppendTurnErr error

	// CreateEscalationErr, when set, is returned by CreateEscalation.
	CreateEscalationErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		sessions:    make(map[string]*Session),
		turns:       make(map[string][]*Turn),
		escalations: make(map[string]*Escalation),
	}
}

// GetOrCreateSession returns the session for key, creating it if absent.
func (m *MockStore) GetOrCreateSession(ctx context.Context, key string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key]; !ok {
		now := time.Now().UTC()
		m.sessions[key] = &Session{
			SessionKey: key,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return m.snapshotLocked(key), nil
}

// GetSession returns the session with ordered turns, or ErrNotFound.
func (m *MockStore) GetSession(ctx context.Context, key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.sessions[key]; !ok {
		return nil, ErrNotFound
	}
	return m.snapshotLocked(key), nil
}

// snapshotLocked copies the session and its turns. Callers hold the lock.
func (m *MockStore) snapshotLocked(key string) *Session {
	sess := *m.sessions[key]
	turns := make([]*Turn, len(m.turns[key]))
	for i, t := range m.turns[key] {
		turn := *t
		turns[i] = &turn
	}
	sess.Turns = turns
	return &sess
}

// AppendTurn appends a turn to the session transcript.
func (m *MockStore) AppendTurn(ctx context.Context, key, role, content string) (*Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendTurnErr != nil {
		return nil, m.AppendTurnErr
	}

	turn := &Turn{
		ID:         uuid.New().String(),
		SessionKey: key,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	m.turns[key] = append(m.turns[key], turn)

	if sess, ok := m.sessions[key]; ok {
		sess.UpdatedAt = turn.CreatedAt
	}

	copied := *turn
	return &copied, nil
}

// CreateEscalation stores an escalation, enforcing one per session key.
func (m *MockStore) CreateEscalation(ctx context.Context, esc *Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateEscalationErr != nil {
		return m.CreateEscalationErr
	}

	if _, ok := m.escalations[esc.SessionKey]; ok {
		return ErrDuplicateEscalation
	}

	e := *esc
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = EscalationStatusOpen
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))

	m.escalations[e.SessionKey] = &e
	return nil
}

// GetEscalationBySession returns the escalation for a session key.
func (m *MockStore) GetEscalationBySession(ctx context.Context, key string) (*Escalation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	esc, ok := m.escalations[key]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *esc
	return &copied, nil
}

// ListEscalations returns a page of escalations, newest first.
func (m *MockStore) ListEscalations(ctx context.Context, page, limit int) ([]*Escalation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	all := make([]*Escalation, 0, len(m.escalations))
	for _, esc := range m.escalations {
		copied := *esc
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []*Escalation{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	return all[start:end], total, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
