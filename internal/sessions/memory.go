package sessions

import (
	"context"
	"sort"
	"sync"

	"github.com/volition-run/volition/pkg/models"
)

// MemoryStore is an in-memory Store, generalized from the teacher's
// internal/sessions/memory.go (there keyed by agent/channel with a separate
// message log; here keyed directly by session id, matching FileStore's
// shape so the two are interchangeable in tests).
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionState
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.SessionState)}
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]models.SessionSummary, 0, len(m.sessions))
	for _, state := range m.sessions {
		summaries = append(summaries, models.SessionSummary{
			ID:           state.ID,
			CreatedAt:    state.CreatedAt,
			UpdatedAt:    state.UpdatedAt,
			Task:         state.Task,
			MessageCount: len(state.Messages),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*models.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, state *models.SessionState) error {
	if state == nil {
		return ErrSessionNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if state.ID == "" {
		state.ID = NewID()
	}
	m.sessions[state.ID] = state.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
