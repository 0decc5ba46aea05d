package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"HoldemTable/internal/game/table"
)

type memEntry struct {
	version int64
	state   *table.GameState
}

type memStore struct {
	mu    sync.Mutex
	games map[string]memEntry
}

// NewMemoryStore keeps snapshots in process; for tests and single-node runs.
func NewMemoryStore() Store {
	return &memStore{games: make(map[string]memEntry)}
}

func (m *memStore) Create(ctx context.Context, g *table.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, g.ID)
	}
	m.games[g.ID] = memEntry{version: 1, state: g.Clone()}
	return nil
}

func (m *memStore) Load(ctx context.Context, gameID string) (*table.GameState, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.games[gameID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return e.state.Clone(), e.version, nil
}

func (m *memStore) Save(ctx context.Context, gameID string, g *table.GameState, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.games[gameID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if e.version != expected {
		return 0, fmt.Errorf("%w: %s at %d, expected %d", ErrVersionConflict, gameID, e.version, expected)
	}
	e = memEntry{version: e.version + 1, state: g.Clone()}
	m.games[gameID] = e
	return e.version, nil
}

func (m *memStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) Delete(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	return nil
}
