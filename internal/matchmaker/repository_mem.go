package matchmaker

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type memRepo struct {
	mu      sync.Mutex
	pools   map[string]map[string]struct{} // pool key -> addresses
	players map[string]string              // address -> pool key
	rooms   map[string]string              // address -> room id
}

// NewMemoryRepo ignores TTLs; for tests and single-node runs.
func NewMemoryRepo() Repo {
	return &memRepo{
		pools:   make(map[string]map[string]struct{}),
		players: make(map[string]string),
		rooms:   make(map[string]string),
	}
}

func (m *memRepo) Enqueue(ctx context.Context, pool string, tableSize int, address string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := poolKey(pool, tableSize)
	if _, ok := m.pools[key]; !ok {
		m.pools[key] = make(map[string]struct{})
	}
	m.pools[key][address] = struct{}{}
	m.players[address] = key
	return nil
}

func (m *memRepo) PopN(ctx context.Context, pool string, tableSize int, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := poolKey(pool, tableSize)
	addrs := make([]string, 0, len(m.pools[key]))
	for a := range m.pools[key] {
		addrs = append(addrs, a)
	}
	rand.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
	if len(addrs) > n {
		addrs = addrs[:n]
	}

	for _, a := range addrs {
		delete(m.pools[key], a)
		delete(m.players, a)
	}
	if len(m.pools[key]) == 0 {
		delete(m.pools, key)
	}
	return addrs, nil
}

func (m *memRepo) Remove(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.players[address]
	if !ok {
		return nil
	}
	delete(m.pools[key], address)
	if len(m.pools[key]) == 0 {
		delete(m.pools, key)
	}
	delete(m.players, address)
	return nil
}

func (m *memRepo) Count(ctx context.Context, pool string, tableSize int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pools[poolKey(pool, tableSize)])), nil
}

func (m *memRepo) SaveRoom(ctx context.Context, room *Room, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range room.Players {
		m.rooms[a] = room.ID
	}
	return nil
}

func (m *memRepo) PlayerRoom(ctx context.Context, address string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[address], nil
}
