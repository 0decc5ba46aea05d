package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore keeps issued login nonces; each can be consumed once before it expires.
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	Consume(ctx context.Context, nonce string) (bool, error)
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type memNonces struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

func NewMemoryNonceStore() NonceStore {
	return &memNonces{now: time.Now, expires: make(map[string]time.Time)}
}

func (m *memNonces) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for n, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, n)
		}
	}
	m.expires[nonce] = now.Add(ttl)
	return nil
}

func (m *memNonces) Consume(ctx context.Context, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[nonce]
	if !ok {
		return false, nil
	}
	delete(m.expires, nonce)
	return m.now().Before(exp), nil
}

type redisNonces struct {
	rdb *redis.Client
}

func NewRedisNonceStore(rdb *redis.Client) NonceStore {
	return &redisNonces{rdb: rdb}
}

func nonceKey(nonce string) string {
	return fmt.Sprintf("auth:nonce:%s", nonce)
}

func (r *redisNonces) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return r.rdb.Set(ctx, nonceKey(nonce), 1, ttl).Err()
}

func (r *redisNonces) Consume(ctx context.Context, nonce string) (bool, error) {
	err := r.rdb.GetDel(ctx, nonceKey(nonce)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
