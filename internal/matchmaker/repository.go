package matchmaker

import (
	"context"
	"fmt"
	"time"
)

// Repo is the matchmaking queue: one pool per (pool, tableSize).
type Repo interface {
	Enqueue(ctx context.Context, pool string, tableSize int, address string, ttl time.Duration) error
	// PopN atomically removes up to n random players from the pool.
	PopN(ctx context.Context, pool string, tableSize int, n int) ([]string, error)
	// Remove takes address out of whatever pool it is queued in.
	Remove(ctx context.Context, address string) error
	Count(ctx context.Context, pool string, tableSize int) (int64, error)
	// SaveRoom records the room and maps each player to it.
	SaveRoom(ctx context.Context, room *Room, ttl time.Duration) error
	// PlayerRoom returns the room address is seated in, or "".
	PlayerRoom(ctx context.Context, address string) (string, error)
}

func poolKey(pool string, tableSize int) string {
	return fmt.Sprintf("mm:pool:%s:%d", pool, tableSize)
}
