package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"HoldemTable/internal/game/table"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGame(id string) *table.GameState {
	return table.NewGameState(id, []string{"0xA", "0xB", "0xC"}, table.Settings{
		BuyIn: 1000, BigBlind: 20, MinPlayers: 2, MaxPlayers: 6,
	}, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
}

// runContract checks the behaviour every Store must share.
func runContract(t *testing.T, s Store) {
	ctx := context.Background()
	id := uuid.NewString()

	t.Run("load missing", func(t *testing.T) {
		_, _, err := s.Load(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Save(ctx, id, newGame(id), 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create and load", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, newGame(id)))
		assert.ErrorIs(t, s.Create(ctx, newGame(id)), ErrExists)

		g, v, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
		assert.Equal(t, id, g.ID)
		assert.Equal(t, table.StageGameOver, g.Stage)
		require.Len(t, g.Players, 3)
		assert.Equal(t, int64(1000), g.Players[2].Chips)
		require.NotNil(t, g.GameOverTimeStamp)
		assert.True(t, g.GameOverTimeStamp.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("save bumps version", func(t *testing.T) {
		g, v, err := s.Load(ctx, id)
		require.NoError(t, err)
		g.Players[0].IsReady = true

		nv, err := s.Save(ctx, id, g, v)
		require.NoError(t, err)
		assert.Equal(t, v+1, nv)

		got, gv, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, nv, gv)
		assert.True(t, got.Players[0].IsReady)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		g, v, err := s.Load(ctx, id)
		require.NoError(t, err)
		_, err = s.Save(ctx, id, g, v)
		require.NoError(t, err)

		g.Players[1].IsReady = true
		_, err = s.Save(ctx, id, g, v)
		assert.ErrorIs(t, err, ErrVersionConflict)

		got, _, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.Players[1].IsReady)
	})

	t.Run("concurrent saves from one snapshot", func(t *testing.T) {
		g, v, err := s.Load(ctx, id)
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Save(ctx, id, g, v); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("list and delete", func(t *testing.T) {
		other := uuid.NewString()
		require.NoError(t, s.Create(ctx, newGame(other)))

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
		assert.Contains(t, ids, other)

		require.NoError(t, s.Delete(ctx, other))
		ids, err = s.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, other)
		_, _, err = s.Load(ctx, other)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	runContract(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	g := newGame("t1")
	require.NoError(t, s.Create(ctx, g))

	g.Players[0].Chips = 1
	loaded, _, err := s.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), loaded.Players[0].Chips)

	loaded.Players[0].Chips = 2
	again, _, err := s.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), again.Players[0].Chips)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	runContract(t, NewRedisStore(rdb))
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, s.Create(ctx, newGame("t1")))

	assert.True(t, mr.Exists("game:state:t1"))
	assert.Equal(t, "1", mr.HGet("game:state:t1", "version"))
	ok, err := mr.SIsMember(gameIDsKey, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POKER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POKER_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	s, err := NewPostgresStore(context.Background(), db)
	require.NoError(t, err)
	runContract(t, s)
}

func ExampleStore() {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, newGame("t1"))

	g, v, _ := s.Load(ctx, "t1")
	g.Players[0].IsReady = true
	nv, _ := s.Save(ctx, "t1", g, v)
	_, err := s.Save(ctx, "t1", g, v)
	fmt.Println(nv, err)
	// Output: 2 version conflict: t1 at 2, expected 1
}
