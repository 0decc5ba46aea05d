package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"HoldemTable/internal/game/table"

	"github.com/redis/go-redis/v9"
)

// key layout:
//
//	hash: game:state:{id}  -> version, state (JSON)
//	set : game:ids         -> every stored id (for the sweeper)
const gameIDsKey = "game:ids"

func stateKey(gameID string) string {
	return fmt.Sprintf("game:state:%s", gameID)
}

// KEYS[1] = state key, KEYS[2] = id set, ARGV[1] = state, ARGV[2] = id
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1], "version", 1, "state", ARGV[1])
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`)

// KEYS[1] = state key, ARGV[1] = expected version, ARGV[2] = state
// returns the new version, -1 on conflict, -2 when missing
var saveScript = redis.NewScript(`
local v = redis.call("HGET", KEYS[1], "version")
if not v then
    return -2
end
if tonumber(v) ~= tonumber(ARGV[1]) then
    return -1
end
local nv = tonumber(v) + 1
redis.call("HSET", KEYS[1], "version", nv, "state", ARGV[2])
return nv
`)

type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (r *redisStore) Create(ctx context.Context, g *table.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	created, err := createScript.Run(ctx, r.rdb, []string{stateKey(g.ID), gameIDsKey}, data, g.ID).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return fmt.Errorf("%w: %s", ErrExists, g.ID)
	}
	return nil
}

func (r *redisStore) Load(ctx context.Context, gameID string) (*table.GameState, int64, error) {
	fields, err := r.rdb.HGetAll(ctx, stateKey(gameID)).Result()
	if err != nil {
		return nil, 0, err
	}
	raw, ok := fields["state"]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("corrupt version for %s: %w", gameID, err)
	}
	var g table.GameState
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, 0, fmt.Errorf("corrupt state for %s: %w", gameID, err)
	}
	return &g, version, nil
}

func (r *redisStore) Save(ctx context.Context, gameID string, g *table.GameState, expected int64) (int64, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return 0, err
	}
	v, err := saveScript.Run(ctx, r.rdb, []string{stateKey(gameID)}, expected, data).Int64()
	if err != nil {
		return 0, err
	}
	switch v {
	case -2:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	case -1:
		return 0, fmt.Errorf("%w: %s expected %d", ErrVersionConflict, gameID, expected)
	}
	return v, nil
}

func (r *redisStore) List(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, gameIDsKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *redisStore) Delete(ctx context.Context, gameID string) error {
	p := r.rdb.TxPipeline()
	p.Del(ctx, stateKey(gameID))
	p.SRem(ctx, gameIDsKey, gameID)
	_, err := p.Exec(ctx)
	return err
}
