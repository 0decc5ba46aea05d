package matchmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// key layout:
//
//	set: mm:pool:{pool}:{tableSize}  -> queued addresses
//	kv : mm:player:{address}         -> pool key the address is queued in (TTL)
//	kv : mm:room:{id}                -> room JSON
//	kv : mm:playerRoom:{address}     -> room id
func playerKey(addr string) string {
	return fmt.Sprintf("mm:player:%s", addr)
}

func roomKey(id string) string {
	return fmt.Sprintf("mm:room:%s", id)
}

func playerRoomKey(addr string) string {
	return fmt.Sprintf("mm:playerRoom:%s", addr)
}

// KEYS[1] = player key, ARGV[1] = address; the pool key is read from the player key.
var removeScript = redis.NewScript(`
local pool = redis.call("GET", KEYS[1])
redis.call("DEL", KEYS[1])
if not pool then
    return 0
end
redis.call("SREM", pool, ARGV[1])
if redis.call("SCARD", pool) == 0 then
    redis.call("DEL", pool)
end
return 1
`)

type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

func (r *redisRepo) Enqueue(ctx context.Context, pool string, tableSize int, address string, ttl time.Duration) error {
	key := poolKey(pool, tableSize)
	p := r.rdb.TxPipeline()
	p.SAdd(ctx, key, address)
	p.Set(ctx, playerKey(address), key, ttl)
	_, err := p.Exec(ctx)
	return err
}

func (r *redisRepo) PopN(ctx context.Context, pool string, tableSize int, n int) ([]string, error) {
	// SPOP with a count is atomic; redis drops the set once it is empty
	res, err := r.rdb.SPopN(ctx, poolKey(pool, tableSize), int64(n)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(res) > 0 {
		p := r.rdb.Pipeline()
		for _, addr := range res {
			p.Del(ctx, playerKey(addr))
		}
		if _, err := p.Exec(ctx); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *redisRepo) Remove(ctx context.Context, address string) error {
	return removeScript.Run(ctx, r.rdb, []string{playerKey(address)}, address).Err()
}

func (r *redisRepo) Count(ctx context.Context, pool string, tableSize int) (int64, error) {
	return r.rdb.SCard(ctx, poolKey(pool, tableSize)).Result()
}

func (r *redisRepo) SaveRoom(ctx context.Context, room *Room, ttl time.Duration) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	p := r.rdb.TxPipeline()
	p.Set(ctx, roomKey(room.ID), data, ttl)
	for _, addr := range room.Players {
		p.Set(ctx, playerRoomKey(addr), room.ID, ttl)
	}
	_, err = p.Exec(ctx)
	return err
}

func (r *redisRepo) PlayerRoom(ctx context.Context, address string) (string, error) {
	val, err := r.rdb.Get(ctx, playerRoomKey(address)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
