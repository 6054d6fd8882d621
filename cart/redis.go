package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each cart as a list under "<prefix>:<user id>". It lets several
// webhook replicas share carts; per-user locking still happens in Service.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to addr. A zero ttl keeps carts forever.
func NewRedis(addr string, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "cart",
		ttl:    ttl,
	}
}

func (r *Redis) key(userID int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, userID)
}

func (r *Redis) Append(ctx context.Context, userID int64, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	key := r.key(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, toArgs(keys)...)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *Redis) Items(ctx context.Context, userID int64) ([]string, error) {
	items, err := r.client.LRange(ctx, r.key(userID), 0, -1).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	return items, err
}

// Replace swaps the whole list atomically. Redis has no empty lists, so an
// emptied cart is simply a missing key.
func (r *Redis) Replace(ctx context.Context, userID int64, keys []string) error {
	key := r.key(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(keys) > 0 {
			pipe.RPush(ctx, key, toArgs(keys)...)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
		}
		return nil
	})
	return err
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func toArgs(keys []string) []interface{} {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}
