package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v7"
)

// Redis adapts a go-redis client to the Cache interface for the shared,
// networked tier (§4.9, tier 2 of the token registry). DeletePattern uses
// SCAN rather than KEYS to avoid blocking the server on large keyspaces.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr (host:port). The connection is lazy; errors
// surface on first use, which Safe then logs and treats as a miss.
func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.WithContext(ctx).Get(key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.WithContext(ctx).Set(key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.WithContext(ctx).Del(key).Err()
}

func (r *Redis) DeletePattern(ctx context.Context, pattern string) error {
	c := r.client.WithContext(ctx)
	var cursor uint64
	for {
		keys, next, err := c.Scan(cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.Del(keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.WithContext(ctx).Exists(key).Result()
	return n > 0, err
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.client.WithContext(ctx).FlushDB().Err()
}

func (r *Redis) Mget(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	vals, err := r.client.WithContext(ctx).MGet(keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

func (r *Redis) Mset(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	c := r.client.WithContext(ctx)
	pipe := c.Pipeline()
	for k, v := range values {
		pipe.Set(k, v, ttl)
	}
	_, err := pipe.Exec()
	return err
}
