package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/digitalplanet/shopclient/internal/config"
)

const redisKeyPrefix = "shopclient:"

// RedisKV persists client state in Redis, for clients that share a session
// across machines.
type RedisKV struct {
	client redis.UniversalClient
	prefix string
}

// OpenRedis connects to the Redis server named by cfg.RedisAddr.
func OpenRedis(ctx context.Context, cfg config.StoreConfig) (*RedisKV, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("store redis_addr is required for the redis driver")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.AuthToken,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis store: %w", err)
	}
	return NewRedisKV(client), nil
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client, prefix: redisKeyPrefix}
}

// Get returns the stored value; ok is false when the key is absent.
func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	if r == nil || r.client == nil {
		return "", false, errors.New("store is not initialized")
	}
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fetch %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key without expiry.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if r == nil || r.client == nil {
		return errors.New("store is not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return errors.New("store is not initialized")
	}
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List scans keys under the client prefix.
func (r *RedisKV) List(ctx context.Context, q Query) ([]Entry, error) {
	if r == nil || r.client == nil {
		return nil, errors.New("store is not initialized")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(q.Key); key != "" && !q.All {
		value, ok, err := r.Get(ctx, key)
		if err != nil || !ok {
			return []Entry{}, err
		}
		return []Entry{{Key: key, Value: value}}, nil
	}

	pattern := r.prefix + "*"
	if !q.All {
		pattern = r.prefix + strings.TrimSpace(q.Prefix) + "*"
	}

	entries := []Entry{}
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), r.prefix)
		value, ok, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, Entry{Key: key, Value: value})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Close releases the Redis connection.
func (r *RedisKV) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
