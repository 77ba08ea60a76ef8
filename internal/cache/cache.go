// Package cache provides a small read-through cache for expensive read models
// such as the statistics endpoints. Redis is optional: without it every read
// goes straight to the loader.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds raw cached values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RedisStore is a Store backed by a Redis client. Keys are namespaced by Prefix.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.Client.Get(ctx, s.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.Client.Set(ctx, s.Prefix+key, val, ttl).Err()
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error { return nil }

// Remember returns the cached JSON value under key, or calls load and caches
// its result for ttl. Cache failures are logged and never fail the read.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if s != nil && ttl > 0 {
		raw, ok, err := s.Get(ctx, key)
		switch {
		case err != nil:
			log.Printf("WARN: cache get %s: %v", key, err)
		case ok:
			var v T
			decodeErr := json.Unmarshal(raw, &v)
			if decodeErr == nil {
				return v, nil
			}
			log.Printf("WARN: cache decode %s: %v", key, decodeErr)
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if s != nil && ttl > 0 {
		raw, err := json.Marshal(v)
		if err != nil {
			log.Printf("WARN: cache encode %s: %v", key, err)
			return v, nil
		}
		if err := s.Set(ctx, key, raw, ttl); err != nil {
			log.Printf("WARN: cache set %s: %v", key, err)
		}
	}
	return v, nil
}
