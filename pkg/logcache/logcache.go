// Package logcache is the gateway to the short-TTL live log store.
//
// Missing or expired keys are a normal condition; consumers fall back to
// the archived logs in object storage.
package logcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL bounds how long a live log outlives its last write. Reads do not
// refresh it.
const TTL = 30 * time.Minute

type Cache interface {
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns false when the key is missing or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetEx writes value under key with the cache TTL.
	SetEx(ctx context.Context, key string, value string) error

	// Append extends the buffer under key with chunk, re-arming the TTL.
	// The caller is the single logical writer per key, so the
	// read-modify-write does not race.
	Append(ctx context.Context, key string, chunk string) error
}

type redisCache struct {
	client *redis.Client
}

// New connects to the cache at url (redis://...).
func New(url string) (Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing cache url: %w", err)
	}
	return &redisCache{client: redis.NewClient(opts)}, nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("probing %s: %w", key, err)
	}
	return 0 < n, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

func (c *redisCache) SetEx(ctx context.Context, key string, value string) error {
	if err := c.client.SetEx(ctx, key, value, TTL).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Append(ctx context.Context, key string, chunk string) error {
	buffered, _, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return c.SetEx(ctx, key, buffered+chunk)
}
