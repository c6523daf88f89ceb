// Package cache holds the read-through cache for creator display names.
// Meeting listings resolve each distinct creator id to a username once and
// keep the answer in Redis; profile updates and deletions invalidate the
// entry. When Redis is unreachable the cache degrades to pass-through
// lookups instead of failing requests.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const nameTTL = 10 * time.Minute

type NameCache struct {
	client *redis.Client

	warnedUnavailable atomic.Bool
}

// NewNameCache connects using REDIS_HOST/REDIS_PORT/REDIS_PASSWORD. A
// failed ping returns a cache that bypasses Redis entirely.
func NewNameCache() *NameCache {
	host := strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("REDIS_PORT"))
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unavailable, display-name cache bypassed", "error", err)
		_ = client.Close()
		return &NameCache{client: nil}
	}

	return &NameCache{client: client}
}

func (c *NameCache) isUnavailable() bool {
	return c == nil || c.client == nil
}

func (c *NameCache) warnUnavailableOnce(err error) {
	if c == nil {
		return
	}
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		slog.Warn("Redis unavailable, display-name cache bypassed", "error", err)
	}
}

func nameKey(id uuid.UUID) string {
	return "meeting-service:creator-name:" + id.String()
}

// A tombstone marks ids that resolved to no profile, so deleted creators
// render as null without a repeated lookup.
const tombstone = "\x00missing"

// Resolve returns the display name for id, consulting Redis first and
// falling back to lookup. A lookup miss (nil, nil) is cached too.
func (c *NameCache) Resolve(ctx context.Context, id uuid.UUID, lookup func(context.Context, uuid.UUID) (*string, error)) (*string, error) {
	if !c.isUnavailable() {
		val, err := c.client.Get(ctx, nameKey(id)).Result()
		if err == nil {
			if val == tombstone {
				return nil, nil
			}
			return &val, nil
		}
		if !errors.Is(err, redis.Nil) {
			c.warnUnavailableOnce(err)
		}
	}

	name, err := lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if !c.isUnavailable() {
		stored := tombstone
		if name != nil {
			stored = *name
		}
		if err := c.client.Set(ctx, nameKey(id), stored, nameTTL).Err(); err != nil {
			c.warnUnavailableOnce(err)
		}
	}

	return name, nil
}

// Invalidate drops the cached name for id. Called on profile update and
// deletion.
func (c *NameCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c.isUnavailable() {
		return
	}
	if err := c.client.Del(ctx, nameKey(id)).Err(); err != nil {
		c.warnUnavailableOnce(err)
	}
}
