package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

const scanBatch = 500

// Cache is the settlement query cache. Keys are stored verbatim under an
// optional prefix so several deployments can share one Redis database.
type Cache struct {
	client redis.UniversalClient
	prefix string
}

// NewCache wraps client. prefix may be empty.
func NewCache(client redis.UniversalClient, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return raw, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix and returns how many
// were deleted. SCAN is used so large keyspaces do not block the server.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	match := escapeGlob(c.prefix+prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("cache delete: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
