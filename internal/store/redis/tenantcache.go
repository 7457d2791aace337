package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/cardvault/internal/domain"
)

// ErrMiss is returned by TenantCache.Get when the slug is not cached.
var ErrMiss = errors.New("redis: tenant not cached")

const DefaultTTL = 5 * time.Minute

// TenantCache caches tenant records by slug so request-time tenant
// resolution does not hit the database on every call.
type TenantCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*TenantCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client. A non-positive ttl uses DefaultTTL.
func NewWithClient(client *redis.Client, ttl time.Duration) *TenantCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TenantCache{client: client, ttl: ttl}
}

func (c *TenantCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("redis.TenantCache.Close: %w", err)
	}
	return nil
}

func (c *TenantCache) Get(ctx context.Context, slug string) (*domain.Tenant, error) {
	raw, err := c.client.Get(ctx, TenantKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis.TenantCache.Get: %w", err)
	}

	var t domain.Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("redis.TenantCache.Get: decode: %w", err)
	}
	return &t, nil
}

func (c *TenantCache) Set(ctx context.Context, t *domain.Tenant) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis.TenantCache.Set: encode: %w", err)
	}
	if err := c.client.Set(ctx, TenantKey(t.Slug), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis.TenantCache.Set: %w", err)
	}
	return nil
}

// Invalidate drops the given slugs. Tenant updates call it with both the old
// and the new slug.
func (c *TenantCache) Invalidate(ctx context.Context, slugs ...string) error {
	if len(slugs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, TenantKey(s))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis.TenantCache.Invalidate: %w", err)
	}
	return nil
}

// TenantKey returns the cache key for a tenant slug.
func TenantKey(slug string) string {
	return "cardvault:tenant:" + slug
}
