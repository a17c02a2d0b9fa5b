package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/localserve/service-booking/internal/domain/provider"
)

const providerCachePrefix = "booking:providers:"

// CachedProviderDirectory is a read-through Redis cache in front of another
// Directory. Redis failures are logged and served from the inner directory.
type CachedProviderDirectory struct {
	inner  provider.Directory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProviderDirectory creates a new CachedProviderDirectory.
func NewCachedProviderDirectory(inner provider.Directory, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProviderDirectory {
	return &CachedProviderDirectory{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func providerKey(id uuid.UUID) string {
	return fmt.Sprintf("%sid:%s", providerCachePrefix, id)
}

// eligibleKey is independent of the order of exclude.
func eligibleKey(serviceID uuid.UUID, exclude []uuid.UUID) string {
	ids := make([]string, len(exclude))
	for i, id := range exclude {
		ids[i] = id.String()
	}
	slices.Sort(ids)
	return fmt.Sprintf("%seligible:%s:%s", providerCachePrefix, serviceID, strings.Join(ids, ","))
}

// FindByID returns the cached provider or loads it from the inner directory.
func (c *CachedProviderDirectory) FindByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	key := providerKey(id)
	var cached provider.Provider
	if c.get(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, p)
	return p, nil
}

// FindEligible returns the cached candidate list or loads it from the inner directory.
func (c *CachedProviderDirectory) FindEligible(ctx context.Context, serviceID uuid.UUID, exclude []uuid.UUID) ([]provider.Candidate, error) {
	key := eligibleKey(serviceID, exclude)
	var cached []provider.Candidate
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	candidates, err := c.inner.FindEligible(ctx, serviceID, exclude)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, candidates)
	return candidates, nil
}

// Invalidate drops every cached entry.
func (c *CachedProviderDirectory) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, providerCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *CachedProviderDirectory) get(ctx context.Context, key string, v interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("provider cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn("provider cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedProviderDirectory) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("provider cache write failed", zap.String("key", key), zap.Error(err))
	}
}
