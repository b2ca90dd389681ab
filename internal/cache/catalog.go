// Package cache holds the redis-backed read caches: a time-boxed copy of the
// catalog listing and a small ring buffer of recent try-on results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"server/internal/domain"
)

const (
	catalogKey = "tryon:catalog"
	recentsKey = "tryon:recents"
)

// CatalogCache keeps one serialized catalog listing with a TTL so browse
// traffic does not hammer the database between admin edits.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache constructs a cache with the given listing TTL.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Get returns the cached listing and true, or nil and false on a miss. Cache
// errors degrade to a miss; the caller falls through to the repository.
func (c *CatalogCache) Get(ctx context.Context) ([]domain.CatalogItem, bool) {
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var items []domain.CatalogItem
	if err := json.Unmarshal(raw, &items); err != nil {
		_ = c.client.Del(ctx, catalogKey).Err()
		return nil, false
	}
	return items, true
}

// Set stores the listing for the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, items []domain.CatalogItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, raw, c.ttl).Err()
}

// Invalidate drops the cached listing. Called on every catalog mutation.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	err := c.client.Del(ctx, catalogKey).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// RecentsStore keeps the newest finished composites in a capped list:
// LPUSH + LTRIM gives a ring buffer without any bookkeeping.
type RecentsStore struct {
	client *redis.Client
	limit  int
}

// NewRecentsStore constructs a recents buffer capped at limit entries.
func NewRecentsStore(client *redis.Client, limit int) *RecentsStore {
	if limit <= 0 {
		limit = 12
	}
	return &RecentsStore{client: client, limit: limit}
}

// Push prepends one result and trims the buffer to its cap.
func (s *RecentsStore) Push(ctx context.Context, result domain.RecentResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, recentsKey, raw)
	pipe.LTrim(ctx, recentsKey, 0, int64(s.limit-1))
	_, err = pipe.Exec(ctx)
	return err
}

// List returns up to limit entries, newest first. limit <= 0 means the full
// buffer.
func (s *RecentsStore) List(ctx context.Context, limit int) ([]domain.RecentResult, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	raws, err := s.client.LRange(ctx, recentsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	results := make([]domain.RecentResult, 0, len(raws))
	for _, raw := range raws {
		var r domain.RecentResult
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
