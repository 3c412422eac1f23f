package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/allocation-service/internal/domain"
)

const conflictKeyPrefix = "conflicts:"

// AllWorkItems is the cache key segment for the unfiltered conflict set.
const AllWorkItems = "all"

type cachedConflicts struct {
	ComputedAt time.Time         `json:"computed_at"`
	Conflicts  []domain.Conflict `json:"conflicts"`
}

// ConflictCache stores computed conflict sets in Redis with a computed-at
// timestamp. Every assignment mutation invalidates. A nil client disables
// caching: all operations become no-ops and callers recompute.
type ConflictCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewConflictCache creates the cache. Client may be nil.
func NewConflictCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ConflictCache {
	return &ConflictCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached conflict set for a work item key, when present.
func (c *ConflictCache) Get(ctx context.Context, workItemID string) ([]domain.Conflict, time.Time, bool) {
	if c == nil || c.client == nil {
		return nil, time.Time{}, false
	}
	raw, err := c.client.Get(ctx, conflictKeyPrefix+workItemID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("conflict cache read failed", zap.Error(err))
		}
		return nil, time.Time{}, false
	}
	var entry cachedConflicts
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("conflict cache entry malformed", zap.Error(err))
		return nil, time.Time{}, false
	}
	return entry.Conflicts, entry.ComputedAt, true
}

// Set stores a computed conflict set for a work item key.
func (c *ConflictCache) Set(ctx context.Context, workItemID string, conflicts []domain.Conflict, computedAt time.Time) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(cachedConflicts{ComputedAt: computedAt, Conflicts: conflicts})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, conflictKeyPrefix+workItemID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("conflict cache write failed", zap.Error(err))
	}
}

// InvalidateAll drops every cached conflict set. Called on each assignment
// mutation so stale sets are never served.
func (c *ConflictCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, conflictKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("conflict cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("conflict cache invalidation failed", zap.Error(err))
	}
}
