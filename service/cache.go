// file: service/cache.go

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"go-school-api/logger"
	"go-school-api/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient defines the contract for a cache client.
// This abstraction decouples the principal cache from a concrete Redis
// implementation, enabling easier testing and future flexibility.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const principalCacheTTL = 5 * time.Minute

// PrincipalCache keeps recently resolved principals in Redis so the
// authorization gate does not hit Postgres on every request. Entries never
// contain the password hash. Invalidate is called on password change.
type PrincipalCache struct {
	client ICacheClient
}

// NewPrincipalCache wraps a cache client. A nil client yields a cache that
// always misses, which is what tests and cache-less deployments want.
func NewPrincipalCache(client ICacheClient) *PrincipalCache {
	return &PrincipalCache{client: client}
}

func principalCacheKey(kind model.PrincipalKind, id int) string {
	return fmt.Sprintf("principal:%s:%d", kind, id)
}

func (c *PrincipalCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *PrincipalCache) GetSchool(ctx context.Context, id int) (*model.School, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, principalCacheKey(model.KindAdmin, id)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("Failed to read school from cache")
		}
		return nil, false
	}
	school := &model.School{}
	if err := json.Unmarshal([]byte(data), school); err != nil {
		return nil, false
	}
	return school, true
}

func (c *PrincipalCache) SetSchool(ctx context.Context, school *model.School) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(school) // Password carries json:"-", hashes stay out of the cache
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, principalCacheKey(model.KindAdmin, school.ID), data, principalCacheTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to cache school")
	}
}

func (c *PrincipalCache) GetStudent(ctx context.Context, id int) (*model.Student, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, principalCacheKey(model.KindStudent, id)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("Failed to read student from cache")
		}
		return nil, false
	}
	student := &model.Student{}
	if err := json.Unmarshal([]byte(data), student); err != nil {
		return nil, false
	}
	return student, true
}

func (c *PrincipalCache) SetStudent(ctx context.Context, student *model.Student) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(student)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, principalCacheKey(model.KindStudent, student.ID), data, principalCacheTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to cache student")
	}
}

// Invalidate drops a principal's cache entry.
func (c *PrincipalCache) Invalidate(ctx context.Context, kind model.PrincipalKind, id int) {
	if !c.enabled() {
		return
	}
	if err := c.client.Del(ctx, principalCacheKey(kind, id)).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to invalidate principal cache entry")
	}
}
