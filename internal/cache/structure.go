package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/platform/logger"
)

// Loader materializes a structure payload on cache miss. The payload is
// opaque bytes here; the store owns the encoding.
type Loader func(ctx context.Context) ([]byte, error)

// StructureCache is the read-through cache for inflated course structures,
// keyed by (course, branch, version). Concurrent misses for one key coalesce
// into a single load. An optional Redis tier backs the in-process map so
// multiple processes share loads; Redis failures degrade to the loader.
type StructureCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string][]byte
	byCours map[string]map[string]struct{}
}

func NewStructureCache(baseLog *logger.Logger, rdb *goredis.Client, ttl time.Duration) *StructureCache {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &StructureCache{
		log:     baseLog.With("service", "StructureCache"),
		rdb:     rdb,
		ttl:     ttl,
		entries: map[string][]byte{},
		byCours: map[string]map[string]struct{}{},
	}
}

func cacheKey(course keys.CourseKey, branch, version string) string {
	return fmt.Sprintf("structure:%s:%s:%s", course.ID(), branch, version)
}

// Get returns the cached payload for (course, branch, version), loading it
// through load on miss. Versions are content addresses, so a hit can never
// be stale; eviction exists to bound memory and to honor publish signals.
func (c *StructureCache) Get(ctx context.Context, course keys.CourseKey, branch, version string, load Loader) ([]byte, error) {
	key := cacheKey(course, branch, version)

	c.mu.RLock()
	payload, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return payload, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		payload, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return payload, nil
		}

		if c.rdb != nil {
			if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
				c.store(course, key, raw)
				return raw, nil
			} else if err != goredis.Nil {
				c.log.Warn("redis read failed, falling back to loader", "key", key, "error", err)
			}
		}

		raw, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(course, key, raw)
		if c.rdb != nil {
			if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.log.Warn("redis write failed", "key", key, "error", err)
			}
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *StructureCache) store(course keys.CourseKey, key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
	id := course.ID()
	if c.byCours[id] == nil {
		c.byCours[id] = map[string]struct{}{}
	}
	c.byCours[id][key] = struct{}{}
}

// EvictCourse removes every cached entry for a course across branches and
// versions. Wired as a course_published subscriber.
func (c *StructureCache) EvictCourse(ctx context.Context, course keys.CourseKey) error {
	id := course.ID()

	c.mu.Lock()
	cacheKeys := c.byCours[id]
	delete(c.byCours, id)
	for key := range cacheKeys {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.rdb != nil && len(cacheKeys) > 0 {
		del := make([]string, 0, len(cacheKeys))
		for key := range cacheKeys {
			del = append(del, key)
		}
		if err := c.rdb.Del(ctx, del...).Err(); err != nil {
			c.log.Warn("redis evict failed", "course", id, "error", err)
		}
	}
	return nil
}

// Len reports the number of in-process entries, for tests and diagnostics.
func (c *StructureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
