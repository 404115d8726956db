// Package cache provides the two in-process caches the content core uses: a
// request-scoped namespaced cache carried on the context, and a read-through
// structure cache with single-flight miss coalescing and an optional Redis
// second tier.
package cache

import (
	"context"
	"sync"
)

type requestCacheKey struct{}

// RequestCache is a namespaced per-request scratch cache. It must be
// installed at request begin and dropped at request end; carry-over across
// requests is a defect, so there is no global fallback.
type RequestCache struct {
	mu         sync.Mutex
	namespaces map[string]map[string]interface{}
}

func NewRequestCache() *RequestCache {
	return &RequestCache{namespaces: map[string]map[string]interface{}{}}
}

// WithRequestCache installs a fresh cache on the context.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheKey{}, NewRequestCache())
}

// RequestCacheFrom returns the cache installed on the context, or nil when
// the caller is outside a request scope.
func RequestCacheFrom(ctx context.Context) *RequestCache {
	rc, _ := ctx.Value(requestCacheKey{}).(*RequestCache)
	return rc
}

func (c *RequestCache) Get(namespace, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns, ok := c.namespaces[namespace]
	if !ok {
		return nil, false
	}
	v, ok := ns[key]
	return v, ok
}

func (c *RequestCache) Set(namespace, key string, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ns, ok := c.namespaces[namespace]
	if !ok {
		ns = map[string]interface{}{}
		c.namespaces[namespace] = ns
	}
	ns[key] = v
}

// Clear empties one namespace.
func (c *RequestCache) Clear(namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.namespaces, namespace)
}

// ClearAll empties every namespace. Called at request begin and end.
func (c *RequestCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces = map[string]map[string]interface{}{}
}
