package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/platform/logger"
)

func TestRequestCacheNamespaces(t *testing.T) {
	ctx := WithRequestCache(context.Background())
	rc := RequestCacheFrom(ctx)
	if rc == nil {
		t.Fatalf("cache not installed")
	}
	rc.Set("ns1", "k", 1)
	rc.Set("ns2", "k", 2)
	if v, ok := rc.Get("ns1", "k"); !ok || v != 1 {
		t.Fatalf("ns1: %v %v", v, ok)
	}
	if v, ok := rc.Get("ns2", "k"); !ok || v != 2 {
		t.Fatalf("ns2: %v %v", v, ok)
	}
	rc.Clear("ns1")
	if _, ok := rc.Get("ns1", "k"); ok {
		t.Fatalf("ns1 not cleared")
	}
	if _, ok := rc.Get("ns2", "k"); !ok {
		t.Fatalf("ns2 cleared by ns1 Clear")
	}
	rc.ClearAll()
	if _, ok := rc.Get("ns2", "k"); ok {
		t.Fatalf("ClearAll left entries")
	}
}

func TestRequestCacheAbsentOutsideRequest(t *testing.T) {
	if rc := RequestCacheFrom(context.Background()); rc != nil {
		t.Fatalf("cache should be nil outside request scope")
	}
}

func TestStructureCacheSingleFlight(t *testing.T) {
	c := NewStructureCache(logger.NewNop(), nil, 0)
	course := keys.MakeCourseKey("EDX", "DEMO", "2024")

	var loads int32
	release := make(chan struct{})
	load := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return []byte("payload"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(context.Background(), course, "draft", "v1", load)
			if err != nil || string(got) != "payload" {
				t.Errorf("Get: %q %v", got, err)
			}
		}()
	}
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Fatalf("concurrent misses did not coalesce: %d loads", n)
	}
}

func TestStructureCacheEvictCourse(t *testing.T) {
	c := NewStructureCache(logger.NewNop(), nil, 0)
	ctx := context.Background()
	courseA := keys.MakeCourseKey("EDX", "A", "2024")
	courseB := keys.MakeCourseKey("EDX", "B", "2024")

	load := func(context.Context) ([]byte, error) { return []byte("x"), nil }
	for _, branch := range []string{"draft", "published"} {
		if _, err := c.Get(ctx, courseA, branch, "v1", load); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if _, err := c.Get(ctx, courseB, "draft", "v1", load); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("want 3 entries, got %d", c.Len())
	}

	if err := c.EvictCourse(ctx, courseA); err != nil {
		t.Fatalf("EvictCourse: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("eviction should span branches for one course only: %d", c.Len())
	}

	var reloaded int32
	if _, err := c.Get(ctx, courseA, "draft", "v1", func(context.Context) ([]byte, error) {
		atomic.AddInt32(&reloaded, 1)
		return []byte("y"), nil
	}); err != nil {
		t.Fatalf("Get after evict: %v", err)
	}
	if reloaded != 1 {
		t.Fatalf("evicted entry should reload")
	}
}
