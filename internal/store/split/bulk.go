package split

import (
	"context"
	"sync"
)

type bulkKey struct{}

// bulkState carries the working branch heads of one in-flight bulk operation.
// Mutations inside the bulk scope move these instead of the database pointers;
// the database sees a single compare-and-swap per branch at commit.
type bulkState struct {
	mu       sync.Mutex
	courseID string

	entryDraft     string
	entryPublished string
	draft          string
	published      string

	publishPending bool
}

func withBulk(ctx context.Context, bs *bulkState) context.Context {
	return context.WithValue(ctx, bulkKey{}, bs)
}

func bulkFrom(ctx context.Context, courseID string) *bulkState {
	bs, _ := ctx.Value(bulkKey{}).(*bulkState)
	if bs == nil || bs.courseID != courseID {
		return nil
	}
	return bs
}

func (b *bulkState) heads() (draft, published string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft, b.published
}

func (b *bulkState) setHead(column, version string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if column == "published_version" {
		b.published = version
	} else {
		b.draft = version
	}
}

func (b *bulkState) markPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishPending = true
}
