package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/platform/logger"
)

func TestEmitRunsSubscribersInOrder(t *testing.T) {
	h := NewHub(logger.NewNop())
	var order []string
	h.Subscribe(CoursePublished, "first", func(ctx context.Context, c keys.CourseKey) error {
		order = append(order, "first")
		return nil
	})
	h.Subscribe(CoursePublished, "second", func(ctx context.Context, c keys.CourseKey) error {
		order = append(order, "second")
		return nil
	})

	h.Emit(context.Background(), CoursePublished, keys.MakeCourseKey("EDX", "DEMO", "2024"))
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("subscribers ran out of order: %v", order)
	}
}

func TestEmitSwallowsSubscriberErrors(t *testing.T) {
	h := NewHub(logger.NewNop())
	ran := false
	h.Subscribe(CoursePublished, "boom", func(ctx context.Context, c keys.CourseKey) error {
		return errors.New("boom")
	})
	h.Subscribe(CoursePublished, "after", func(ctx context.Context, c keys.CourseKey) error {
		ran = true
		return nil
	})

	h.Emit(context.Background(), CoursePublished, keys.MakeCourseKey("EDX", "DEMO", "2024"))
	if !ran {
		t.Fatalf("subscriber after a failing one did not run")
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	h := NewHub(logger.NewNop())
	var published, deleted int
	h.Subscribe(CoursePublished, "p", func(ctx context.Context, c keys.CourseKey) error {
		published++
		return nil
	})
	h.Subscribe(CourseDeleted, "d", func(ctx context.Context, c keys.CourseKey) error {
		deleted++
		return nil
	})

	ck := keys.MakeCourseKey("EDX", "DEMO", "2024")
	h.Emit(context.Background(), CourseDeleted, ck)
	if published != 0 || deleted != 1 {
		t.Fatalf("cross-topic delivery: published=%d deleted=%d", published, deleted)
	}
}
