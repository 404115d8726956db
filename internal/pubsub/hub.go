// Package pubsub is the in-process signal hub for content-change
// notifications. Subscribers register at startup; Emit runs them
// synchronously in registration order and logs (never propagates) their
// errors, so a failing listener cannot roll back the publish that fired it.
package pubsub

import (
	"context"
	"sync"

	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/platform/logger"
)

type Topic string

const (
	CoursePublished Topic = "course_published"
	CourseDeleted   Topic = "course_deleted"
)

// Handler receives the course key the signal is about. Handlers must be
// idempotent: a retried publish may fire the same signal twice.
type Handler func(ctx context.Context, course keys.CourseKey) error

type subscriber struct {
	name string
	fn   Handler
}

type Hub struct {
	log *logger.Logger

	mu     sync.RWMutex
	topics map[Topic][]subscriber
}

func NewHub(baseLog *logger.Logger) *Hub {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Hub{
		log:    baseLog.With("service", "SignalHub"),
		topics: map[Topic][]subscriber{},
	}
}

// Subscribe registers a named handler for a topic. Registration is expected
// at startup; the table is append-only until shutdown.
func (h *Hub) Subscribe(topic Topic, name string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.topics[topic] = append(h.topics[topic], subscriber{name: name, fn: fn})
}

// Emit invokes every subscriber of the topic synchronously, in registration
// order. Subscriber errors are logged and swallowed.
func (h *Hub) Emit(ctx context.Context, topic Topic, course keys.CourseKey) {
	h.mu.RLock()
	subs := h.topics[topic]
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.fn(ctx, course); err != nil {
			h.log.Error("signal handler failed",
				"topic", string(topic),
				"handler", s.name,
				"course", course.String(),
				"error", err,
			)
		}
	}
}
