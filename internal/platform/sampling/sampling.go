// Package sampling rate-limits high-volume event streams. Each event name
// gets a full burst at the start of every window, then a keep-one-in-N
// thinning whose modulus is re-derived at every window rollover from the
// previous window's volume, so the admit count tracks the burst target as
// traffic rises and falls. Rare events always land, hot ones stay bounded.
package sampling

import (
	"sync"
	"time"
)

type bucket struct {
	windowStart time.Time
	seen        int
	rate        int
}

type Sampler struct {
	window time.Duration
	burst  int
	rate   int
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New builds a sampler keeping the first burst events per name per window and
// one in rate afterwards. rate is only the starting modulus: each rollover
// replaces it with one derived from the window just closed. Non-positive
// arguments fall back to defaults.
func New(window time.Duration, burst, rate int) *Sampler {
	if window <= 0 {
		window = time.Minute
	}
	if burst <= 0 {
		burst = 100
	}
	if rate <= 0 {
		rate = 10
	}
	return &Sampler{
		window:  window,
		burst:   burst,
		rate:    rate,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

// Allow reports whether this occurrence of the named event should be kept.
func (s *Sampler) Allow(name string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buckets[name]
	if b == nil {
		b = &bucket{windowStart: now, rate: s.rate}
		s.buckets[name] = b
	} else if now.Sub(b.windowStart) >= s.window {
		b.rate = nextRate(b.seen, s.burst)
		b.windowStart = now
		b.seen = 0
	}
	b.seen++
	if b.seen <= s.burst {
		return true
	}
	return (b.seen-s.burst)%b.rate == 0
}

// nextRate derives the next window's modulus from the volume of the one just
// closed: overshooting the burst target tightens proportionally, a quiet
// window loosens back toward keeping everything.
func nextRate(prevSeen, burst int) int {
	r := (prevSeen + burst - 1) / burst
	if r < 1 {
		r = 1
	}
	return r
}

// Seen reports how many occurrences of name landed in the current window.
func (s *Sampler) Seen(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.buckets[name]; b != nil {
		return b.seen
	}
	return 0
}
