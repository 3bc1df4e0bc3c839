package ratelimit

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	psync "jojo/pkg/platform/sync"
)

// InMemory implements Store with per-key sliding windows.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	locks   *psync.ShardedMutex
	now     func() time.Time
}

type slidingWindow struct {
	hits []hit
}

type hit struct {
	at time.Time
	id string
}

// tryConsume records one hit if the window has room.
func (sw *slidingWindow) tryConsume(limit int, window time.Duration, now time.Time) (allowed bool, remaining int, resetAt time.Time, id string) {
	sw.cleanupExpired(window, now)

	if len(sw.hits) >= limit {
		return false, 0, sw.hits[0].at.Add(window), ""
	}
	id = ulid.Make().String()
	sw.hits = append(sw.hits, hit{at: now, id: id})
	return true, limit - len(sw.hits), sw.hits[0].at.Add(window), id
}

func (sw *slidingWindow) cleanupExpired(window time.Duration, now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.hits); i++ {
		if sw.hits[i].at.After(cutoff) {
			break
		}
	}
	sw.hits = sw.hits[i:]
}

func (sw *slidingWindow) release(id string) {
	sw.hits = slices.DeleteFunc(sw.hits, func(h hit) bool { return h.id == id })
}

type MemoryOption func(*InMemory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemory) {
		s.now = now
	}
}

func NewInMemory(opts ...MemoryOption) *InMemory {
	s := &InMemory{
		windows: make(map[string]*slidingWindow),
		locks:   psync.NewShardedMutex(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) window(key string) *slidingWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key]
	if !ok {
		w = &slidingWindow{}
		s.windows[key] = w
	}
	return w
}

func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	w := s.window(key)
	now := s.now()

	var res Result
	_ = s.locks.WithLock(key, func() error {
		allowed, remaining, resetAt, id := w.tryConsume(limit, window, now)
		res = Result{
			Allowed:    allowed,
			Limit:      limit,
			Remaining:  remaining,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(allowed, resetAt, now),
			Hit:        id,
		}
		return nil
	})
	return res, nil
}

func (s *InMemory) Release(_ context.Context, key, id string) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	w, ok := s.windows[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.locks.WithLock(key, func() error {
		w.release(id)
		return nil
	})
}

func (s *InMemory) Reset(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.windows, key)
	}
	return nil
}
