package otp

import (
	"context"
	"sync"
	"time"

	"jojo/pkg/platform/sentinel"
)

// InMemory implements Store for development and tests.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]Entry), now: time.Now}
}

func (s *InMemory) Save(_ context.Context, key string, e Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ExpiresAt.IsZero() {
		e.ExpiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *InMemory) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemory) IncrementAttempts(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	e.Attempts++
	s.entries[key] = e
	return e.Attempts, nil
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
