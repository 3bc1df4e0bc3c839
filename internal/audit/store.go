package audit

import (
	"context"
	"sort"
	"sync"
)

// Store persists events for the admin history view.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVerification(ctx context.Context, verificationID string) ([]Event, error)
}

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.VerificationID] = append(s.events[event.VerificationID], event)
	return nil
}

func (s *InMemoryStore) ListByVerification(_ context.Context, verificationID string) ([]Event, error) {
	s.mu.RLock()
	out := append([]Event{}, s.events[verificationID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
