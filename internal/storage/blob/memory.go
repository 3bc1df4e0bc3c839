package blob

import (
	"context"
	"sync"

	"jojo/pkg/platform/sentinel"
)

// InMemory keeps uploads in process memory.
type InMemory struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	baseURL  string
	failWith error
}

func NewInMemory(baseURL string) *InMemory {
	if baseURL == "" {
		baseURL = "memory://uploads"
	}
	return &InMemory{objects: make(map[string][]byte), baseURL: baseURL}
}

func (s *InMemory) Put(_ context.Context, key, contentType string, data []byte) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return Object{}, s.failWith
	}
	s.objects[key] = append([]byte(nil), data...)
	return Object{Key: key, URL: s.baseURL + "/" + key, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// Has reports whether key is stored.
func (s *InMemory) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// FailWith makes subsequent Puts fail with err.
func (s *InMemory) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}
