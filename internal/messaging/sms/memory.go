package sms

import (
	"context"
	"log/slog"
	"sync"

	"jojo/internal/platform/privacy"
)

// Text is a captured outbound message.
type Text struct {
	To   string
	Body string
}

// MemorySender captures texts instead of sending them.
type MemorySender struct {
	mu       sync.Mutex
	texts    []Text
	logger   *slog.Logger
	failWith error
}

func NewMemorySender(logger *slog.Logger) *MemorySender {
	return &MemorySender{logger: logger}
}

func (s *MemorySender) Send(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.texts = append(s.texts, Text{To: to, Body: body})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "sms captured", "to", privacy.MaskPhone(to), "body", body)
	}
	return nil
}

func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemorySender) Last(to string) (Text, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.texts) - 1; i >= 0; i-- {
		if s.texts[i].To == to {
			return s.texts[i], true
		}
	}
	return Text{}, false
}
