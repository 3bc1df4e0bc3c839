package email

import (
	"context"
	"log/slog"
	"sync"

	"jojo/internal/platform/privacy"
)

// MemorySender keeps sent messages in memory and logs them. Used when no
// provider is configured and by tests that need to read delivered codes.
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	logger   *slog.Logger
	failWith error
}

func NewMemorySender(logger *slog.Logger) *MemorySender {
	return &MemorySender{logger: logger}
}

func (s *MemorySender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.messages = append(s.messages, msg)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "email captured",
			"to", privacy.MaskEmail(msg.To),
			"subject", msg.Subject,
			"text", msg.Text,
		)
	}
	return nil
}

// FailWith makes subsequent sends return err (nil restores delivery).
func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Last returns the most recent message sent to addr.
func (s *MemorySender) Last(addr string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].To == addr {
			return s.messages[i], true
		}
	}
	return Message{}, false
}

func (s *MemorySender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
