// Package sms delivers one-time codes by text message.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jojo/internal/platform/privacy"
	"jojo/pkg/platform/circuit"
	"jojo/pkg/platform/sentinel"
)

// Sender delivers a text body to an E.164 number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Notifier formats verification texts and guards the provider with a breaker.
type Notifier struct {
	sender  Sender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewNotifier(sender Sender, breaker *circuit.Breaker, logger *slog.Logger) *Notifier {
	if breaker == nil {
		breaker = circuit.New("sms")
	}
	return &Notifier{sender: sender, breaker: breaker, logger: logger}
}

func (n *Notifier) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	body := fmt.Sprintf("Your Coding Jojo verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))

	if !n.breaker.Allow() {
		n.logger.WarnContext(ctx, "sms circuit open, skipping send", "to", privacy.MaskPhone(to))
		return fmt.Errorf("sms provider: %w", sentinel.ErrUnavailable)
	}
	if err := n.sender.Send(ctx, to, body); err != nil {
		if n.breaker.RecordFailure() {
			n.logger.ErrorContext(ctx, "sms circuit opened", "breaker", n.breaker.Name())
		}
		return err
	}
	n.breaker.RecordSuccess()
	n.logger.InfoContext(ctx, "sms sent", "to", privacy.MaskPhone(to))
	return nil
}
