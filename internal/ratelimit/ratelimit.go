// Package ratelimit enforces sliding-window limits on one-time-code sends.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	// Hit identifies the admitted hit for Release. Empty when not allowed.
	Hit string
}

// Store consumes and resets sliding-window budgets.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	// Release returns one admitted hit to the budget. Unknown hits are ignored.
	Release(ctx context.Context, key, hit string) error
	Reset(ctx context.Context, keys ...string) error
}

// Channel identifies where a code is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// SendKey is the bucket for code sends to one instructor over one channel.
func SendKey(instructorID string, channel Channel) string {
	return "jojo:code_send:" + string(channel) + ":" + instructorID
}

// SendKeys returns the buckets for every channel of one instructor.
func SendKeys(instructorID string) []string {
	return []string{SendKey(instructorID, ChannelEmail), SendKey(instructorID, ChannelPhone)}
}

func retryAfter(allowed bool, resetAt, now time.Time) time.Duration {
	if allowed {
		return 0
	}
	d := resetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
