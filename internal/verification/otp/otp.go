// Package otp issues and checks short-lived one-time codes. Codes are stored
// only as bcrypt hashes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"jojo/pkg/platform/sentinel"
)

// ErrInvalidCode is returned when the code does not match the issued one.
var ErrInvalidCode = errors.New("invalid code")

const (
	codeDigits         = 6
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// Entry is the stored state of one issued code.
type Entry struct {
	Hash      string
	Attempts  int
	ExpiresAt time.Time
}

// Store persists entries by key with a TTL.
type Store interface {
	Save(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	IncrementAttempts(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, key string) error
}

// Key names the code slot for one instructor and channel.
func Key(instructorID, channel string) string {
	return "jojo:otp:" + channel + ":" + instructorID
}

type Manager struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	cost        int
	now         func() time.Time
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithHashCost sets the bcrypt cost (tests use bcrypt.MinCost).
func WithHashCost(cost int) Option {
	return func(m *Manager) {
		m.cost = cost
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		cost:        bcrypt.DefaultCost,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns how long issued codes stay valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue generates a fresh code for key, replacing any outstanding one.
func (m *Manager) Issue(ctx context.Context, key string) (string, time.Time, error) {
	code, err := generateCode()
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), m.cost)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("hash code: %w", err)
	}
	expiresAt := m.now().Add(m.ttl)
	if err := m.store.Save(ctx, key, Entry{Hash: string(hash), ExpiresAt: expiresAt}, m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("save code: %w", err)
	}
	return code, expiresAt, nil
}

// Verify checks code against the outstanding entry. A match consumes the code.
// Returns sentinel.ErrExpired when no live code exists, sentinel.ErrExhausted
// once the attempt budget is spent, and ErrInvalidCode on mismatch.
func (m *Manager) Verify(ctx context.Context, key, code string) error {
	entry, err := m.store.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return sentinel.ErrExpired
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if !m.now().Before(entry.ExpiresAt) {
		_ = m.store.Delete(ctx, key)
		return sentinel.ErrExpired
	}
	if entry.Attempts >= m.maxAttempts {
		_ = m.store.Delete(ctx, key)
		return sentinel.ErrExhausted
	}

	if bcrypt.CompareHashAndPassword([]byte(entry.Hash), []byte(code)) != nil {
		attempts, err := m.store.IncrementAttempts(ctx, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrExpired
		}
		if err != nil {
			return fmt.Errorf("count attempt: %w", err)
		}
		if attempts >= m.maxAttempts {
			_ = m.store.Delete(ctx, key)
			return sentinel.ErrExhausted
		}
		return ErrInvalidCode
	}

	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

// Revoke discards any outstanding code for key.
func (m *Manager) Revoke(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

func generateCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
