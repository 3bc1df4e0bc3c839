// Package service implements the instructor verification workflow: the
// instructor-facing steps and the admin review decisions.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"jojo/internal/audit"
	"jojo/internal/ratelimit"
	"jojo/internal/storage/blob"
	"jojo/internal/verification/metrics"
	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
)

// Store persists verification records.
// Error Contract:
// - Find methods return sentinel.ErrNotFound when no record exists
// - Create returns sentinel.ErrAlreadyExists when the instructor already has a record
// - Update returns sentinel.ErrConflict when the stored version moved on
type Store interface {
	Create(ctx context.Context, r *models.Record) error
	FindByID(ctx context.Context, recordID id.VerificationID) (*models.Record, error)
	FindByInstructor(ctx context.Context, instructorID id.UserID) (*models.Record, error)
	Update(ctx context.Context, r *models.Record) error
	List(ctx context.Context, f models.ListFilter) ([]*models.Record, int64, error)
}

// CodeManager issues and checks one-time codes.
type CodeManager interface {
	Issue(ctx context.Context, key string) (string, time.Time, error)
	Verify(ctx context.Context, key, code string) error
	Revoke(ctx context.Context, key string) error
	TTL() time.Duration
}

// SendLimiter budgets code sends per instructor and channel.
type SendLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error)
	Release(ctx context.Context, key, hit string) error
	Reset(ctx context.Context, keys ...string) error
}

type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
	Approved(ctx context.Context, to, feedback string) error
	Rejected(ctx context.Context, to, reason string, allowResubmission bool) error
	InformationRequested(ctx context.Context, to, message string, steps []string) error
}

type SMSNotifier interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
}

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (blob.Object, error)
	Delete(ctx context.Context, key string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, verificationID string) ([]audit.Event, error)
}

const (
	defaultSendLimit       = 3
	defaultSendWindow      = 15 * time.Minute
	defaultConflictRetries = 3
)

// Service coordinates the record store with codes, notifications and uploads.
type Service struct {
	store   Store
	codes   CodeManager
	limiter SendLimiter
	mailer  Mailer
	sms     SMSNotifier
	blobs   BlobStore
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	sendLimit       int
	sendWindow      time.Duration
	conflictRetries int
}

// Deps groups the collaborators every Service needs.
type Deps struct {
	Store   Store
	Codes   CodeManager
	Limiter SendLimiter
	Mailer  Mailer
	SMS     SMSNotifier
	Blobs   BlobStore
	Auditor AuditPublisher
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithSendLimit caps code sends per channel within window.
func WithSendLimit(limit int, window time.Duration) Option {
	return func(s *Service) {
		if limit > 0 {
			s.sendLimit = limit
		}
		if window > 0 {
			s.sendWindow = window
		}
	}
}

// WithConflictRetries sets how many times a write is attempted before
// surfacing a conflict.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.conflictRetries = n
		}
	}
}

func New(deps Deps, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:           deps.Store,
		codes:           deps.Codes,
		limiter:         deps.Limiter,
		mailer:          deps.Mailer,
		sms:             deps.SMS,
		blobs:           deps.Blobs,
		auditor:         deps.Auditor,
		logger:          logger,
		tracer:          otel.Tracer("jojo/verification"),
		sendLimit:       defaultSendLimit,
		sendWindow:      defaultSendWindow,
		conflictRetries: defaultConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
