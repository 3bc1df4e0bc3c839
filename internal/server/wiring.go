package server

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"jojo/internal/audit"
	"jojo/internal/messaging/email"
	"jojo/internal/messaging/sms"
	"jojo/internal/platform/config"
	"jojo/internal/ratelimit"
	"jojo/internal/storage/blob"
	"jojo/internal/verification/handler"
	"jojo/internal/verification/metrics"
	"jojo/internal/verification/otp"
	"jojo/internal/verification/service"
	"jojo/pkg/platform/circuit"
)

// Backends are the infrastructure adapters behind the verification service.
// cmd/server swaps in Mongo, Redis, Kafka and the real providers; tests and
// local development run on the in-memory set.
type Backends struct {
	Records     service.Store
	Codes       otp.Store
	Limits      ratelimit.Store
	AuditStore  audit.Store
	AuditSinks  []audit.Sink
	EmailSender email.Sender
	SMSSender   sms.Sender
	Blobs       blob.Store

	// CodeOptions are appended after the configured TTL and attempt limit.
	CodeOptions []otp.Option
}

// InMemoryBackends returns process-local adapters for every backend.
func InMemoryBackends(records service.Store, logger *slog.Logger) Backends {
	return Backends{
		Records:     records,
		Codes:       otp.NewInMemory(),
		Limits:      ratelimit.NewInMemory(),
		AuditStore:  audit.NewInMemoryStore(),
		EmailSender: email.NewMemorySender(logger),
		SMSSender:   sms.NewMemorySender(logger),
		Blobs:       blob.NewInMemory("http://localhost/uploads"),
	}
}

// Verification is the wired verification bounded context.
type Verification struct {
	Service   *service.Service
	Handler   *handler.Handler
	Publisher *audit.Publisher
}

// NewVerification builds the service and HTTP handler over b. Metrics are
// registered with reg.
func NewVerification(cfg *config.Config, b Backends, reg prometheus.Registerer, logger *slog.Logger) *Verification {
	v := cfg.Verification

	breaker := func(name string) *circuit.Breaker {
		return circuit.New(name,
			circuit.WithFailureThreshold(v.BreakerThreshold),
			circuit.WithCooldown(v.BreakerCooldown),
		)
	}

	pubOpts := []audit.PublisherOption{
		audit.WithPublisherLogger(logger),
		audit.WithAsyncBuffer(v.AuditBuffer),
	}
	for _, sink := range b.AuditSinks {
		pubOpts = append(pubOpts, audit.WithSink(sink))
	}
	publisher := audit.NewPublisher(b.AuditStore, pubOpts...)

	codeOpts := append([]otp.Option{
		otp.WithTTL(v.CodeTTL),
		otp.WithMaxAttempts(v.CodeMaxAttempts),
	}, b.CodeOptions...)

	svc := service.New(service.Deps{
		Store:   b.Records,
		Codes:   otp.NewManager(b.Codes, codeOpts...),
		Limiter: b.Limits,
		Mailer:  email.NewMailer(b.EmailSender, breaker("email"), logger),
		SMS:     sms.NewNotifier(b.SMSSender, breaker("sms"), logger),
		Blobs:   b.Blobs,
		Auditor: publisher,
	}, logger,
		service.WithMetrics(metrics.New(reg)),
		service.WithSendLimit(v.SendLimit, v.SendWindow),
		service.WithConflictRetries(v.ConflictRetries),
	)

	h := handler.New(svc, svc, logger,
		handler.WithJSONLimit(cfg.Server.BodyLimitBytes),
		handler.WithUploadLimit(v.UploadMaxBytes),
	)

	return &Verification{Service: svc, Handler: h, Publisher: publisher}
}
