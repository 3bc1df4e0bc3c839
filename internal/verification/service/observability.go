package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jojo/internal/audit"
	"jojo/internal/platform/privacy"
	"jojo/internal/verification/models"
	"jojo/pkg/requestcontext"
)

// startSpan opens a span and returns a finisher that records the error and latency.
func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "verification."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
		s.metrics.ObserveOperation(op, time.Since(start).Seconds())
	}
}

func (s *Service) emitAudit(ctx context.Context, rec *models.Record, action audit.Action, step models.Step, detail string) {
	principal, _ := requestcontext.GetPrincipal(ctx)
	event := audit.Event{
		VerificationID: rec.ID.String(),
		InstructorID:   rec.InstructorID.String(),
		ActorID:        principal.UserID.String(),
		ActorRole:      string(principal.Role),
		Action:         action,
		Step:           string(step),
		Detail:         detail,
		RequestID:      requestcontext.RequestID(ctx),
		Device:         requestcontext.Device(ctx),
		ClientIP:       privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		Timestamp:      requestcontext.Now(ctx),
	}
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"verification_id", event.VerificationID,
			"error", err,
		)
	}
}

func (s *Service) cleanupBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete stale upload",
				"key", key,
				"error", err,
			)
		}
	}
}
