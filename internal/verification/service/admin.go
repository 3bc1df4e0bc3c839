package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"jojo/internal/audit"
	"jojo/internal/ratelimit"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	id "jojo/pkg/domain"
	"jojo/pkg/requestcontext"
)

// List returns one page of records for the admin queue.
func (s *Service) List(ctx context.Context, filter models.ListFilter) (_ *models.ListResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_list")
	defer end(&err)

	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.translate(ctx, err, "list verifications")
	}
	out := make([]models.SummaryResponse, 0, len(records))
	for _, r := range records {
		out = append(out, models.ToSummaryResponse(r))
	}
	return &models.ListResponse{
		Verifications: out,
		Pagination:    models.NewPagination(filter, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, recordID id.VerificationID) (_ *models.DetailResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_get", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	rec, err := s.loadByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	resp := models.ToDetailResponse(rec, requestcontext.Now(ctx))
	return &resp, nil
}

// History lists the audit timeline of one record, oldest first.
func (s *Service) History(ctx context.Context, recordID id.VerificationID) (_ *models.HistoryResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_history", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	if _, err := s.loadByID(ctx, recordID); err != nil {
		return nil, err
	}
	events, err := s.auditor.List(ctx, recordID.String())
	if err != nil {
		return nil, s.translate(ctx, err, "list history")
	}
	entries := make([]models.HistoryEntry, 0, len(events))
	for _, e := range events {
		entries = append(entries, models.HistoryEntry{
			Action:    string(e.Action),
			Step:      e.Step,
			Detail:    e.Detail,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			Device:    e.Device,
			Timestamp: e.Timestamp,
		})
	}
	return &models.HistoryResponse{VerificationID: recordID.String(), Events: entries}, nil
}

// ReviewCertificate records an admin decision on one certificate and
// re-derives the education status.
func (s *Service) ReviewCertificate(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, certID id.CertificateID, req *models.CertificateReviewRequest) (_ *models.CertificateReviewResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_review_certificate",
		attribute.String("verification_id", recordID.String()),
		attribute.String("status", req.Status),
	)
	defer end(&err)

	now := requestcontext.Now(ctx)
	var reviewed *models.Certificate
	rec, err := s.mutate(ctx, s.byID(recordID), func(r *models.Record) error {
		c, err := r.ReviewCertificate(certID, models.ReviewStatus(req.Status), req.Notes, reviewer, now)
		reviewed = c
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, rec, audit.ActionCertificateReviewed, models.StepEducationCertificate, certID.String()+":"+req.Status)
	return &models.CertificateReviewResponse{
		Message:               "Certificate review recorded",
		Certificate:           models.ToCertificateResponse(*reviewed, now),
		EducationVerification: models.ToEducationResponse(rec.Education, now),
	}, nil
}

func (s *Service) Approve(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.ApproveRequest) (_ *models.DecisionResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_approve", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	now := requestcontext.Now(ctx)
	rec, err := s.mutate(ctx, s.byID(recordID), func(r *models.Record) error {
		return r.Approve(req.Feedback, reviewer, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDecision(string(models.StatusApproved))
	s.emitAudit(ctx, rec, audit.ActionApproved, "", "")
	notified := s.notify(ctx, rec, func(ctx context.Context) error {
		return s.mailer.Approved(ctx, rec.Email, req.Feedback)
	})
	return s.decision(rec, "Verification approved", notified, now), nil
}

func (s *Service) Reject(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.RejectRequest) (_ *models.DecisionResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_reject", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	now := requestcontext.Now(ctx)
	rec, err := s.mutate(ctx, s.byID(recordID), func(r *models.Record) error {
		return r.Reject(req.Reason, req.AllowResubmission, reviewer, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDecision(string(models.StatusRejected))
	s.emitAudit(ctx, rec, audit.ActionRejected, "", req.Reason)
	notified := s.notify(ctx, rec, func(ctx context.Context) error {
		return s.mailer.Rejected(ctx, rec.Email, req.Reason, req.AllowResubmission)
	})
	return s.decision(rec, "Verification rejected", notified, now), nil
}

// RequestInfo returns the record to the instructor with the listed steps reopened.
func (s *Service) RequestInfo(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.RequestInfoRequest) (_ *models.DecisionResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_request_info", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	steps := req.ParsedSteps()
	now := requestcontext.Now(ctx)
	rec, err := s.mutate(ctx, s.byID(recordID), func(r *models.Record) error {
		return r.RequestInfo(req.Message, steps, reviewer, now)
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, len(steps))
	for i, st := range steps {
		names[i] = string(st)
	}
	s.metrics.IncrementDecision("info_requested")
	s.emitAudit(ctx, rec, audit.ActionInfoRequested, "", req.Message)
	notified := s.notify(ctx, rec, func(ctx context.Context) error {
		return s.mailer.InformationRequested(ctx, rec.Email, req.Message, names)
	})
	return s.decision(rec, "Information requested from instructor", notified, now), nil
}

// Suspend revokes an approval. The instructor is not emailed.
func (s *Service) Suspend(ctx context.Context, reviewer id.UserID, recordID id.VerificationID, req *models.SuspendRequest) (_ *models.DecisionResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_suspend", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	now := requestcontext.Now(ctx)
	rec, err := s.mutate(ctx, s.byID(recordID), func(r *models.Record) error {
		return r.Suspend(req.Reason, reviewer, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDecision(string(models.StatusSuspended))
	s.emitAudit(ctx, rec, audit.ActionSuspended, "", req.Reason)
	return s.decision(rec, "Verification suspended", false, now), nil
}

// ResetLimits clears the instructor's code-send budgets and outstanding codes.
func (s *Service) ResetLimits(ctx context.Context, recordID id.VerificationID) (_ *models.MessageResponse, err error) {
	ctx, end := s.startSpan(ctx, "admin_reset_limits", attribute.String("verification_id", recordID.String()))
	defer end(&err)

	rec, err := s.loadByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	instructor := rec.InstructorID.String()
	if err := s.limiter.Reset(ctx, ratelimit.SendKeys(instructor)...); err != nil {
		return nil, s.translate(ctx, err, "reset code limits")
	}
	for _, ch := range []ratelimit.Channel{ratelimit.ChannelEmail, ratelimit.ChannelPhone} {
		if err := s.codes.Revoke(ctx, otp.Key(instructor, string(ch))); err != nil {
			return nil, s.translate(ctx, err, "revoke codes")
		}
	}

	s.emitAudit(ctx, rec, audit.ActionLimitsReset, "", "")
	return &models.MessageResponse{Message: "Code limits reset"}, nil
}

// notify sends a decision email without failing the decision.
func (s *Service) notify(ctx context.Context, rec *models.Record, send func(context.Context) error) bool {
	if err := send(ctx); err != nil {
		s.metrics.IncrementNotification("failed")
		s.logger.WarnContext(ctx, "decision email not delivered",
			"verification_id", rec.ID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return false
	}
	s.metrics.IncrementNotification("sent")
	return true
}

func (s *Service) decision(rec *models.Record, msg string, notified bool, now time.Time) *models.DecisionResponse {
	return &models.DecisionResponse{
		Message:      msg,
		Notified:     notified,
		Verification: models.ToDetailResponse(rec, now),
	}
}
