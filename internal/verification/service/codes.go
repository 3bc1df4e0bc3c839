package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"jojo/internal/audit"
	"jojo/internal/platform/privacy"
	"jojo/internal/ratelimit"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	id "jojo/pkg/domain"
	dErrors "jojo/pkg/domain-errors"
	"jojo/pkg/requestcontext"
)

// channel describes how a contact step is proven with a one-time code.
type channel struct {
	name     ratelimit.Channel
	step     models.Step
	provider string
	label    string
	verified string
	address  func(r *models.Record) string
	mask     func(string) string
	deliver  func(s *Service, ctx context.Context, to, code string) error
}

var (
	emailChannel = channel{
		name:     ratelimit.ChannelEmail,
		step:     models.StepEmail,
		provider: "email",
		label:    "email",
		verified: "Email verified",
		address:  func(r *models.Record) string { return r.Email },
		mask:     privacy.MaskEmail,
		deliver: func(s *Service, ctx context.Context, to, code string) error {
			return s.mailer.SendVerificationCode(ctx, to, code, s.codes.TTL())
		},
	}
	phoneChannel = channel{
		name:     ratelimit.ChannelPhone,
		step:     models.StepPhone,
		provider: "sms",
		label:    "phone",
		verified: "Phone number verified",
		address:  func(r *models.Record) string { return r.E164() },
		mask:     privacy.MaskPhone,
		deliver: func(s *Service, ctx context.Context, to, code string) error {
			return s.sms.SendVerificationCode(ctx, to, code, s.codes.TTL())
		},
	}
)

func (s *Service) SendEmailCode(ctx context.Context, instructorID id.UserID) (*models.SendCodeResponse, error) {
	return s.sendCode(ctx, instructorID, emailChannel)
}

func (s *Service) SendPhoneCode(ctx context.Context, instructorID id.UserID) (*models.SendCodeResponse, error) {
	return s.sendCode(ctx, instructorID, phoneChannel)
}

func (s *Service) VerifyEmailCode(ctx context.Context, instructorID id.UserID, req *models.VerifyCodeRequest) (*models.StepResponse, error) {
	return s.verifyCode(ctx, instructorID, req, emailChannel)
}

func (s *Service) VerifyPhoneCode(ctx context.Context, instructorID id.UserID, req *models.VerifyCodeRequest) (*models.StepResponse, error) {
	return s.verifyCode(ctx, instructorID, req, phoneChannel)
}

func (s *Service) sendCode(ctx context.Context, instructorID id.UserID, ch channel) (_ *models.SendCodeResponse, err error) {
	ctx, end := s.startSpan(ctx, "send_code", attribute.String("channel", string(ch.name)))
	defer end(&err)

	rec, err := s.loadForInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	if err := rec.EnsureInstructorMutable(); err != nil {
		return nil, err
	}
	if rec.Steps.Get(ch.step).IsComplete() {
		return nil, dErrors.New(dErrors.CodeConflict, ch.label+" is already verified")
	}
	to := ch.address(rec)
	if to == "" {
		return nil, dErrors.NewField(ch.label, "no "+ch.label+" on file for this verification")
	}

	sendKey := ratelimit.SendKey(instructorID.String(), ch.name)
	limit, err := s.limiter.Allow(ctx, sendKey, s.sendLimit, s.sendWindow)
	if err != nil {
		return nil, s.translate(ctx, err, "check code send limit")
	}
	if !limit.Allowed {
		s.metrics.IncrementCodeFailure(string(ch.name), "rate_limited")
		s.logger.WarnContext(ctx, "code send limit reached",
			"channel", ch.name,
			"instructor_id", instructorID.String(),
			"retry_after", limit.RetryAfter,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.NewRateLimited(
			fmt.Sprintf("too many %s codes requested, try again later", ch.label), limit.RetryAfter)
	}

	// Only delivered codes count against the budget.
	key := otp.Key(instructorID.String(), string(ch.name))
	code, expiresAt, err := s.codes.Issue(ctx, key)
	if err != nil {
		s.releaseSend(ctx, sendKey, limit.Hit)
		return nil, s.translate(ctx, err, "issue code")
	}
	if err := ch.deliver(s, ctx, to, code); err != nil {
		if rerr := s.codes.Revoke(ctx, key); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to revoke undelivered code",
				"channel", ch.name,
				"instructor_id", instructorID.String(),
				"error", rerr,
			)
		}
		s.releaseSend(ctx, sendKey, limit.Hit)
		return nil, s.upstream(ctx, ch.provider, err)
	}

	rec, err = s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		if r.Steps.Get(ch.step) == models.StepSubmitted {
			return nil
		}
		return r.SetStep(ch.step, models.StepSubmitted, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCodesSent(string(ch.name))
	s.emitAudit(ctx, rec, audit.ActionCodeSent, ch.step, ch.mask(to))
	s.logger.InfoContext(ctx, "verification code sent",
		"channel", ch.name,
		"destination", ch.mask(to),
		"instructor_id", instructorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.SendCodeResponse{
		Message:          "Verification code sent",
		Destination:      ch.mask(to),
		ExpiresInSeconds: int(expiresAt.Sub(requestcontext.Now(ctx)).Round(time.Second).Seconds()),
	}, nil
}

func (s *Service) releaseSend(ctx context.Context, key, hit string) {
	if err := s.limiter.Release(ctx, key, hit); err != nil {
		s.logger.WarnContext(ctx, "failed to release code send budget", "error", err)
	}
}

func (s *Service) verifyCode(ctx context.Context, instructorID id.UserID, req *models.VerifyCodeRequest, ch channel) (_ *models.StepResponse, err error) {
	ctx, end := s.startSpan(ctx, "verify_code", attribute.String("channel", string(ch.name)))
	defer end(&err)

	rec, err := s.loadForInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	if err := rec.EnsureInstructorMutable(); err != nil {
		return nil, err
	}
	if rec.Steps.Get(ch.step).IsComplete() {
		return nil, dErrors.New(dErrors.CodeConflict, ch.label+" is already verified")
	}

	if err := s.codes.Verify(ctx, otp.Key(instructorID.String(), string(ch.name)), req.Code); err != nil {
		reason, mapped := codeError(err)
		if mapped == nil {
			return nil, s.translate(ctx, err, "verify code")
		}
		s.metrics.IncrementCodeFailure(string(ch.name), reason)
		s.emitAudit(ctx, rec, audit.ActionCodeRejected, ch.step, reason)
		return nil, mapped
	}

	rec, err = s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		if r.Steps.Get(ch.step).IsComplete() {
			return nil
		}
		return r.SetStep(ch.step, models.StepVerified, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementStepCompleted(string(ch.step))
	s.emitAudit(ctx, rec, audit.ActionStepVerified, ch.step, "")
	return &models.StepResponse{
		Message:      ch.verified,
		Verification: models.ToStatusResponse(rec, requestcontext.Now(ctx)),
	}, nil
}
