package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/mock/gomock"

	"jojo/internal/audit"
	"jojo/internal/ratelimit"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	dErrors "jojo/pkg/domain-errors"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/testutil"
)

const codeTTL = 10 * time.Minute

func (s *ServiceSuite) TestSendEmailCode() {
	instructor := testutil.TestIDs.InstructorID1
	emailKey := otp.Key(instructor.String(), string(ratelimit.ChannelEmail))

	s.Run("delivers code and marks the step submitted", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.limiter.EXPECT().
			Allow(gomock.Any(), ratelimit.SendKey(instructor.String(), ratelimit.ChannelEmail), 3, 15*time.Minute).
			Return(ratelimit.Result{Allowed: true, Limit: 3, Remaining: 2}, nil)
		s.codes.EXPECT().Issue(gomock.Any(), emailKey).Return("482913", testutil.FixedNow.Add(codeTTL), nil)
		s.codes.EXPECT().TTL().Return(codeTTL)
		s.mailer.EXPECT().SendVerificationCode(gomock.Any(), "instructor@example.com", "482913", codeTTL).Return(nil)
		saved := s.saved()

		resp, err := s.service.SendEmailCode(s.ctx, instructor)
		s.Require().NoError(err)
		s.Equal("i***@example.com", resp.Destination)
		s.Equal(600, resp.ExpiresInSeconds)
		s.Equal(models.StepSubmitted, saved.Steps.Get(models.StepEmail))
		s.Equal(models.StatusInProgress, saved.Status)
		s.Equal(audit.ActionCodeSent, s.lastAction())
	})

	s.Run("rate limited send carries retry hint and issues nothing", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), 3, 15*time.Minute).
			Return(ratelimit.Result{Allowed: false, Limit: 3, RetryAfter: 7 * time.Minute}, nil)

		_, err := s.service.SendEmailCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeRateLimited)
		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal(7*time.Minute, de.RetryAfter)
	})

	s.Run("verified email is a conflict", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepEmail, models.StepVerified).Build()
		s.stored(rec)

		_, err := s.service.SendEmailCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("missing record is not initialized", func() {
		s.store.EXPECT().FindByInstructor(gomock.Any(), instructor).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.SendEmailCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeNotInitialized)
	})

	s.Run("record under review rejects sends", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)

		_, err := s.service.SendEmailCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})

	s.Run("provider failure revokes the code and leaves the record untouched", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(ratelimit.Result{Allowed: true, Hit: "hit-1"}, nil)
		s.codes.EXPECT().Issue(gomock.Any(), emailKey).Return("482913", testutil.FixedNow.Add(codeTTL), nil)
		s.codes.EXPECT().TTL().Return(codeTTL)
		s.mailer.EXPECT().SendVerificationCode(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("resend: 502 bad gateway"))
		s.codes.EXPECT().Revoke(gomock.Any(), emailKey).Return(nil)
		s.limiter.EXPECT().Release(gomock.Any(), ratelimit.SendKey(instructor.String(), ratelimit.ChannelEmail), "hit-1").Return(nil)

		_, err := s.service.SendEmailCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeUpstreamFailure)
		s.Contains(err.Error(), "email provider failed")
	})

	s.Run("code store failure gives the send back", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(ratelimit.Result{Allowed: true, Hit: "hit-2"}, nil)
		s.codes.EXPECT().Issue(gomock.Any(), emailKey).Return("", testutil.FixedNow, errors.New("redis: timeout"))
		s.limiter.EXPECT().Release(gomock.Any(), gomock.Any(), "hit-2").Return(nil)

		_, err := s.service.SendEmailCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeInternal)
	})
}

func (s *ServiceSuite) TestSendPhoneCode() {
	instructor := testutil.TestIDs.InstructorID1

	s.Run("texts the E.164 number", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.limiter.EXPECT().Allow(gomock.Any(), ratelimit.SendKey(instructor.String(), ratelimit.ChannelPhone), 3, 15*time.Minute).
			Return(ratelimit.Result{Allowed: true}, nil)
		s.codes.EXPECT().Issue(gomock.Any(), gomock.Any()).Return("100200", testutil.FixedNow.Add(codeTTL), nil)
		s.codes.EXPECT().TTL().Return(codeTTL)
		s.sms.EXPECT().SendVerificationCode(gomock.Any(), "+2348012345678", "100200", codeTTL).Return(nil)
		saved := s.saved()

		resp, err := s.service.SendPhoneCode(s.ctx, instructor)
		s.Require().NoError(err)
		s.Equal(strings.Repeat("*", 12)+"78", resp.Destination)
		s.Equal(models.StepSubmitted, saved.Steps.Get(models.StepPhone))
	})

	s.Run("open breaker reports the provider as unavailable", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(ratelimit.Result{Allowed: true}, nil)
		s.codes.EXPECT().Issue(gomock.Any(), gomock.Any()).Return("100200", testutil.FixedNow.Add(codeTTL), nil)
		s.codes.EXPECT().TTL().Return(codeTTL)
		s.sms.EXPECT().SendVerificationCode(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(sentinel.ErrUnavailable)
		s.codes.EXPECT().Revoke(gomock.Any(), gomock.Any()).Return(nil)
		s.limiter.EXPECT().Release(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.SendPhoneCode(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeUpstreamFailure)
		s.Contains(err.Error(), "temporarily unavailable")
	})
}

func (s *ServiceSuite) TestVerifyPhoneCode() {
	instructor := testutil.TestIDs.InstructorID1
	phoneKey := otp.Key(instructor.String(), string(ratelimit.ChannelPhone))
	req := &models.VerifyCodeRequest{Code: "100200"}

	s.Run("matching code verifies the step", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepPhone, models.StepSubmitted).Build()
		s.stored(rec)
		s.codes.EXPECT().Verify(gomock.Any(), phoneKey, "100200").Return(nil)
		saved := s.saved()

		resp, err := s.service.VerifyPhoneCode(s.ctx, instructor, req)
		s.Require().NoError(err)
		s.Equal(models.StepVerified, saved.Steps.Get(models.StepPhone))
		s.True(resp.Verification.CompletedSteps[string(models.StepPhone)])
		s.Equal(audit.ActionStepVerified, s.lastAction())
	})

	for _, tc := range []struct {
		name   string
		err    error
		reason string
	}{
		{"wrong code", otp.ErrInvalidCode, "invalid"},
		{"expired code", sentinel.ErrExpired, "expired"},
		{"attempts exhausted", sentinel.ErrExhausted, "exhausted"},
	} {
		s.Run(tc.name+" is a field error on code", func() {
			rec := testutil.NewRecordBuilder().WithStep(models.StepPhone, models.StepSubmitted).Build()
			s.stored(rec)
			s.codes.EXPECT().Verify(gomock.Any(), phoneKey, "100200").Return(tc.err)

			_, err := s.service.VerifyPhoneCode(s.ctx, instructor, req)
			s.requireCode(err, dErrors.CodeValidation)
			s.Equal("code", dErrors.FieldOf(err))
			s.Equal(audit.ActionCodeRejected, s.lastAction())
			s.Equal(tc.reason, s.events[len(s.events)-1].Detail)
		})
	}

	s.Run("code store outage is internal", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.codes.EXPECT().Verify(gomock.Any(), phoneKey, "100200").Return(errors.New("redis: connection refused"))

		_, err := s.service.VerifyPhoneCode(s.ctx, instructor, req)
		s.requireCode(err, dErrors.CodeInternal)
	})
}

func (s *ServiceSuite) TestWriteConflicts() {
	instructor := testutil.TestIDs.InstructorID1
	req := &models.VerifyCodeRequest{Code: "482913"}

	s.Run("retries until the write lands", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepEmail, models.StepSubmitted).Build()
		s.stored(rec)
		s.codes.EXPECT().Verify(gomock.Any(), gomock.Any(), "482913").Return(nil)
		gomock.InOrder(
			s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
			s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
			s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
		)

		resp, err := s.service.VerifyEmailCode(s.ctx, instructor, req)
		s.Require().NoError(err)
		s.True(resp.Verification.CompletedSteps[string(models.StepEmail)])
	})

	s.Run("gives up after the retry budget", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepEmail, models.StepSubmitted).Build()
		s.stored(rec)
		s.codes.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(3)

		_, err := s.service.VerifyEmailCode(s.ctx, instructor, req)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("store failure is internal", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepEmail, models.StepSubmitted).Build()
		s.stored(rec)
		s.codes.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)

		_, err := s.service.VerifyEmailCode(s.ctx, instructor, req)
		s.requireCode(err, dErrors.CodeInternal)
	})
}
