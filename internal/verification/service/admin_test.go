package service

import (
	"errors"

	"go.uber.org/mock/gomock"

	"jojo/internal/audit"
	"jojo/internal/ratelimit"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	id "jojo/pkg/domain"
	dErrors "jojo/pkg/domain-errors"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/testutil"
)

func (s *ServiceSuite) TestApprove() {
	admin := testutil.TestIDs.AdminID

	s.Run("approves and notifies the instructor", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)
		saved := s.saved()
		s.mailer.EXPECT().Approved(gomock.Any(), "instructor@example.com", "Welcome aboard").Return(nil)

		resp, err := s.service.Approve(s.adminCtx(), admin, rec.ID, &models.ApproveRequest{Feedback: "Welcome aboard"})
		s.Require().NoError(err)
		s.True(resp.Notified)
		s.Equal(models.StatusApproved, saved.Status)
		s.Equal(admin, saved.Review.ReviewedBy)
		s.Equal(audit.ActionApproved, s.lastAction())
		s.Equal(admin.String(), s.events[len(s.events)-1].ActorID)
	})

	s.Run("mail failure does not undo the decision", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)
		saved := s.saved()
		s.mailer.EXPECT().Approved(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)

		resp, err := s.service.Approve(s.adminCtx(), admin, rec.ID, &models.ApproveRequest{})
		s.Require().NoError(err)
		s.False(resp.Notified)
		s.Equal(models.StatusApproved, saved.Status)
	})

	s.Run("record still in progress cannot be approved", func() {
		rec := testutil.NewRecordBuilder().WithFirstFiveSteps().Build()
		s.stored(rec)

		_, err := s.service.Approve(s.adminCtx(), admin, rec.ID, &models.ApproveRequest{})
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})

	s.Run("unknown record is not found", func() {
		missing := id.NewVerificationID()
		s.store.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Approve(s.adminCtx(), admin, missing, &models.ApproveRequest{})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestReject() {
	admin := testutil.TestIDs.AdminID

	s.Run("rejection with resubmission reopens the record", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)
		saved := s.saved()
		s.mailer.EXPECT().Rejected(gomock.Any(), "instructor@example.com", "Blurry ID", true).Return(nil)

		resp, err := s.service.Reject(s.adminCtx(), admin, rec.ID, &models.RejectRequest{Reason: "Blurry ID", AllowResubmission: true})
		s.Require().NoError(err)
		s.True(resp.Notified)
		s.Equal(models.StatusRejected, saved.Status)
		s.NoError(saved.EnsureInstructorMutable())
	})

	s.Run("final rejection locks the record", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)
		saved := s.saved()
		s.mailer.EXPECT().Rejected(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(nil)

		_, err := s.service.Reject(s.adminCtx(), admin, rec.ID, &models.RejectRequest{Reason: "Fraudulent documents"})
		s.Require().NoError(err)
		s.Error(saved.EnsureInstructorMutable())
	})
}

func (s *ServiceSuite) TestRequestInfo() {
	admin := testutil.TestIDs.AdminID

	s.Run("reopens the listed steps", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)
		saved := s.saved()
		s.mailer.EXPECT().InformationRequested(gomock.Any(), "instructor@example.com", "Retake your selfie",
			[]string{"selfie", "idDocument"}).Return(nil)

		resp, err := s.service.RequestInfo(s.adminCtx(), admin, rec.ID, &models.RequestInfoRequest{
			Message: "Retake your selfie",
			Steps:   []string{"selfie", "idDocument", "selfie"},
		})
		s.Require().NoError(err)
		s.True(resp.Notified)
		s.Equal(models.StatusInProgress, saved.Status)
		s.Nil(saved.SubmittedAt)
		s.Equal(models.StepRejected, saved.Steps.Get(models.StepSelfie))
		s.Equal(models.StepRejected, saved.Steps.Get(models.StepIDDocument))
		s.Equal(models.StepVerified, saved.Steps.Get(models.StepEmail))
		s.Equal([]string{"selfie", "idDocument"}, resp.Verification.Review.RequestedSteps)
	})

	s.Run("verified education cannot be requested", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)

		_, err := s.service.RequestInfo(s.adminCtx(), admin, rec.ID, &models.RequestInfoRequest{
			Message: "Upload your degree",
			Steps:   []string{"educationCertificate"},
		})
		s.requireCode(err, dErrors.CodeValidation)
		s.Equal("steps", dErrors.FieldOf(err))
	})

	s.Run("rejected certificate is sent back for a replacement", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		_, err := rec.ReviewCertificate(rec.Education.Certificates[0].ID, models.ReviewRejected,
			"Illegible scan", admin, testutil.FixedNow)
		s.Require().NoError(err)
		s.stored(rec)
		saved := s.saved()
		s.mailer.EXPECT().InformationRequested(gomock.Any(), "instructor@example.com", "Upload a clearer degree",
			[]string{"educationCertificate"}).Return(nil)

		resp, err := s.service.RequestInfo(s.adminCtx(), admin, rec.ID, &models.RequestInfoRequest{
			Message: "Upload a clearer degree",
			Steps:   []string{"educationCertificate"},
		})
		s.Require().NoError(err)
		s.True(resp.Notified)
		s.Equal(models.StatusInProgress, saved.Status)
		s.Equal(models.StepRejected, saved.Steps.Get(models.StepEducationCertificate))
		s.NoError(saved.EnsureInstructorMutable())
	})
}

func (s *ServiceSuite) TestSuspend() {
	admin := testutil.TestIDs.AdminID

	s.Run("approved record is suspended without email", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.Require().NoError(rec.Approve("", admin, testutil.FixedNow))
		s.stored(rec)
		saved := s.saved()

		resp, err := s.service.Suspend(s.adminCtx(), admin, rec.ID, &models.SuspendRequest{Reason: "Policy violation"})
		s.Require().NoError(err)
		s.False(resp.Notified)
		s.Equal(models.StatusSuspended, saved.Status)
		s.Equal(audit.ActionSuspended, s.lastAction())
	})

	s.Run("only approved records can be suspended", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)

		_, err := s.service.Suspend(s.adminCtx(), admin, rec.ID, &models.SuspendRequest{Reason: "Policy violation"})
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})
}

func (s *ServiceSuite) TestReviewCertificate() {
	admin := testutil.TestIDs.AdminID

	s.Run("rejecting the only qualifying certificate reopens education", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		certID := rec.Education.Certificates[0].ID
		s.stored(rec)
		saved := s.saved()

		resp, err := s.service.ReviewCertificate(s.adminCtx(), admin, rec.ID, certID,
			&models.CertificateReviewRequest{Status: "rejected", Notes: "Illegible scan"})
		s.Require().NoError(err)
		s.Equal("rejected", resp.Certificate.VerificationStatus)
		s.Equal("Illegible scan", resp.Certificate.VerifierNotes)
		s.False(resp.EducationVerification.MinimumRequirementMet)
		s.Equal(string(models.EducationRejected), resp.EducationVerification.OverallStatus)
		s.Equal(models.StepRejected, saved.Steps.Get(models.StepEducationCertificate))
	})

	s.Run("verifying sets the verified timestamp", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		certID := rec.Education.Certificates[0].ID
		s.stored(rec)
		s.saved()

		resp, err := s.service.ReviewCertificate(s.adminCtx(), admin, rec.ID, certID,
			&models.CertificateReviewRequest{Status: "verified"})
		s.Require().NoError(err)
		s.Require().NotNil(resp.Certificate.VerifiedAt)
		s.Equal(string(models.EducationVerified), resp.EducationVerification.OverallStatus)
	})

	s.Run("unknown certificate is not found", func() {
		rec := testutil.NewRecordBuilder().UnderReview().Build()
		s.stored(rec)

		_, err := s.service.ReviewCertificate(s.adminCtx(), admin, rec.ID, id.NewCertificateID(),
			&models.CertificateReviewRequest{Status: "verified"})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestResetLimits() {
	rec := testutil.NewRecordBuilder().Build()
	instructor := rec.InstructorID.String()

	s.Run("clears both send budgets and outstanding codes", func() {
		s.stored(rec)
		s.limiter.EXPECT().Reset(gomock.Any(),
			ratelimit.SendKey(instructor, ratelimit.ChannelEmail),
			ratelimit.SendKey(instructor, ratelimit.ChannelPhone),
		).Return(nil)
		s.codes.EXPECT().Revoke(gomock.Any(), otp.Key(instructor, "email")).Return(nil)
		s.codes.EXPECT().Revoke(gomock.Any(), otp.Key(instructor, "phone")).Return(nil)

		resp, err := s.service.ResetLimits(s.adminCtx(), rec.ID)
		s.Require().NoError(err)
		s.Equal("Code limits reset", resp.Message)
		s.Equal(audit.ActionLimitsReset, s.lastAction())
	})

	s.Run("limiter outage is internal", func() {
		s.stored(rec)
		s.limiter.EXPECT().Reset(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis: i/o timeout"))

		_, err := s.service.ResetLimits(s.adminCtx(), rec.ID)
		s.requireCode(err, dErrors.CodeInternal)
	})
}

func (s *ServiceSuite) TestListAndHistory() {
	s.Run("list paginates summaries", func() {
		recs := []*models.Record{
			testutil.NewRecordBuilder().UnderReview().Build(),
			testutil.NewRecordBuilder().WithInstructor(testutil.TestIDs.InstructorID2).Build(),
		}
		filter := models.ListFilter{Page: 2, Limit: 2}
		s.store.EXPECT().List(gomock.Any(), filter).Return(recs, int64(5), nil)

		resp, err := s.service.List(s.adminCtx(), filter)
		s.Require().NoError(err)
		s.Len(resp.Verifications, 2)
		s.Equal(int64(3), resp.Pagination.TotalPages)
		s.Equal(100, resp.Verifications[0].ProgressPercentage)
	})

	s.Run("history maps audit events in order", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.auditor.EXPECT().List(gomock.Any(), rec.ID.String()).Return([]audit.Event{
			{Action: audit.ActionInitialized, ActorID: rec.InstructorID.String(), ActorRole: "instructor", Timestamp: testutil.FixedNow},
			{Action: audit.ActionCodeSent, Step: "email", Detail: "i***@example.com", Timestamp: testutil.FixedNow},
		}, nil)

		resp, err := s.service.History(s.adminCtx(), rec.ID)
		s.Require().NoError(err)
		s.Require().Len(resp.Events, 2)
		s.Equal("initialized", resp.Events[0].Action)
		s.Equal("email", resp.Events[1].Step)
	})

	s.Run("detail of unknown record is not found", func() {
		missing := id.NewVerificationID()
		s.store.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Get(s.adminCtx(), missing)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}
