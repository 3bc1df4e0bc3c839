package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"jojo/internal/audit"
	"jojo/internal/ratelimit"
	"jojo/internal/storage/blob"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	dErrors "jojo/pkg/domain-errors"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/testutil"
)

func (s *ServiceSuite) TestInitialize() {
	instructor := testutil.TestIDs.InstructorID1
	req := &models.InitializeRequest{PhoneNumber: "8012345678", CountryCode: "+234"}

	s.Run("creates a pending record with lowercased email", func() {
		s.store.EXPECT().FindByInstructor(gomock.Any(), instructor).Return(nil, sentinel.ErrNotFound)
		var created *models.Record
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r *models.Record) error {
				created = r.Clone()
				return nil
			})

		resp, err := s.service.Initialize(s.ctx, instructor, "  Instructor@Example.com ", req)
		s.Require().NoError(err)
		s.False(resp.AlreadyInitialized)
		s.Equal(string(models.StatusPending), resp.Verification.VerificationStatus)
		s.Equal(0, resp.Verification.ProgressPercentage)
		s.Equal("instructor@example.com", created.Email)
		s.Equal(audit.ActionInitialized, s.lastAction())
	})

	s.Run("existing record is returned with the flag set", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)

		resp, err := s.service.Initialize(s.ctx, instructor, "instructor@example.com", req)
		s.Require().NoError(err)
		s.True(resp.AlreadyInitialized)
		s.Equal(rec.ID.String(), resp.Verification.VerificationID)
	})

	s.Run("new unverified phone replaces the old one and revokes its code", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		saved := s.saved()
		s.codes.EXPECT().Revoke(gomock.Any(), otp.Key(instructor.String(), string(ratelimit.ChannelPhone))).Return(nil)

		resp, err := s.service.Initialize(s.ctx, instructor, "instructor@example.com",
			&models.InitializeRequest{PhoneNumber: "7098765432", CountryCode: "+234"})
		s.Require().NoError(err)
		s.True(resp.AlreadyInitialized)
		s.Equal("7098765432", saved.PhoneNumber)
	})

	s.Run("phone stays unchanged when the old code cannot be revoked", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		s.codes.EXPECT().Revoke(gomock.Any(), gomock.Any()).Return(errors.New("redis: connection refused"))

		_, err := s.service.Initialize(s.ctx, instructor, "instructor@example.com",
			&models.InitializeRequest{PhoneNumber: "7098765432", CountryCode: "+234"})
		s.requireCode(err, dErrors.CodeInternal)
	})

	s.Run("verified phone is kept", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepPhone, models.StepVerified).Build()
		s.stored(rec)

		resp, err := s.service.Initialize(s.ctx, instructor, "instructor@example.com",
			&models.InitializeRequest{PhoneNumber: "7098765432", CountryCode: "+234"})
		s.Require().NoError(err)
		s.True(resp.AlreadyInitialized)
	})

	s.Run("losing the create race returns the winner", func() {
		rec := testutil.NewRecordBuilder().Build()
		gomock.InOrder(
			s.store.EXPECT().FindByInstructor(gomock.Any(), instructor).Return(nil, sentinel.ErrNotFound),
			s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyExists),
			s.store.EXPECT().FindByInstructor(gomock.Any(), instructor).Return(rec.Clone(), nil),
		)

		resp, err := s.service.Initialize(s.ctx, instructor, "instructor@example.com", req)
		s.Require().NoError(err)
		s.True(resp.AlreadyInitialized)
		s.Equal(rec.ID.String(), resp.Verification.VerificationID)
	})

	s.Run("token without email is rejected", func() {
		_, err := s.service.Initialize(s.ctx, instructor, " ", req)
		s.requireCode(err, dErrors.CodeValidation)
		s.Equal("email", dErrors.FieldOf(err))
	})
}

func (s *ServiceSuite) TestSubmitPersonalInfo() {
	instructor := testutil.TestIDs.InstructorID1
	req := func(dob string) *models.PersonalInfoRequest {
		return &models.PersonalInfoRequest{
			FirstName:   "Ada",
			LastName:    "Okafor",
			DateOfBirth: dob,
			Nationality: "Nigerian",
			Address:     models.AddressRequest{Street: "12 Marina", City: "Lagos", Country: "Nigeria"},
		}
	}

	s.Run("adult instructor completes the step", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		saved := s.saved()

		resp, err := s.service.SubmitPersonalInfo(s.ctx, instructor, req("1990-05-17"))
		s.Require().NoError(err)
		s.Equal(models.StepVerified, saved.Steps.Get(models.StepPersonalInfo))
		s.Equal("Ada", saved.PersonalInfo.FirstName)
		s.Equal(17, resp.Verification.ProgressPercentage)
	})

	s.Run("under 18 is a field error before any store call", func() {
		_, err := s.service.SubmitPersonalInfo(s.ctx, instructor, req("2010-01-01"))
		s.requireCode(err, dErrors.CodeValidation)
		s.Equal("dateOfBirth", dErrors.FieldOf(err))
	})

	s.Run("approved record cannot change", func() {
		rec := testutil.NewRecordBuilder().WithStatus(models.StatusApproved).Build()
		s.stored(rec)

		_, err := s.service.SubmitPersonalInfo(s.ctx, instructor, req("1990-05-17"))
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})
}

func (s *ServiceSuite) TestUploadIDDocument() {
	instructor := testutil.TestIDs.InstructorID1
	front := File{Data: []byte("front"), ContentType: "image/jpeg"}
	back := &File{Data: []byte("back"), ContentType: "image/png"}
	req := &models.IDDocumentRequest{DocumentType: string(models.IDNationalID)}

	put := func(_ context.Context, key, contentType string, data []byte) (blob.Object, error) {
		return blob.Object{Key: key, URL: "memory://uploads/" + key, ContentType: contentType, Size: int64(len(data))}, nil
	}

	s.Run("stores both sides and deletes the replaced document", func() {
		rec := testutil.NewRecordBuilder().Build()
		rec.IDDocument = &models.IDDocument{
			Type:  models.IDPassport,
			Front: models.Upload{Key: "verifications/old/front.jpg"},
		}
		rec.Steps[models.StepIDDocument] = models.StepVerified
		s.stored(rec)
		s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(put).Times(2)
		saved := s.saved()
		s.blobs.EXPECT().Delete(gomock.Any(), "verifications/old/front.jpg").Return(nil)

		_, err := s.service.UploadIDDocument(s.ctx, instructor, req, front, back)
		s.Require().NoError(err)
		s.Equal(models.IDNationalID, saved.IDDocument.Type)
		s.Contains(saved.IDDocument.Front.Key, "/id-front/")
		s.Require().NotNil(saved.IDDocument.Back)
		s.Contains(saved.IDDocument.Back.Key, "/id-back/")
		s.Equal(models.StepVerified, saved.Steps.Get(models.StepIDDocument))
	})

	s.Run("failed side removes the stored one", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		var frontKey string
		s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), "image/jpeg", gomock.Any()).DoAndReturn(
			func(ctx context.Context, key, ct string, data []byte) (blob.Object, error) {
				frontKey = key
				return put(ctx, key, ct, data)
			})
		s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), "image/png", gomock.Any()).
			Return(blob.Object{}, errors.New("azure: 503"))
		s.blobs.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, key string) error {
				s.Equal(frontKey, key)
				return nil
			})

		_, err := s.service.UploadIDDocument(s.ctx, instructor, req, front, back)
		s.requireCode(err, dErrors.CodeUpstreamFailure)
	})
}

func (s *ServiceSuite) TestUploadCertificate() {
	instructor := testutil.TestIDs.InstructorID1
	doc := File{Data: []byte("%PDF-1.7"), ContentType: "application/pdf"}

	expectPut := func() {
		s.blobs.EXPECT().Put(gomock.Any(), gomock.Any(), "application/pdf", doc.Data).DoAndReturn(
			func(_ context.Context, key, ct string, data []byte) (blob.Object, error) {
				return blob.Object{Key: key, URL: "memory://uploads/" + key, ContentType: ct, Size: int64(len(data))}, nil
			})
	}

	s.Run("qualifying degree completes the education step", func() {
		rec := testutil.NewRecordBuilder().WithFirstFiveSteps().Build()
		s.stored(rec)
		expectPut()
		saved := s.saved()

		resp, err := s.service.UploadCertificate(s.ctx, instructor, &models.CertificateRequest{
			CertificateType: string(models.CertMaster),
			Institution:     "University of Ibadan",
			FieldOfStudy:    "Mathematics",
			GraduationYear:  "2018",
			GPA:             "4.5",
		}, doc)
		s.Require().NoError(err)
		s.Equal("Certificate uploaded", resp.Message)
		s.Equal(100, resp.Verification.ProgressPercentage)
		s.True(saved.Education.MinimumRequirementMet)
		s.Equal(models.StepVerified, saved.Steps.Get(models.StepEducationCertificate))
	})

	s.Run("diploma is stored but does not qualify", func() {
		rec := testutil.NewRecordBuilder().Build()
		s.stored(rec)
		expectPut()
		saved := s.saved()

		resp, err := s.service.UploadCertificate(s.ctx, instructor, &models.CertificateRequest{
			CertificateType: string(models.CertDiploma),
			Institution:     "Yaba College",
			FieldOfStudy:    "Accounting",
			GraduationYear:  "2012",
		}, doc)
		s.Require().NoError(err)
		s.Contains(resp.Message, "does not meet the minimum")
		s.Len(saved.Education.Certificates, 1)
		s.Equal(models.StepSubmitted, saved.Steps.Get(models.StepEducationCertificate))
	})

	s.Run("future graduation year is rejected before upload", func() {
		_, err := s.service.UploadCertificate(s.ctx, instructor, &models.CertificateRequest{
			CertificateType: string(models.CertBachelor),
			Institution:     "University of Lagos",
			FieldOfStudy:    "Physics",
			GraduationYear:  "2099",
		}, doc)
		s.requireCode(err, dErrors.CodeValidation)
		s.Equal("graduationYear", dErrors.FieldOf(err))
	})
}

func (s *ServiceSuite) TestSubmit() {
	instructor := testutil.TestIDs.InstructorID1

	s.Run("complete record goes under review", func() {
		rec := testutil.NewRecordBuilder().WithFirstFiveSteps().WithCertificate(models.CertBachelor, 2015).Build()
		s.stored(rec)
		saved := s.saved()

		resp, err := s.service.Submit(s.ctx, instructor)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, saved.Status)
		s.Require().NotNil(saved.SubmittedAt)
		s.Equal(testutil.FixedNow, *saved.SubmittedAt)
		s.Equal(string(models.StatusUnderReview), resp.Verification.VerificationStatus)
		s.Equal(audit.ActionSubmittedForReview, s.lastAction())
	})

	s.Run("missing steps are listed", func() {
		rec := testutil.NewRecordBuilder().WithStep(models.StepEmail, models.StepVerified).Build()
		s.stored(rec)

		_, err := s.service.Submit(s.ctx, instructor)
		s.requireCode(err, dErrors.CodeIncompleteSteps)
		s.Contains(err.Error(), "selfie")
	})
}

func (s *ServiceSuite) TestStatus() {
	s.Run("not initialized", func() {
		s.store.EXPECT().FindByInstructor(gomock.Any(), testutil.TestIDs.InstructorID2).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Status(s.ctx, testutil.TestIDs.InstructorID2)
		s.requireCode(err, dErrors.CodeNotInitialized)
	})
}
