package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"jojo/internal/audit"
	"jojo/internal/ratelimit"
	"jojo/internal/storage/blob"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	id "jojo/pkg/domain"
	dErrors "jojo/pkg/domain-errors"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/requestcontext"
)

// File is an uploaded file whose type and size the transport already checked.
type File struct {
	Data        []byte
	ContentType string
}

// Initialize creates the instructor's record, or returns the existing one
// with AlreadyInitialized set. An unverified phone number is replaced.
func (s *Service) Initialize(ctx context.Context, instructorID id.UserID, email string, req *models.InitializeRequest) (_ *models.InitializeResponse, err error) {
	ctx, end := s.startSpan(ctx, "initialize")
	defer end(&err)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, dErrors.NewField("email", "the access token carries no email address")
	}
	now := requestcontext.Now(ctx)

	existing, err := s.store.FindByInstructor(ctx, instructorID)
	switch {
	case err == nil:
		return s.reinitialize(ctx, existing, req)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, s.translate(ctx, err, "load verification")
	}

	rec, err := models.NewRecord(id.NewVerificationID(), instructorID, email, req.PhoneNumber, req.CountryCode, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			existing, err := s.loadForInstructor(ctx, instructorID)
			if err != nil {
				return nil, err
			}
			return s.reinitialize(ctx, existing, req)
		}
		return nil, s.translate(ctx, err, "create verification")
	}

	s.metrics.IncrementInitialized()
	s.emitAudit(ctx, rec, audit.ActionInitialized, "", "")
	s.logger.InfoContext(ctx, "verification initialized",
		"verification_id", rec.ID.String(),
		"instructor_id", instructorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.InitializeResponse{
		Message:      "Verification initialized",
		Verification: models.ToStatusResponse(rec, now),
	}, nil
}

func (s *Service) reinitialize(ctx context.Context, rec *models.Record, req *models.InitializeRequest) (*models.InitializeResponse, error) {
	now := requestcontext.Now(ctx)
	if rec.EnsureInstructorMutable() == nil && !rec.Steps.Get(models.StepPhone).IsComplete() &&
		(rec.PhoneNumber != req.PhoneNumber || rec.CountryCode != req.CountryCode) {
		// A code sent to the old number must not verify the new one.
		if err := s.codes.Revoke(ctx, otp.Key(rec.InstructorID.String(), string(ratelimit.ChannelPhone))); err != nil {
			return nil, s.translate(ctx, err, "revoke code")
		}
		updated, err := s.mutate(ctx, s.byInstructor(rec.InstructorID), func(r *models.Record) error {
			r.UpdatePhone(req.PhoneNumber, req.CountryCode, now)
			return nil
		})
		if err != nil {
			return nil, err
		}
		rec = updated
	}
	return &models.InitializeResponse{
		Message:            "Verification already initialized",
		AlreadyInitialized: true,
		Verification:       models.ToStatusResponse(rec, now),
	}, nil
}

func (s *Service) SubmitPersonalInfo(ctx context.Context, instructorID id.UserID, req *models.PersonalInfoRequest) (_ *models.StepResponse, err error) {
	ctx, end := s.startSpan(ctx, "submit_personal_info")
	defer end(&err)

	now := requestcontext.Now(ctx)
	info, err := req.ToPersonalInfo(now)
	if err != nil {
		return nil, err
	}
	rec, err := s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		if err := r.EnsureInstructorMutable(); err != nil {
			return err
		}
		return r.RecordPersonalInfo(info, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementStepCompleted(string(models.StepPersonalInfo))
	s.emitAudit(ctx, rec, audit.ActionPersonalInfoSubmitted, models.StepPersonalInfo, "")
	return &models.StepResponse{
		Message:      "Personal information saved",
		Verification: models.ToStatusResponse(rec, now),
	}, nil
}

// UploadIDDocument stores the front (and optional back) image in parallel,
// then records them. Replaced images are deleted afterwards.
func (s *Service) UploadIDDocument(ctx context.Context, instructorID id.UserID, req *models.IDDocumentRequest, front File, back *File) (_ *models.StepResponse, err error) {
	ctx, end := s.startSpan(ctx, "upload_id_document", attribute.String("document_type", req.DocumentType))
	defer end(&err)

	if err := s.ensureMutable(ctx, instructorID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var frontUp models.Upload
	var backUp *models.Upload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		up, err := s.putUpload(gctx, instructorID, blob.KindIDFront, front)
		frontUp = up
		return err
	})
	if back != nil {
		g.Go(func() error {
			up, err := s.putUpload(gctx, instructorID, blob.KindIDBack, *back)
			backUp = &up
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanupBlobs(ctx, frontUp.Key, uploadKey(backUp))
		return nil, s.upstream(ctx, "storage", err)
	}

	var previous *models.IDDocument
	rec, err := s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		if err := r.EnsureInstructorMutable(); err != nil {
			return err
		}
		prev, err := r.RecordIDDocument(models.IDDocument{
			Type:  models.IDDocumentType(req.DocumentType),
			Front: frontUp,
			Back:  backUp,
		}, now)
		previous = prev
		return err
	})
	if err != nil {
		s.cleanupBlobs(ctx, frontUp.Key, uploadKey(backUp))
		return nil, err
	}
	if previous != nil {
		s.cleanupBlobs(ctx, previous.Front.Key, uploadKey(previous.Back))
	}

	s.metrics.IncrementStepCompleted(string(models.StepIDDocument))
	s.emitAudit(ctx, rec, audit.ActionDocumentUploaded, models.StepIDDocument, req.DocumentType)
	return &models.StepResponse{
		Message:      "ID document uploaded",
		Verification: models.ToStatusResponse(rec, now),
	}, nil
}

func (s *Service) UploadSelfie(ctx context.Context, instructorID id.UserID, image File) (_ *models.StepResponse, err error) {
	ctx, end := s.startSpan(ctx, "upload_selfie")
	defer end(&err)

	if err := s.ensureMutable(ctx, instructorID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	up, err := s.putUpload(ctx, instructorID, blob.KindSelfie, image)
	if err != nil {
		return nil, s.upstream(ctx, "storage", err)
	}

	var previous *models.Selfie
	rec, err := s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		if err := r.EnsureInstructorMutable(); err != nil {
			return err
		}
		prev, err := r.RecordSelfie(up, now)
		previous = prev
		return err
	})
	if err != nil {
		s.cleanupBlobs(ctx, up.Key)
		return nil, err
	}
	if previous != nil {
		s.cleanupBlobs(ctx, previous.Image.Key)
	}

	s.metrics.IncrementStepCompleted(string(models.StepSelfie))
	s.emitAudit(ctx, rec, audit.ActionDocumentUploaded, models.StepSelfie, "")
	return &models.StepResponse{
		Message:      "Selfie uploaded",
		Verification: models.ToStatusResponse(rec, now),
	}, nil
}

// UploadCertificate appends a certificate. The education step completes as
// soon as one certificate meets the minimum requirement.
func (s *Service) UploadCertificate(ctx context.Context, instructorID id.UserID, req *models.CertificateRequest, document File) (_ *models.StepResponse, err error) {
	ctx, end := s.startSpan(ctx, "upload_certificate", attribute.String("certificate_type", req.CertificateType))
	defer end(&err)

	now := requestcontext.Now(ctx)
	cert, err := req.ToCertificate(now)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMutable(ctx, instructorID); err != nil {
		return nil, err
	}

	up, err := s.putUpload(ctx, instructorID, blob.KindCertificate, document)
	if err != nil {
		return nil, s.upstream(ctx, "storage", err)
	}
	cert.ID = id.NewCertificateID()
	cert.Document = up

	wasComplete := false
	rec, err := s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		if err := r.EnsureInstructorMutable(); err != nil {
			return err
		}
		wasComplete = r.Steps.Get(models.StepEducationCertificate).IsComplete()
		r.AddCertificate(cert, now)
		return nil
	})
	if err != nil {
		s.cleanupBlobs(ctx, up.Key)
		return nil, err
	}

	if !wasComplete && rec.Steps.Get(models.StepEducationCertificate).IsComplete() {
		s.metrics.IncrementStepCompleted(string(models.StepEducationCertificate))
	}
	s.emitAudit(ctx, rec, audit.ActionCertificateUploaded, models.StepEducationCertificate, req.CertificateType)

	msg := "Certificate uploaded"
	if !cert.MeetsMinimumRequirement(now) {
		msg = "Certificate uploaded, but it does not meet the minimum education requirement"
	}
	return &models.StepResponse{
		Message:      msg,
		Verification: models.ToStatusResponse(rec, now),
	}, nil
}

// Submit hands a fully verified record to the admins.
func (s *Service) Submit(ctx context.Context, instructorID id.UserID) (_ *models.StepResponse, err error) {
	ctx, end := s.startSpan(ctx, "submit")
	defer end(&err)

	now := requestcontext.Now(ctx)
	rec, err := s.mutate(ctx, s.byInstructor(instructorID), func(r *models.Record) error {
		return r.SubmitForReview(now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementSubmissions()
	s.emitAudit(ctx, rec, audit.ActionSubmittedForReview, "", "")
	s.logger.InfoContext(ctx, "verification submitted for review",
		"verification_id", rec.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.StepResponse{
		Message:      "Verification submitted for review",
		Verification: models.ToStatusResponse(rec, now),
	}, nil
}

// Status returns the instructor's progress view.
func (s *Service) Status(ctx context.Context, instructorID id.UserID) (_ *models.StatusResponse, err error) {
	ctx, end := s.startSpan(ctx, "status")
	defer end(&err)

	rec, err := s.loadForInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	resp := models.ToStatusResponse(rec, requestcontext.Now(ctx))
	return &resp, nil
}

func (s *Service) ensureMutable(ctx context.Context, instructorID id.UserID) error {
	rec, err := s.loadForInstructor(ctx, instructorID)
	if err != nil {
		return err
	}
	return rec.EnsureInstructorMutable()
}

func (s *Service) putUpload(ctx context.Context, instructorID id.UserID, kind blob.Kind, f File) (models.Upload, error) {
	key := blob.NewKey(instructorID.String(), kind, f.ContentType, requestcontext.Now(ctx))
	obj, err := s.blobs.Put(ctx, key, f.ContentType, f.Data)
	if err != nil {
		return models.Upload{}, err
	}
	return models.Upload{
		Key:         obj.Key,
		URL:         obj.URL,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		UploadedAt:  requestcontext.Now(ctx),
	}, nil
}

func uploadKey(u *models.Upload) string {
	if u == nil {
		return ""
	}
	return u.Key
}
