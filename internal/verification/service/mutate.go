package service

import (
	"context"
	"errors"

	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/requestcontext"
)

type loader func(ctx context.Context) (*models.Record, error)

func (s *Service) byInstructor(instructorID id.UserID) loader {
	return func(ctx context.Context) (*models.Record, error) {
		return s.loadForInstructor(ctx, instructorID)
	}
}

func (s *Service) byID(recordID id.VerificationID) loader {
	return func(ctx context.Context) (*models.Record, error) {
		return s.loadByID(ctx, recordID)
	}
}

func (s *Service) loadForInstructor(ctx context.Context, instructorID id.UserID) (*models.Record, error) {
	rec, err := s.store.FindByInstructor(ctx, instructorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, errNotInitialized
	}
	if err != nil {
		return nil, s.translate(ctx, err, "load verification")
	}
	return rec, nil
}

func (s *Service) loadByID(ctx context.Context, recordID id.VerificationID) (*models.Record, error) {
	rec, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, s.translate(ctx, err, "load verification")
	}
	return rec, nil
}

// mutate re-reads the record, applies fn and writes it back, retrying when a
// concurrent writer bumped the version in between. fn must be safe to run
// more than once.
func (s *Service) mutate(ctx context.Context, load loader, fn func(r *models.Record) error) (*models.Record, error) {
	for attempt := 1; ; attempt++ {
		rec, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := fn(rec); err != nil {
			return nil, err
		}
		err = s.store.Update(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, s.translate(ctx, err, "save verification")
		}
		s.metrics.IncrementWriteConflict()
		if attempt >= s.conflictRetries {
			s.logger.WarnContext(ctx, "verification write conflict not resolved",
				"verification_id", rec.ID.String(),
				"attempts", attempt,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, errConflict
		}
	}
}
