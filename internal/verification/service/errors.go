package service

import (
	"context"
	"errors"

	"jojo/internal/verification/otp"
	dErrors "jojo/pkg/domain-errors"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/requestcontext"
)

var (
	errNotInitialized = dErrors.New(dErrors.CodeNotInitialized, "verification not initialized")
	errNotFound       = dErrors.New(dErrors.CodeNotFound, "verification not found")
	errConflict       = dErrors.New(dErrors.CodeConflict, "verification was modified concurrently, please retry")
)

// translate maps store errors to domain errors. Domain errors pass through.
func (s *Service) translate(ctx context.Context, err error, op string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return errConflict
	case errors.Is(err, sentinel.ErrNotFound):
		return errNotFound
	}
	s.logger.ErrorContext(ctx, "verification operation failed",
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
}

// upstream reports a provider failure with the provider's message attached.
func (s *Service) upstream(ctx context.Context, provider string, err error) error {
	s.metrics.IncrementUpstreamFailure(provider)
	s.logger.WarnContext(ctx, "upstream provider failed",
		"provider", provider,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUpstreamFailure, provider+" provider is temporarily unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeUpstreamFailure, provider+" provider failed: "+err.Error())
}

// codeError maps one-time-code failures to a field error on "code".
func codeError(err error) (reason string, mapped error) {
	switch {
	case errors.Is(err, otp.ErrInvalidCode):
		return "invalid", dErrors.NewField("code", "invalid verification code")
	case errors.Is(err, sentinel.ErrExpired):
		return "expired", dErrors.NewField("code", "verification code expired or was never requested")
	case errors.Is(err, sentinel.ErrExhausted):
		return "exhausted", dErrors.NewField("code", "too many incorrect attempts, request a new code")
	}
	return "", nil
}
