package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "jojo/pkg/domain-errors"
)

type codeRequest struct {
	Code string `json:"code"`
}

func (r *codeRequest) Sanitize() { r.Code = strings.TrimSpace(r.Code) }

func (r *codeRequest) Validate() error {
	if r.Code == "" {
		return dErrors.NewField("code", "code is required")
	}
	return nil
}

type plainRequest struct {
	Name string `json:"name"`
}

func (r *plainRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("sanitizes before validating", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":" 123456 "}`))
		rec := httptest.NewRecorder()

		req, ok := DecodeAndPrepare[codeRequest](rec, r, logger, ctx, "req-1")
		require.True(t, ok)
		assert.Equal(t, "123456", req.Code)
	})

	t.Run("empty body is a bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[codeRequest](rec, r, logger, ctx, "req-1")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "request body is required", decodeBody(t, rec).ErrorDescription)
	})

	t.Run("domain validation error keeps field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"  "}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[codeRequest](rec, r, logger, ctx, "req-1")
		require.False(t, ok)
		body := decodeBody(t, rec)
		assert.Equal(t, "validation_failed", body.Error)
		assert.Equal(t, "code", body.Field)
	})

	t.Run("plain validation error becomes validation_failed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[plainRequest](rec, r, logger, ctx, "req-1")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", decodeBody(t, rec).Error)
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not initialized", dErrors.New(dErrors.CodeNotInitialized, "verification not initialized"), http.StatusNotFound, "not_initialized"},
		{"incomplete steps", dErrors.New(dErrors.CodeIncompleteSteps, "steps remaining"), http.StatusUnprocessableEntity, "incomplete_steps"},
		{"upstream", dErrors.New(dErrors.CodeUpstreamFailure, "sms provider failed"), http.StatusBadGateway, "upstream_failure"},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "admin role required"), http.StatusForbidden, "forbidden"},
		{"conflict", dErrors.New(dErrors.CodeConflict, "concurrent update"), http.StatusConflict, "conflict"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeBody(t, rec).Error)
		})
	}

	t.Run("rate limited sets Retry-After", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.NewRateLimited("too many codes", 61500*time.Millisecond))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "62", rec.Header().Get("Retry-After"))
	})

	t.Run("internal errors hide description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.Wrap(errors.New("mongo: connection refused"), dErrors.CodeInternal, "failed to load verification"))
		assert.Empty(t, decodeBody(t, rec).ErrorDescription)
	})
}
