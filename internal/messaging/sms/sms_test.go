package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jojo/internal/platform/logger"
	"jojo/pkg/platform/circuit"
	"jojo/pkg/platform/sentinel"
)

func TestTermiiSender_Send(t *testing.T) {
	var got termiiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sms/send", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message_id":"abc","message":"Successfully Sent"}`))
	}))
	defer srv.Close()

	sender := NewTermiiSender("key-123", "Jojo", time.Second, WithBaseURL(srv.URL))
	err := sender.Send(context.Background(), "+2348012345678", "hello")
	require.NoError(t, err)

	assert.Equal(t, "key-123", got.APIKey)
	assert.Equal(t, "2348012345678", got.To)
	assert.Equal(t, "Jojo", got.From)
	assert.Equal(t, "plain", got.Type)
	assert.Equal(t, "generic", got.Channel)
}

func TestTermiiSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Insufficient balance"}`))
	}))
	defer srv.Close()

	sender := NewTermiiSender("key", "Jojo", time.Second, WithBaseURL(srv.URL))
	err := sender.Send(context.Background(), "+2348012345678", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func TestNotifier_SendVerificationCode(t *testing.T) {
	sender := NewMemorySender(nil)
	n := NewNotifier(sender, nil, logger.NewNop())

	require.NoError(t, n.SendVerificationCode(context.Background(), "+15551234567", "123456", 10*time.Minute))

	text, ok := sender.Last("+15551234567")
	require.True(t, ok)
	assert.Contains(t, text.Body, "123456")
	assert.Contains(t, text.Body, "10 minutes")
}

func TestNotifier_FailsFastWhenBreakerOpen(t *testing.T) {
	sender := NewMemorySender(nil)
	sender.FailWith(errors.New("termii: status 500"))
	breaker := circuit.New("sms", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	n := NewNotifier(sender, breaker, logger.NewNop())
	ctx := context.Background()

	require.Error(t, n.SendVerificationCode(ctx, "+15551234567", "111111", time.Minute))

	sender.FailWith(nil)
	err := n.SendVerificationCode(ctx, "+15551234567", "222222", time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	_, sent := sender.Last("+15551234567")
	assert.False(t, sent)
}
