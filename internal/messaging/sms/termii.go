package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTermiiBaseURL = "https://api.ng.termii.com"

// TermiiSender posts messages to the Termii SMS API.
type TermiiSender struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	senderID string
}

type TermiiOption func(*TermiiSender)

func WithHTTPClient(c *http.Client) TermiiOption {
	return func(s *TermiiSender) { s.client = c }
}

func WithBaseURL(u string) TermiiOption {
	return func(s *TermiiSender) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewTermiiSender(apiKey, senderID string, timeout time.Duration, opts ...TermiiOption) *TermiiSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &TermiiSender{
		client:   &http.Client{Timeout: timeout},
		baseURL:  DefaultTermiiBaseURL,
		apiKey:   apiKey,
		senderID: senderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type termiiRequest struct {
	APIKey  string `json:"api_key"`
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type termiiResponse struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

func (s *TermiiSender) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(termiiRequest{
		APIKey:  s.apiKey,
		To:      strings.TrimPrefix(to, "+"),
		From:    s.senderID,
		SMS:     body,
		Type:    "plain",
		Channel: "generic",
	})
	if err != nil {
		return fmt.Errorf("termii: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/sms/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("termii: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("termii: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed termiiResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("termii: status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
