// Package email renders and delivers instructor verification emails.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"jojo/internal/platform/privacy"
	"jojo/pkg/platform/circuit"
	"jojo/pkg/platform/sentinel"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders templates and sends them through a circuit breaker.
type Mailer struct {
	sender  Sender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewMailer(sender Sender, breaker *circuit.Breaker, logger *slog.Logger) *Mailer {
	if breaker == nil {
		breaker = circuit.New("email")
	}
	return &Mailer{sender: sender, breaker: breaker, logger: logger}
}

// SendVerificationCode emails a one-time code.
func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	data := struct {
		Code             string
		ExpiresInMinutes int
	}{Code: code, ExpiresInMinutes: int(ttl.Minutes())}
	text := fmt.Sprintf("Your Coding Jojo verification code is %s. It expires in %d minutes.", code, data.ExpiresInMinutes)
	return m.deliver(ctx, to, "Your Coding Jojo verification code", "verification_code.html", data, text)
}

// Approved tells the instructor their verification passed.
func (m *Mailer) Approved(ctx context.Context, to, feedback string) error {
	data := struct{ Feedback string }{Feedback: feedback}
	return m.deliver(ctx, to, "Your instructor verification is approved", "decision_approved.html", data,
		"Your Coding Jojo instructor verification has been approved.")
}

// Rejected tells the instructor their verification failed.
func (m *Mailer) Rejected(ctx context.Context, to, reason string, allowResubmission bool) error {
	data := struct {
		Reason            string
		AllowResubmission bool
	}{Reason: reason, AllowResubmission: allowResubmission}
	return m.deliver(ctx, to, "Your instructor verification was not approved", "decision_rejected.html", data,
		"Your Coding Jojo instructor verification was not approved: "+reason)
}

// InformationRequested lists the steps a reviewer wants redone.
func (m *Mailer) InformationRequested(ctx context.Context, to, message string, steps []string) error {
	data := struct {
		Message string
		Steps   []string
	}{Message: message, Steps: steps}
	return m.deliver(ctx, to, "More information needed for your verification", "information_requested.html", data, message)
}

func (m *Mailer) deliver(ctx context.Context, to, subject, tmpl string, data any, text string) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	if !m.breaker.Allow() {
		m.logger.WarnContext(ctx, "email circuit open, skipping send",
			"template", tmpl,
			"to", privacy.MaskEmail(to),
		)
		return fmt.Errorf("email provider: %w", sentinel.ErrUnavailable)
	}
	err := m.sender.Send(ctx, Message{To: to, Subject: subject, HTML: buf.String(), Text: text})
	if err != nil {
		if m.breaker.RecordFailure() {
			m.logger.ErrorContext(ctx, "email circuit opened", "breaker", m.breaker.Name())
		}
		return err
	}
	m.breaker.RecordSuccess()
	m.logger.InfoContext(ctx, "email sent",
		"template", tmpl,
		"to", privacy.MaskEmail(to),
	)
	return nil
}
