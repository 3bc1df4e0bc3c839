package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	jwttoken "jojo/internal/jwt_token"
	"jojo/internal/messaging/email"
	"jojo/internal/messaging/sms"
	"jojo/internal/platform/config"
	"jojo/internal/platform/health"
	"jojo/internal/platform/logger"
	"jojo/internal/server"
	"jojo/internal/verification/otp"
	"jojo/internal/verification/store"
	id "jojo/pkg/domain"
	"jojo/pkg/requestcontext"
)

// TestContext holds state between test steps. Every scenario gets its own
// in-process server over in-memory backends so the delivered codes can be read
// back from the memory senders.
type TestContext struct {
	server     *httptest.Server
	httpClient *http.Client
	tokens     *jwttoken.JWTService
	publisher  interface{ Close() }
	mail       *email.MemorySender
	texts      *sms.MemorySender

	LastResponse     *http.Response
	LastResponseBody []byte

	instructorEmail string
	instructorToken string
	adminToken      string
	phoneE164       string
	verificationID  string
}

// NewTestContext starts a fresh server.
func NewTestContext() (*TestContext, error) {
	cfg := config.Defaults()
	cfg.Server.ThrottlePerSec = 0

	log := logger.NewNop()
	mail := email.NewMemorySender(log)
	texts := sms.NewMemorySender(log)

	backends := server.InMemoryBackends(store.NewInMemory(), log)
	backends.EmailSender = mail
	backends.SMSSender = texts
	backends.CodeOptions = []otp.Option{otp.WithHashCost(bcrypt.MinCost)}

	v := server.NewVerification(cfg, backends, prometheus.NewRegistry(), log)
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, time.Hour)

	router, err := server.NewRouter(cfg.Server, server.RouterDeps{
		Verification: v.Handler,
		Health:       health.New(cfg.Server.Env),
		Tokens:       jwttoken.NewJWTServiceAdapter(tokens),
		Gatherer:     prometheus.NewRegistry(),
	}, log)
	if err != nil {
		return nil, err
	}

	srv := httptest.NewServer(router)
	return &TestContext{
		server:     srv,
		httpClient: srv.Client(),
		tokens:     tokens,
		publisher:  v.Publisher,
		mail:       mail,
		texts:      texts,
	}, nil
}

// Close stops the server.
func (tc *TestContext) Close() {
	tc.server.Close()
	tc.publisher.Close()
}

func (tc *TestContext) mint(role requestcontext.Role, emailAddr string) (string, error) {
	return tc.tokens.GenerateAccessToken(context.Background(), id.UserID(uuid.New()), id.SessionID{}, emailAddr, role)
}

// SignInInstructor mints an instructor token for a new user with emailAddr.
func (tc *TestContext) SignInInstructor(emailAddr string) error {
	tok, err := tc.mint(requestcontext.RoleInstructor, emailAddr)
	if err != nil {
		return err
	}
	tc.instructorEmail = emailAddr
	tc.instructorToken = tok
	return nil
}

// SignInAdmin mints an admin token.
func (tc *TestContext) SignInAdmin() error {
	tok, err := tc.mint(requestcontext.RoleAdmin, "admin@codingjojo.com")
	if err != nil {
		return err
	}
	tc.adminToken = tok
	return nil
}

func (tc *TestContext) InstructorToken() string { return tc.instructorToken }
func (tc *TestContext) AdminToken() string      { return tc.adminToken }
func (tc *TestContext) InstructorEmail() string { return tc.instructorEmail }

func (tc *TestContext) SetPhone(phone, countryCode string) {
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	tc.phoneE164 = countryCode + strings.TrimLeft(phone, "0")
}

func (tc *TestContext) VerificationID() string      { return tc.verificationID }
func (tc *TestContext) SetVerificationID(v string) { tc.verificationID = v }

// LastEmail returns the text body of the latest email sent to addr.
func (tc *TestContext) LastEmail(addr string) (string, bool) {
	msg, ok := tc.mail.Last(strings.ToLower(addr))
	if !ok {
		return "", false
	}
	return msg.Subject + "\n" + msg.Text, true
}

// LastText returns the latest SMS body sent to the instructor's phone.
func (tc *TestContext) LastText() (string, bool) {
	text, ok := tc.texts.Last(tc.phoneE164)
	if !ok {
		return "", false
	}
	return text.Body, true
}

// Do sends a JSON request with an optional bearer token and stores the response.
func (tc *TestContext) Do(method, path, token string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return tc.send(req, token)
}

// Upload sends a multipart form and stores the response.
func (tc *TestContext) Upload(path, token string, fields map[string]string, files map[string][]byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for field, data := range files {
		part, err := mw.CreateFormFile(field, field)
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.server.URL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return tc.send(req, token)
}

func (tc *TestContext) send(req *http.Request, token string) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response. Nested fields use
// dots: "verification.progressPercentage".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, key := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if data, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.LastResponse == nil {
		return ""
	}
	return tc.LastResponse.Header.Get(name)
}
