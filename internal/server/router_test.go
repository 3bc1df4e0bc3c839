package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	jwttoken "jojo/internal/jwt_token"
	"jojo/internal/platform/config"
	"jojo/internal/platform/health"
	"jojo/internal/platform/logger"
	"jojo/internal/verification/models"
	"jojo/internal/verification/otp"
	"jojo/internal/verification/store"
	id "jojo/pkg/domain"
	"jojo/pkg/requestcontext"
	"jojo/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	router http.Handler
	tokens *jwttoken.JWTService
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	cfg := config.Defaults()
	cfg.Server.ThrottlePerSec = 0

	log := logger.NewNop()
	backends := InMemoryBackends(store.NewInMemory(), log)
	backends.CodeOptions = []otp.Option{otp.WithHashCost(bcrypt.MinCost)}

	reg := prometheus.NewRegistry()
	v := NewVerification(cfg, backends, reg, log)
	s.T().Cleanup(v.Publisher.Close)

	s.tokens = jwttoken.NewJWTService("router-test-key", cfg.Auth.Issuer, cfg.Auth.Audience, time.Hour)

	router, err := NewRouter(cfg.Server, RouterDeps{
		Verification: v.Handler,
		Health:       health.New(cfg.Server.Env),
		Tokens:       jwttoken.NewJWTServiceAdapter(s.tokens),
		Gatherer:     reg,
	}, log)
	s.Require().NoError(err)
	s.router = router
}

func (s *RouterSuite) token(userID id.UserID, role requestcontext.Role) string {
	tok, err := s.tokens.GenerateAccessToken(context.Background(), userID, id.SessionID{}, "instructor@example.com", role)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func (s *RouterSuite) TestPlatformRoutes() {
	s.Run("liveness is public", func() {
		rec := s.do(http.MethodGet, "/health/live", "", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("metrics are public", func() {
		rec := s.do(http.MethodGet, "/metrics", "", nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("request id is echoed", func() {
		rec := s.do(http.MethodGet, "/health/live", "", nil)
		s.NotEmpty(rec.Header().Get("X-Request-ID"))
	})
}

func (s *RouterSuite) TestAuthentication() {
	instructor := s.token(testutil.TestIDs.InstructorID1, requestcontext.RoleInstructor)
	admin := s.token(testutil.TestIDs.AdminID, requestcontext.RoleAdmin)
	student := s.token(testutil.TestIDs.InstructorID2, requestcontext.RoleStudent)

	s.Run("missing token is unauthorized", func() {
		rec := s.do(http.MethodGet, "/teacher/verification/status", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Equal("unauthorized", s.errorCode(rec))
	})

	s.Run("garbage token is unauthorized", func() {
		rec := s.do(http.MethodGet, "/admin/instructor-verifications", "not-a-jwt", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("students cannot use the wizard", func() {
		rec := s.do(http.MethodGet, "/teacher/verification/status", student, nil)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("forbidden", s.errorCode(rec))
	})

	s.Run("instructors cannot reach admin routes", func() {
		rec := s.do(http.MethodGet, "/admin/instructor-verifications", instructor, nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("admins cannot use the wizard", func() {
		rec := s.do(http.MethodGet, "/teacher/verification/status", admin, nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *RouterSuite) TestInstructorToAdminFlow() {
	instructor := s.token(testutil.TestIDs.InstructorID1, requestcontext.RoleInstructor)
	admin := s.token(testutil.TestIDs.AdminID, requestcontext.RoleAdmin)

	rec := s.do(http.MethodGet, "/teacher/verification/status", instructor, nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.Equal("not_initialized", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/teacher/verification/initialize", instructor, map[string]string{
		"phoneNumber": "08012345678",
		"countryCode": "+234",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var initialized models.InitializeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &initialized))
	s.Equal("pending", initialized.Verification.VerificationStatus)
	s.Equal(0, initialized.Verification.ProgressPercentage)

	rec = s.do(http.MethodGet, "/admin/instructor-verifications?status=pending", admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var list models.ListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list.Verifications, 1)
	s.Equal(testutil.TestIDs.InstructorID1.String(), list.Verifications[0].InstructorID)
	s.Equal("instructor@example.com", list.Verifications[0].Email)
}

var pdfDocument = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func (s *RouterSuite) uploadCertificate(token, institution string) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"certificateType": "master",
		"institution":     institution,
		"fieldOfStudy":    "Computer Science",
		"graduationYear":  "2016",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return 0, err
		}
	}
	part, err := mw.CreateFormFile("certificateDocument", "degree.pdf")
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(pdfDocument); err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req := httptest.NewRequest(http.MethodPost, "/teacher/verification/education-certificate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec.Code, nil
}

func (s *RouterSuite) TestConcurrentCertificateUploadsBothLand() {
	instructor := s.token(testutil.TestIDs.InstructorID1, requestcontext.RoleInstructor)
	rec := s.do(http.MethodPost, "/teacher/verification/initialize", instructor, map[string]string{
		"phoneNumber": "08012345678",
		"countryCode": "+234",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	result := testutil.RunConcurrent(2, func(idx int) error {
		code, err := s.uploadCertificate(instructor, fmt.Sprintf("University %d", idx))
		if err != nil {
			return err
		}
		if code != http.StatusOK {
			return fmt.Errorf("upload %d: status %d", idx, code)
		}
		return nil
	})
	s.Equal(int32(2), result.Successes)

	rec = s.do(http.MethodGet, "/teacher/verification/status", instructor, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var status models.StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	s.Len(status.EducationVerification.Certificates, 2)
	s.True(status.CompletedSteps["educationCertificate"])
}

func (s *RouterSuite) TestRejectsBadTrustedProxies() {
	cfg := config.Defaults()
	cfg.Server.TrustedProxies = []string{"not-a-cidr"}

	_, err := NewRouter(cfg.Server, RouterDeps{}, logger.NewNop())
	s.Error(err)
}
