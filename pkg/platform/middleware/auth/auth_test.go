package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"jojo/pkg/requestcontext"
)

const (
	testUserID    = "550e8400-e29b-41d4-a716-446655440001"
	testSessionID = "550e8400-e29b-41d4-a716-446655440002"
)

// MockJWTValidator is a testify mock for JWTValidator
type MockJWTValidator struct {
	mock.Mock
}

func (m *MockJWTValidator) ValidateToken(tokenString string) (*JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockHandler captures whether it was called and the context it saw.
type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareTestSuite struct {
	suite.Suite
	validator   *MockJWTValidator
	logger      *slog.Logger
	nextHandler *mockHandler
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	s.validator = new(MockJWTValidator)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.nextHandler = &mockHandler{}
}

func (s *AuthMiddlewareTestSuite) TearDownTest() {
	s.validator.AssertExpectations(s.T())
}

func (s *AuthMiddlewareTestSuite) makeRequest(authHeader string, mws ...func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	var handler http.Handler = s.nextHandler
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	handler = RequireAuth(s.validator, s.logger)(handler)
	req := httptest.NewRequest(http.MethodGet, "/teacher/verification/status", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareTestSuite) TestValidTokenPopulatesPrincipal() {
	s.validator.On("ValidateToken", "valid-token").Return(&JWTClaims{
		UserID:    testUserID,
		SessionID: testSessionID,
		Email:     "ada@example.com",
		Role:      "Instructor",
		JTI:       "jti-123",
	}, nil)

	w := s.makeRequest("Bearer valid-token")

	require.True(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	principal, ok := requestcontext.GetPrincipal(s.nextHandler.context)
	require.True(s.T(), ok)
	assert.Equal(s.T(), testUserID, principal.UserID.String())
	assert.Equal(s.T(), testSessionID, principal.SessionID.String())
	assert.Equal(s.T(), "ada@example.com", principal.Email)
	assert.Equal(s.T(), requestcontext.RoleInstructor, principal.Role)
}

func (s *AuthMiddlewareTestSuite) TestMalformedClaims() {
	cases := []struct {
		name   string
		claims *JWTClaims
	}{
		{"bad user id", &JWTClaims{UserID: "nope", Role: "instructor"}},
		{"bad session id", &JWTClaims{UserID: testUserID, SessionID: "nope", Role: "instructor"}},
		{"unknown role", &JWTClaims{UserID: testUserID, Role: "superuser"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.nextHandler = &mockHandler{}
			token := "token-" + tc.name
			s.validator.On("ValidateToken", token).Return(tc.claims, nil).Once()

			w := s.makeRequest("Bearer " + token)

			assert.False(s.T(), s.nextHandler.called)
			assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
			assert.JSONEq(s.T(),
				`{"error":"unauthorized","error_description":"Invalid or expired token"}`,
				w.Body.String(),
			)
		})
	}
}

func (s *AuthMiddlewareTestSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "invalid-token").Return(nil, errors.New("token expired"))

	w := s.makeRequest("Bearer invalid-token")

	assert.False(s.T(), s.nextHandler.called)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "application/json", w.Header().Get("Content-Type"))
}

func (s *AuthMiddlewareTestSuite) TestInvalidAuthorizationFormats() {
	for _, header := range []string{"", "token-without-bearer", "Basic dXNlcjpwYXNz", "bearer token", "Bearer    "} {
		s.Run(header, func() {
			s.nextHandler = &mockHandler{}
			w := s.makeRequest(header)

			assert.False(s.T(), s.nextHandler.called)
			assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
			assert.JSONEq(s.T(),
				`{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`,
				w.Body.String(),
			)
		})
	}
}

func (s *AuthMiddlewareTestSuite) TestRequireRole() {
	s.validator.On("ValidateToken", "student-token").Return(&JWTClaims{UserID: testUserID, Role: "student"}, nil)
	s.validator.On("ValidateToken", "admin-token").Return(&JWTClaims{UserID: testUserID, Role: "admin"}, nil)
	adminOnly := RequireRole(s.logger, requestcontext.RoleAdmin)

	s.Run("forbids other roles", func() {
		s.nextHandler = &mockHandler{}
		w := s.makeRequest("Bearer student-token", adminOnly)
		assert.False(s.T(), s.nextHandler.called)
		assert.Equal(s.T(), http.StatusForbidden, w.Code)
	})

	s.Run("admits matching role", func() {
		s.nextHandler = &mockHandler{}
		w := s.makeRequest("Bearer admin-token", adminOnly)
		assert.True(s.T(), s.nextHandler.called)
		assert.Equal(s.T(), http.StatusOK, w.Code)
	})
}

func TestAuthMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}
