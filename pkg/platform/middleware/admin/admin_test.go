package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

// AdminMiddlewareSuite tests the admin authentication middleware.
//
// Justification: the admin surface can unblock attackers; the invariant
// "wrong token never reaches handler" must hold.
type AdminMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestAdminMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareSuite))
}

func (s *AdminMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *AdminMiddlewareSuite) serve(token, authHeader, actor string) (int, bool, string) {
	called := false
	var seenActor string
	handler := RequireAdminToken(token, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seenActor = ActorID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/admission/blocks", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if actor != "" {
		req.Header.Set("X-Admin-Actor", actor)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code, called, seenActor
}

func (s *AdminMiddlewareSuite) TestTokenValidation() {
	s.Run("correct bearer token passes with actor", func() {
		code, called, actor := s.serve("secret", "Bearer secret", "oncall@example.com")
		s.Equal(http.StatusOK, code)
		s.True(called)
		s.Equal("oncall@example.com", actor)
	})

	s.Run("scheme is case-insensitive", func() {
		code, called, _ := s.serve("secret", "bearer secret", "")
		s.Equal(http.StatusOK, code)
		s.True(called)
	})

	s.Run("wrong token is rejected", func() {
		code, called, _ := s.serve("secret", "Bearer guess", "")
		s.Equal(http.StatusUnauthorized, code)
		s.False(called)
	})

	s.Run("missing header is rejected", func() {
		code, called, _ := s.serve("secret", "", "")
		s.Equal(http.StatusUnauthorized, code)
		s.False(called)
	})

	s.Run("non-bearer scheme is rejected", func() {
		code, called, _ := s.serve("secret", "Basic secret", "")
		s.Equal(http.StatusUnauthorized, code)
		s.False(called)
	})

	s.Run("empty configured token disables admin", func() {
		code, called, _ := s.serve("", "Bearer ", "")
		s.Equal(http.StatusNotFound, code)
		s.False(called)
	})
}
