package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"shieldgate/pkg/requestcontext"
)

// IdentitySuite tests the identity-attaching middlewares.
//
// Justification: rate limits are keyed by these identities. An unverified key
// or an untrusted user header reaching the context would let a client rotate
// identities at will.
type IdentitySuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func capture(userID, apiKey *string) http.Handler {
	return http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*userID = requestcontext.UserID(r.Context())
		*apiKey = requestcontext.APIKey(r.Context())
	})
}

func (s *IdentitySuite) TestAPIKey() {
	verifier := NewStaticKeys(map[string]string{"partner-a": "sk_live_a", "disabled": ""})

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"verified key records id", "sk_live_a", "partner-a"},
		{"unknown key ignored", "sk_live_forged", ""},
		{"empty configured key never matches", "", ""},
		{"oversized key ignored", strings.Repeat("k", maxAPIKeyLength+1), ""},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			var userID, apiKey string
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(APIKeyHeader, tc.header)
			APIKey(verifier, s.logger)(capture(&userID, &apiKey)).ServeHTTP(httptest.NewRecorder(), req)
			s.Equal(tc.want, apiKey)
		})
	}
}

func (s *IdentitySuite) TestForwardedUser() {
	trusted := func(r *http.Request) bool { return strings.HasPrefix(r.RemoteAddr, "10.") }
	mw := ForwardedUser("X-Authenticated-User", trusted)

	s.Run("trusted peer sets user", func() {
		var userID, apiKey string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Authenticated-User", "user-123")
		mw(capture(&userID, &apiKey)).ServeHTTP(httptest.NewRecorder(), req)
		s.Equal("user-123", userID)
	})

	s.Run("untrusted peer is ignored", func() {
		var userID, apiKey string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:443"
		req.Header.Set("X-Authenticated-User", "admin")
		mw(capture(&userID, &apiKey)).ServeHTTP(httptest.NewRecorder(), req)
		s.Empty(userID)
	})
}
