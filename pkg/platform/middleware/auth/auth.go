// Package auth attaches already-verified caller identities to the request
// context. It never rejects a request: an unverifiable credential is simply
// ignored and the caller is keyed by address instead.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"shieldgate/pkg/requestcontext"
)

// APIKeyHeader carries client API keys.
const APIKeyHeader = "X-API-Key"

// maxAPIKeyLength bounds keys that are hashed at all.
const maxAPIKeyLength = 256

// KeyVerifier maps a presented API key to a stable key id.
type KeyVerifier interface {
	Verify(ctx context.Context, key string) (keyID string, ok bool)
}

// StaticKeys verifies keys against a fixed id -> key table. Only digests are
// kept in memory and comparison is constant-time per entry.
type StaticKeys struct {
	entries []staticKey
}

type staticKey struct {
	id     string
	digest [sha256.Size]byte
}

// NewStaticKeys builds a verifier from id -> key pairs. Empty keys are skipped.
func NewStaticKeys(keys map[string]string) *StaticKeys {
	s := &StaticKeys{}
	for id, key := range keys {
		if key == "" {
			continue
		}
		s.entries = append(s.entries, staticKey{id: id, digest: sha256.Sum256([]byte(key))})
	}
	return s
}

// Verify implements KeyVerifier.
func (s *StaticKeys) Verify(_ context.Context, key string) (string, bool) {
	digest := sha256.Sum256([]byte(key))
	matched := ""
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(digest[:], e.digest[:]) == 1 {
			matched = e.id
		}
	}
	return matched, matched != ""
}

// APIKey records the key id of a verified X-API-Key on the context.
// Unverified keys are logged at debug level and otherwise ignored so that
// rotating made-up keys cannot mint fresh rate-limit identities.
func APIKey(verifier KeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" || verifier == nil || len(key) > maxAPIKeyLength {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			keyID, ok := verifier.Verify(ctx, key)
			if !ok {
				logger.DebugContext(ctx, "unverified api key ignored",
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAPIKey(ctx, keyID)))
		})
	}
}

// ForwardedUser copies an authenticated user id set by an upstream gateway
// from header onto the context, but only when trusted(r) holds for the
// direct peer.
func ForwardedUser(header string, trusted func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(header))
			if header == "" || userID == "" || len(userID) > 128 || trusted == nil || !trusted(r) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(r.Context(), userID)))
		})
	}
}
