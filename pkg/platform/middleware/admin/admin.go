package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"shieldgate/pkg/platform/httputil"
	"shieldgate/pkg/requestcontext"
)

type contextKeyAdminActor struct{}

// ActorID returns the admin actor recorded by RequireAdminToken, if any.
func ActorID(ctx context.Context) string {
	if actor, ok := ctx.Value(contextKeyAdminActor{}).(string); ok {
		return actor
	}
	return ""
}

// RequireAdminToken admits requests carrying "Authorization: Bearer <token>"
// matching expectedToken. An empty expectedToken disables the admin surface.
// The optional X-Admin-Actor header is kept on the context for attribution.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if expectedToken == "" {
				httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
				return
			}

			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="shieldgate-admin"`)
				httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error":             "unauthorized",
					"error_description": "admin token required",
				})
				return
			}

			if actor := strings.TrimSpace(r.Header.Get("X-Admin-Actor")); actor != "" && len(actor) <= 128 {
				ctx = context.WithValue(ctx, contextKeyAdminActor{}, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
