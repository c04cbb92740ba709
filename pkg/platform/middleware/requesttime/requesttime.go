// Package requesttime pins a single "now" per request so every admission
// stage and every emitted event agree on the time.
package requesttime

import (
	"net/http"
	"time"

	"shieldgate/pkg/requestcontext"
)

// Middleware stamps the request context with clock() at entry. A nil clock
// means time.Now.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
