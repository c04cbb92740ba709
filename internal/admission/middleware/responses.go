package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"shieldgate/internal/admission/models"
	"shieldgate/pkg/platform/httputil"
)

// Client-facing messages. They never carry the reason behind a denial.
const (
	msgAccessDenied      = "Access denied"
	msgTooManyRequests   = "Too many requests"
	msgInvalidRequest    = "Invalid request"
	msgEntityTooLarge    = "Request entity too large"
	msgUnsupportedMedium = "Unsupported media type"
)

const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
	headerStatus    = "X-RateLimit-Status"
)

func addRateLimitHeaders(h http.Header, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	h.Set(headerLimit, strconv.Itoa(result.Limit))
	h.Set(headerRemaining, strconv.Itoa(result.Remaining.Minute))
	if !result.ResetAt.IsZero() {
		h.Set(headerReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
	if result.Degraded {
		h.Set(headerStatus, "degraded")
	}
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	h := w.Header()
	h.Set("Retry-After", strconv.FormatInt(retryAfterSeconds(result.RetryAfter), 10))
	h.Set(headerLimit, strconv.Itoa(result.Limit))
	h.Set(headerRemaining, "0")
	if !result.ResetAt.IsZero() {
		h.Set(headerReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
	if result.Degraded {
		h.Set(headerStatus, "degraded")
	}
	httputil.WriteDetail(w, http.StatusTooManyRequests, msgTooManyRequests)
}

// retryAfterSeconds rounds up to whole seconds, at least 1.
func retryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	secs := int64(math.Ceil(d.Seconds()))
	return max(secs, 1)
}

func validationStatus(reason models.ValidationReason) (int, string) {
	switch reason {
	case models.ReasonSize:
		return http.StatusRequestEntityTooLarge, msgEntityTooLarge
	case models.ReasonContentType:
		return http.StatusUnsupportedMediaType, msgUnsupportedMedium
	default:
		return http.StatusBadRequest, msgInvalidRequest
	}
}
