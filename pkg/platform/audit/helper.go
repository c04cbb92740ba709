package audit

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"shieldgate/pkg/requestcontext"
)

// Enrich fills the correlation fields of event from ctx and classifies the
// user agent. Fields already set on event are kept.
func Enrich(ctx context.Context, event SecurityEvent) SecurityEvent {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	event.Bot = IsBot(event.UserAgent)
	return event
}

// IsBot reports whether a user agent string looks automated. An empty agent
// counts as automated since browsers always send one.
func IsBot(userAgent string) bool {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return true
	}
	if useragent.New(userAgent).Bot() {
		return true
	}
	lower := strings.ToLower(userAgent)
	for _, marker := range automatedAgents {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// automatedAgents are common HTTP client libraries and scanners that the
// user agent parser does not flag as bots.
var automatedAgents = []string{
	"bot/", "crawler", "spider", "curl/", "wget/", "python-requests", "go-http-client",
	"sqlmap", "nikto", "nmap",
}
