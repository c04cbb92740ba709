package models

import (
	"time"
)

// EndpointClass groups routes that share one rate-limit policy.
type EndpointClass string

const (
	// ClassAuth: credential endpoints, tightest ceilings.
	ClassAuth EndpointClass = "auth"
	// ClassSensitive: admin and other privileged operations.
	ClassSensitive EndpointClass = "sensitive"
	// ClassRead: safe methods on everything else.
	ClassRead EndpointClass = "read"
	// ClassWrite: mutations on everything else.
	ClassWrite EndpointClass = "write"
)

func (c EndpointClass) String() string {
	return string(c)
}

// Gate names the rate-limit check that denied a request.
type Gate string

const (
	GateBurst  Gate = "burst"
	GateMinute Gate = "minute"
	GateHour   Gate = "hour"
	GateDay    Gate = "day"
)

// Policy is the resolved limit set for one endpoint class.
type Policy struct {
	BurstCapacity   int
	RefillPerSecond float64
	PerMinute       int
	PerHour         int
	PerDay          int
}

// Remaining is the unused capacity of each sliding window.
type Remaining struct {
	Minute int `json:"minute"`
	Hour   int `json:"hour"`
	Day    int `json:"day"`
}

// RateLimitResult is the outcome of one rate-limit check. On denial Gate and
// Limit describe the gate that failed; on allow Limit is the per-minute ceiling.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Gate       Gate          `json:"gate,omitempty"`
	Limit      int           `json:"limit"`
	Remaining  Remaining     `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	// Degraded is set when the decision came from the local fallback store.
	Degraded bool `json:"degraded,omitempty"`
}

// BruteForcePolicy controls failure tracking and blocking.
type BruteForcePolicy struct {
	Threshold     int
	Lookback      time.Duration
	BlockDuration time.Duration
}

// FailureResult is returned by RecordFailure.
type FailureResult struct {
	FailedAttempts int
	// BruteForceDetected is true only on the failure that started a new block.
	BruteForceDetected bool
	BlockedUntil       time.Time
	Whitelisted        bool
}

// BlockedIP describes an active block.
type BlockedIP struct {
	IP             string    `json:"ip"`
	BlockedUntil   time.Time `json:"blocked_until"`
	FailedAttempts int       `json:"failed_attempts"`
}

// ValidationReason identifies the validator step that failed.
type ValidationReason string

const (
	ReasonSize        ValidationReason = "SIZE"
	ReasonHeaders     ValidationReason = "HEADERS"
	ReasonURL         ValidationReason = "URL"
	ReasonContentType ValidationReason = "CONTENT_TYPE"
	ReasonBody        ValidationReason = "BODY"
)

// ValidationResult is the validator verdict. Detail is for logs and audit
// events only and never reaches the client.
type ValidationResult struct {
	OK     bool
	Reason ValidationReason
	Detail string
	// PatternMatch marks failures caused by the threat pattern scan rather
	// than a structural limit.
	PatternMatch bool
}

// Valid is the passing ValidationResult.
func Valid() ValidationResult {
	return ValidationResult{OK: true}
}

// Invalid builds a structural failure.
func Invalid(reason ValidationReason, detail string) ValidationResult {
	return ValidationResult{Reason: reason, Detail: detail}
}

// Suspicious builds a pattern-scan failure.
func Suspicious(reason ValidationReason, detail string) ValidationResult {
	return ValidationResult{Reason: reason, Detail: detail, PatternMatch: true}
}

// Stage is a state of the admission pipeline.
type Stage string

const (
	StageReceived    Stage = "RECEIVED"
	StageIPChecked   Stage = "IP_CHECKED"
	StageRateChecked Stage = "RATE_CHECKED"
	StageValidated   Stage = "VALIDATED"
	StageForwarded   Stage = "FORWARDED"
	StageResponded   Stage = "RESPONDED"

	StageBlocked   Stage = "BLOCKED"
	StageThrottled Stage = "THROTTLED"
	StageRejected  Stage = "REJECTED"
)

// IsTerminal reports whether the pipeline stops at s without forwarding.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageBlocked, StageThrottled, StageRejected, StageResponded:
		return true
	}
	return false
}
