package kafka

// DefaultSecurityEventsTopic carries SecurityEvent records keyed by client IP.
const DefaultSecurityEventsTopic = "shieldgate.security-events"
