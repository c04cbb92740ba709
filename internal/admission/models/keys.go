package models

import (
	"fmt"
	"strings"
)

// KeyPrefix names the kind of identity a client key was derived from.
type KeyPrefix string

const (
	KeyPrefixUser   KeyPrefix = "user"
	KeyPrefixAPIKey KeyPrefix = "apikey"
	KeyPrefixIP     KeyPrefix = "ip"
)

// IsValid reports whether p is a known prefix.
func (p KeyPrefix) IsValid() bool {
	switch p {
	case KeyPrefixUser, KeyPrefixAPIKey, KeyPrefixIP:
		return true
	}
	return false
}

// NewClientKey builds the "kind:identifier" client key used for keying rate
// limits and for audit events.
func NewClientKey(prefix KeyPrefix, identifier string) string {
	return fmt.Sprintf("%s:%s", prefix, identifier)
}

// RateLimitKey identifies the limiter state of one client for one class.
type RateLimitKey struct {
	clientKey string
	class     EndpointClass
}

// NewRateLimitKey creates a storage key. The client key is sanitized so a
// user-controlled identifier cannot collide with another client's bucket.
func NewRateLimitKey(clientKey string, class EndpointClass) RateLimitKey {
	return RateLimitKey{
		clientKey: SanitizeKeySegment(clientKey),
		class:     class,
	}
}

// String returns the formatted key for storage lookup.
func (k RateLimitKey) String() string {
	return fmt.Sprintf("rl:%s:%s", k.clientKey, k.class)
}

// SanitizeKeySegment escapes the ':' delimiter. '_' is escaped first so the
// mapping stays injective:
//
//	"ip:1.2.3.4" -> "ip_c1.2.3.4"
//	"user_:x"    -> "user___cx"
func SanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
