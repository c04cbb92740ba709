// Package privacy masks client identifiers before they reach logs or audit sinks.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP truncates an address to its network prefix: /24 for IPv4
// (including IPv4-mapped IPv6) and /48 for IPv6.
//
// Returns "unknown" for empty input and "invalid" for unparseable input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// AnonymizeClientKey masks a "kind:value" client key for logging.
// IP keys keep their network prefix, credential-derived keys keep only a
// short prefix of the value.
func AnonymizeClientKey(key string) string {
	kind, value, ok := strings.Cut(key, ":")
	if !ok {
		return "unknown"
	}
	switch kind {
	case "ip":
		return kind + ":" + AnonymizeIP(value)
	default:
		if len(value) > 4 {
			value = value[:4] + "…"
		}
		return kind + ":" + value
	}
}
