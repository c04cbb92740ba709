// Package metadata resolves the client address of a request, honouring
// forwarding headers only when the direct peer is a trusted proxy.
package metadata

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"shieldgate/pkg/requestcontext"
)

// MaxXFFHeaderLength bounds the forwarding headers that are parsed at all.
const MaxXFFHeaderLength = 500

// Unknown is reported when RemoteAddr cannot be parsed.
const Unknown = "unknown"

// Resolver extracts the client IP from a request.
type Resolver struct {
	trustedProxies []netip.Prefix
}

// NewResolver creates a resolver. With no trusted proxies, forwarding
// headers are never trusted.
func NewResolver(trustedProxies []netip.Prefix) *Resolver {
	return &Resolver{trustedProxies: trustedProxies}
}

// ParsePrefixes parses CIDRs or bare addresses (treated as /32 or /128).
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("parse prefix %q: %w", v, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("parse address %q: %w", v, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// ClientIP returns the first valid X-Forwarded-For entry (or X-Real-IP)
// when the peer is trusted, and the peer address otherwise.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer, ok := parseRemoteAddr(r.RemoteAddr)
	if !ok {
		return Unknown
	}
	if !res.isTrusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		joined := strings.Join(xff, ",")
		if len(joined) > MaxXFFHeaderLength {
			return peer.String()
		}
		for _, part := range strings.Split(joined, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(part)); err == nil {
				return addr.Unmap().String()
			}
		}
		return peer.String()
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && len(xri) <= MaxXFFHeaderLength {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer.String()
}

// IsTrustedPeer reports whether the direct peer of r is a trusted proxy.
func (res *Resolver) IsTrustedPeer(r *http.Request) bool {
	peer, ok := parseRemoteAddr(r.RemoteAddr)
	return ok && res.isTrusted(peer)
}

func (res *Resolver) isTrusted(addr netip.Addr) bool {
	for _, prefix := range res.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Middleware stores the resolved client IP and User-Agent on the context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), res.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseRemoteAddr accepts "ip:port", "[v6]:port" and bare addresses.
func parseRemoteAddr(remoteAddr string) (netip.Addr, bool) {
	if remoteAddr == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap().WithZone(""), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(remoteAddr, "[]")); err == nil {
		return addr.Unmap().WithZone(""), true
	}
	return netip.Addr{}, false
}
