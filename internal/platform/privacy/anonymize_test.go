package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "ipv4 standard address", input: "192.168.1.47", expected: "192.168.1.0"},
		{name: "ipv4 already masked", input: "10.0.0.0", expected: "10.0.0.0"},
		{name: "ipv4 high last octet", input: "172.16.50.255", expected: "172.16.50.0"},
		{name: "ipv4 localhost", input: "127.0.0.1", expected: "127.0.0.0"},
		{name: "ipv4-mapped ipv6", input: "::ffff:203.0.113.9", expected: "203.0.113.0"},

		{name: "ipv6 full address", input: "2001:db8:85a3:0000:0000:8a2e:0370:7334", expected: "2001:db8:85a3::"},
		{name: "ipv6 compressed address", input: "2001:db8:85a3::8a2e:370:7334", expected: "2001:db8:85a3::"},
		{name: "ipv6 loopback", input: "::1", expected: "::"},
		{name: "ipv6 link-local with zone", input: "fe80::1%eth0", expected: "fe80::"},

		{name: "empty string", input: "", expected: "unknown"},
		{name: "unknown value", input: "unknown", expected: "unknown"},
		{name: "invalid ip", input: "not-an-ip", expected: "invalid"},
		{name: "partial ip", input: "192.168.1", expected: "invalid"},
		{name: "ip with port", input: "192.168.1.1:8080", expected: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnonymizeIP(tt.input))
		})
	}
}

func TestAnonymizeClientKey(t *testing.T) {
	assert.Equal(t, "ip:198.51.100.0", AnonymizeClientKey("ip:198.51.100.23"))
	assert.Equal(t, "user:a1b2…", AnonymizeClientKey("user:a1b2c3d4"))
	assert.Equal(t, "apikey:k1", AnonymizeClientKey("apikey:k1"))
	assert.Equal(t, "unknown", AnonymizeClientKey("garbage"))
}
