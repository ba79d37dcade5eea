package http_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// Forwarding headers feed the lockout counters and the audit trail, so they
// are honored only when the request genuinely arrived through a proxy we run.

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	// A direct client trying to spoof its address.
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{
			"10.0.0.0/8",
			"172.16.0.0/12",
			"127.0.0.1/32",
		},
	}

	ip := pkghttp.ExtractClientIP(req, config)
	assert.Equal(t, "203.0.113.10", ip, "headers from an untrusted peer must be ignored")
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"

	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")
	req.Header.Set("X-Real-IP", "203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{
			"10.0.0.0/8",
			"127.0.0.1/32",
		},
	}

	ip := pkghttp.ExtractClientIP(req, config)
	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Real-IP", "203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	ip := pkghttp.ExtractClientIP(req, config)
	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_NilConfig_UsesRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	ip := pkghttp.ExtractClientIP(req, nil)
	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_IPv6_TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:54321"
	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"::1/128"},
	}

	ip := pkghttp.ExtractClientIP(req, config)
	assert.Equal(t, "2001:db8::1", ip)
}

func TestExtractClientIP_SkipsInvalidForwardedEntries(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	ip := pkghttp.ExtractClientIP(req, config)
	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_InvalidCIDRIgnored(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"not-a-cidr"},
	}

	ip := pkghttp.ExtractClientIP(req, config)
	assert.Equal(t, "10.0.0.5", ip, "a broken CIDR entry must not widen trust")
}
