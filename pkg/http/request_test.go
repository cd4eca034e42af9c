package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/hello2himel/urochithi/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestResolveIdentity_EdgeHeaderTakesPrecedence(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("X-NF-Client-Connection-IP", "203.0.113.7")
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	r.Header.Set("Client-IP", "192.0.2.1")
	r.RemoteAddr = "10.0.0.9:4431"

	assert.Equal(t, "203.0.113.7", pkghttp.ResolveIdentity(r))
}

func TestResolveIdentity_FirstForwardedForEntry(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")

	assert.Equal(t, "198.51.100.1", pkghttp.ResolveIdentity(r))
}

func TestResolveIdentity_SkipsInvalidForwardedForEntries(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("X-Forwarded-For", "not-an-ip, 198.51.100.2")

	assert.Equal(t, "198.51.100.2", pkghttp.ResolveIdentity(r))
}

func TestResolveIdentity_ClientIPFallback(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("Client-IP", "192.0.2.1")
	r.RemoteAddr = ""

	assert.Equal(t, "192.0.2.1", pkghttp.ResolveIdentity(r))
}

func TestResolveIdentity_RemoteAddr(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "192.0.2.50:8443"

	assert.Equal(t, "192.0.2.50", pkghttp.ResolveIdentity(r))
}

func TestResolveIdentity_UnknownSentinel(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = ""

	assert.Equal(t, pkghttp.UnknownIdentity, pkghttp.ResolveIdentity(r))
}
