package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIdentity is the sentinel returned when no usable client address can
// be resolved. All such requests share one rate-limit bucket; callers must
// treat that as a known limitation rather than a distinct client.
const UnknownIdentity = "unknown"

// ResolveIdentity extracts a best-effort client identity from forwarded
// address headers with deterministic precedence:
//
//  1. X-NF-Client-Connection-IP (set by the edge in front of us)
//  2. First valid entry of X-Forwarded-For
//  3. Client-IP
//  4. RemoteAddr
//
// Falls back to UnknownIdentity when nothing resolves to a valid address.
func ResolveIdentity(r *http.Request) string {
	if ip := r.Header.Get("X-NF-Client-Connection-IP"); isValidIP(ip) {
		return ip
	}

	// X-Forwarded-For can contain multiple IPs, take the first valid one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isValidIP(ip) {
				return ip
			}
		}
	}

	if ip := r.Header.Get("Client-IP"); isValidIP(ip) {
		return ip
	}

	if ip := remoteAddr(r); isValidIP(ip) {
		return ip
	}

	return UnknownIdentity
}

// remoteAddr extracts the IP address from RemoteAddr (removing port if present)
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	// RemoteAddr may include port: "ip:port"
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// isValidIP checks if a string is a valid IPv4 or IPv6 address
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
