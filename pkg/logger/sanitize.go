package logger

import (
	"strings"
)

// MaskedPIN masks a PIN for logging, keeping only its length visible
// (e.g., "****" for a 4-digit PIN). PINs are never logged raw.
func MaskedPIN(pin string) string {
	if pin == "" {
		return "[empty]"
	}
	return strings.Repeat("*", len(pin))
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"pin",
		"token",
		"secret",
		"password",
		"auth",
		"key",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param+"=") {
			return true
		}
	}
	return false
}
