package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// GenerateCSRFToken returns a 256-bit random token. A session gets exactly
// one live token, issued lazily and stable until the session is destroyed.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CSRFTokenEqual compares a candidate against the session's token in
// constant time. An empty stored token never matches anything.
func CSRFTokenEqual(stored, candidate string) bool {
	if stored == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
