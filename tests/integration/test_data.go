package integration

import (
	"fmt"
	"strings"
	"time"
)

// TestAccount generates unique admin credentials using a timestamp
func TestAccount(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("admin-%d-%s@example.com", ts, suffix)
	password = "IntegrationPass123"
	return
}

// ExtractResetToken pulls the token query parameter out of a reset link
func ExtractResetToken(resetLink string) string {
	_, token, ok := strings.Cut(resetLink, "?token=")
	if !ok {
		return ""
	}
	return token
}
