package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tbeaumont/folio/internal/auth"
)

// CSRFValidator checks a candidate token against the session it was issued
// for. Implemented by services.AuthService.
type CSRFValidator interface {
	ValidateCSRFToken(sessionID, candidate string) bool
}

// CSRFProtection validates the X-CSRF-Token header on state-changing
// requests. Tokens are bound to the session, so a token stolen from one
// session is useless against another. Mount this inside RequireSession; it
// assumes the session ID is already in the request context.
func CSRFProtection(validator CSRFValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			sessionID := auth.SessionIDFromContext(r.Context())
			csrfToken := r.Header.Get("X-CSRF-Token")

			if csrfToken == "" {
				logger.Warn("CSRF token missing",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if !validator.ValidateCSRFToken(sessionID, csrfToken) {
				logger.Warn("CSRF token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				http.Error(w, "CSRF token invalid", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
