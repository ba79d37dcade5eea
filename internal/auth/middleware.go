package auth

import (
	"context"
	"net/http"

	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// Guard decides whether a request's session is valid. Implemented by
// services.AuthService; declared here so the middleware has no service
// dependency.
type Guard interface {
	IsAuthenticated(ctx context.Context, sessionID string) bool
}

type contextKey string

const sessionIDContextKey contextKey = "session_id"

// RequireSession rejects requests without a valid authenticated session and
// stores the session ID in the request context for downstream handlers.
// Expired and invalid sessions get the same response as missing ones.
func RequireSession(guard Guard, cookieConfig CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := GetSessionCookie(r)
			if sessionID == "" || !guard.IsAuthenticated(r.Context(), sessionID) {
				ClearSessionCookie(w, cookieConfig)
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSessionID(r.Context(), sessionID)))
		})
	}
}

// ContextWithSessionID returns a context carrying the session ID the way
// RequireSession stores it. Lets handlers be exercised without the full
// middleware chain.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext returns the session ID stored by RequireSession.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}
