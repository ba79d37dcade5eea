package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/handlers"
	"github.com/tbeaumont/folio/internal/models"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

func newAuthHandler(guard *handlers.MockAuthGuard, resets *handlers.MockPasswordResetter) *handlers.AuthHandler {
	if guard == nil {
		guard = &handlers.MockAuthGuard{}
	}
	if resets == nil {
		resets = &handlers.MockPasswordResetter{}
	}
	return handlers.NewAuthHandler(guard, resets, auth.CookieConfig{}, 30*24*time.Hour, nil)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	session := handlers.TestSession("admin-1")
	guard := &handlers.MockAuthGuard{
		LoginFunc: func(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error) {
			return "new-session-id", nil
		},
		SessionFunc: func(sessionID string) (*models.Session, bool) {
			return session, sessionID == "new-session-id"
		},
	}

	handler := newAuthHandler(guard, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "admin@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "admin-1", resp.AdminID)
	assert.Equal(t, "csrf-token-abc", resp.CSRFToken)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie, "login should set a session cookie")
	assert.Equal(t, "new-session-id", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 0, cookie.MaxAge, "plain login gets a browser-session cookie")
}

func TestLogin_RememberMeExtendsCookie(t *testing.T) {
	guard := &handlers.MockAuthGuard{
		LoginFunc: func(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error) {
			assert.True(t, remember)
			return "remembered-session", nil
		},
		SessionFunc: func(sessionID string) (*models.Session, bool) {
			session := handlers.TestSession("admin-1")
			session.RememberMe = true
			return session, true
		},
	}

	handler := newAuthHandler(guard, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:      "admin@example.com",
		Password:   "password123",
		RememberMe: true,
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, 200, w.Code)
	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	// Bad credentials, lockout, and a deactivated account all produce the
	// same response so the endpoint leaks nothing about the account.
	loginErrors := []error{
		models.ErrInvalidCredentials,
		models.ErrLockedOut,
		models.ErrUnauthorized,
	}

	for _, loginErr := range loginErrors {
		t.Run(loginErr.Error(), func(t *testing.T) {
			guard := &handlers.MockAuthGuard{
				LoginFunc: func(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error) {
					return "", loginErr
				},
			}

			handler := newAuthHandler(guard, nil)
			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
				Email:    "admin@example.com",
				Password: "password123",
			})

			w := httptest.NewRecorder()
			handler.Login(w, req)

			handlers.AssertErrorResponse(t, w, 401, "unauthorized")

			var resp pkghttp.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			assert.Equal(t, "Authentication failed", resp.Message)

			cookie := sessionCookie(t, w)
			require.NotNil(t, cookie, "failed login should clear the session cookie")
			assert.Empty(t, cookie.Value)
		})
	}
}

func TestLogin_ValidationErrors(t *testing.T) {
	handler := newAuthHandler(nil, nil)

	tests := []struct {
		name string
		body handlers.LoginRequest
	}{
		{"missing email", handlers.LoginRequest{Password: "password123"}},
		{"missing password", handlers.LoginRequest{Email: "admin@example.com"}},
		{"malformed email", handlers.LoginRequest{Email: "not-an-email", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := handlers.NewTestRequest(t, "POST", "/auth/login", tt.body)
			w := httptest.NewRecorder()
			handler.Login(w, req)
			handlers.AssertErrorResponse(t, w, 400, "bad_request")
		})
	}
}

func TestLogout_AlwaysNoContent(t *testing.T) {
	var loggedOut string
	guard := &handlers.MockAuthGuard{
		LogoutFunc: func(ctx context.Context, sessionID string) {
			loggedOut = sessionID
		},
	}

	handler := newAuthHandler(guard, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "session-1"})

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, 204, w.Code)
	assert.Equal(t, "session-1", loggedOut)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)

	// No cookie at all still gets a 204.
	w = httptest.NewRecorder()
	handler.Logout(w, handlers.NewTestRequest(t, "POST", "/auth/logout", nil))
	assert.Equal(t, 204, w.Code)
}

func TestSession_ReturnsCurrentAdmin(t *testing.T) {
	guard := &handlers.MockAuthGuard{
		SessionFunc: func(sessionID string) (*models.Session, bool) {
			if sessionID != "session-1" {
				return nil, false
			}
			return handlers.TestSession("admin-1"), true
		},
	}

	handler := newAuthHandler(guard, nil)
	req := handlers.WithSessionContext(handlers.NewTestRequest(t, "GET", "/admin/session", nil), "session-1")

	w := httptest.NewRecorder()
	handler.Session(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "admin-1", resp.AdminID)
	assert.Equal(t, "admin@example.com", resp.Email)
}

func TestSession_GoneSession(t *testing.T) {
	handler := newAuthHandler(&handlers.MockAuthGuard{}, nil)
	req := handlers.WithSessionContext(handlers.NewTestRequest(t, "GET", "/admin/session", nil), "stale-session")

	w := httptest.NewRecorder()
	handler.Session(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestCSRFToken_ReturnsSessionToken(t *testing.T) {
	guard := &handlers.MockAuthGuard{
		IssueCSRFTokenFunc: func(sessionID string) (string, error) {
			return "csrf-token-abc", nil
		},
	}

	handler := newAuthHandler(guard, nil)
	req := handlers.WithSessionContext(handlers.NewTestRequest(t, "GET", "/admin/csrf", nil), "session-1")

	w := httptest.NewRecorder()
	handler.CSRFToken(w, req)

	var resp map[string]string
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "csrf-token-abc", resp["csrf_token"])
}

func TestChangePassword(t *testing.T) {
	body := handlers.ChangePasswordRequest{
		CurrentPassword: "old-password",
		NewPassword:     "NewPassword123",
	}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"success", nil, 204, ""},
		{"no session", models.ErrUnauthorized, 401, "unauthorized"},
		{"wrong current password", models.ErrInvalidCredentials, 403, "forbidden"},
		{"storage failure", models.ErrInternalServer, 500, "internal_error"},
		{"weak new password", errors.New("password must be at least 8 characters long"), 400, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := &handlers.MockAuthGuard{
				ChangePasswordFunc: func(ctx context.Context, sessionID, currentPassword, newPassword string) error {
					return tt.err
				},
			}

			handler := newAuthHandler(guard, nil)
			req := handlers.WithSessionContext(handlers.NewTestRequest(t, "POST", "/admin/password", body), "session-1")

			w := httptest.NewRecorder()
			handler.ChangePassword(w, req)

			if tt.expectedError == "" {
				assert.Equal(t, tt.expectedStatus, w.Code)
			} else {
				handlers.AssertErrorResponse(t, w, tt.expectedStatus, tt.expectedError)
			}
		})
	}
}

func TestRequestReset_AlwaysAccepted(t *testing.T) {
	var requested string
	resets := &handlers.MockPasswordResetter{
		RequestResetFunc: func(ctx context.Context, email string) error {
			requested = email
			return nil
		},
	}

	handler := newAuthHandler(nil, resets)
	req := handlers.NewTestRequest(t, "POST", "/auth/password-reset", handlers.RequestResetRequest{
		Email: "admin@example.com",
	})

	w := httptest.NewRecorder()
	handler.RequestReset(w, req)

	var resp map[string]string
	handlers.AssertJSONResponse(t, w, 202, &resp)
	assert.Equal(t, "admin@example.com", requested)
	assert.Contains(t, resp["message"], "If that email is registered")
}

func TestCompleteReset(t *testing.T) {
	body := handlers.CompleteResetRequest{
		Token:       "reset-token",
		NewPassword: "NewPassword123",
	}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"success", nil, 204, ""},
		{"bad token", models.ErrUnauthorized, 401, "unauthorized"},
		{"weak password", errors.New("password must contain at least one digit"), 400, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resets := &handlers.MockPasswordResetter{
				CompleteResetFunc: func(ctx context.Context, token, newPassword string) error {
					return tt.err
				},
			}

			handler := newAuthHandler(nil, resets)
			req := handlers.NewTestRequest(t, "POST", "/auth/password-reset/complete", body)

			w := httptest.NewRecorder()
			handler.CompleteReset(w, req)

			if tt.expectedError == "" {
				assert.Equal(t, tt.expectedStatus, w.Code)
			} else {
				handlers.AssertErrorResponse(t, w, tt.expectedStatus, tt.expectedError)
			}
		})
	}
}
