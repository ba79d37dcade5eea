package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
	pkghttp "github.com/tbeaumont/folio/pkg/http"
)

// AuthGuard defines the session-lifecycle operations the handler needs
type AuthGuard interface {
	Login(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error)
	Logout(ctx context.Context, sessionID string)
	Session(sessionID string) (*models.Session, bool)
	IssueCSRFToken(sessionID string) (string, error)
	ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error
}

// PasswordResetter defines the forgot-password operations the handler needs
type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	CompleteReset(ctx context.Context, token, newPassword string) error
}

// AuthHandler handles login, logout, session introspection, and the
// password lifecycle endpoints
type AuthHandler struct {
	guard        AuthGuard
	resets       PasswordResetter
	cookieConfig auth.CookieConfig
	rememberAge  time.Duration
	ipConfig     *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(guard AuthGuard, resets PasswordResetter, cookieConfig auth.CookieConfig, rememberAge time.Duration, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		guard:        guard,
		resets:       resets,
		cookieConfig: cookieConfig,
		rememberAge:  rememberAge,
		ipConfig:     ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// RequestResetRequest represents the request body for a reset-link request
type RequestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CompleteResetRequest represents the request body for completing a reset
type CompleteResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// SessionResponse is the authenticated admin's view of their own session
type SessionResponse struct {
	AdminID    string `json:"admin_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	RememberMe bool   `json:"remember_me"`
	CSRFToken  string `json:"csrf_token"`
}

// Login handles admin login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	sessionID, err := h.guard.Login(r.Context(), auth.GetSessionCookie(r),
		req.Email, req.Password, req.RememberMe, ipAddress, userAgent)
	if err != nil {
		// Lockout and bad credentials are deliberately indistinguishable
		// here; the distinction lives in the audit trail only.
		auth.ClearSessionCookie(w, h.cookieConfig)
		pkghttp.WriteUnauthorized(w, "Authentication failed")
		return
	}

	maxAge := 0 // browser-session cookie
	if req.RememberMe {
		maxAge = int(h.rememberAge.Seconds())
	}
	auth.SetSessionCookie(w, sessionID, maxAge, h.cookieConfig)

	session, ok := h.guard.Session(sessionID)
	if !ok {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		AdminID:    session.AdminID,
		Name:       session.Name,
		Email:      session.Email,
		RememberMe: session.RememberMe,
		CSRFToken:  session.CSRFToken,
	})
}

// Logout destroys the session. Responds 204 whether or not a session existed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.guard.Logout(r.Context(), auth.GetSessionCookie(r))
	auth.ClearSessionCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the current admin's session details
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionIDFromContext(r.Context())
	session, ok := h.guard.Session(sessionID)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		AdminID:    session.AdminID,
		Name:       session.Name,
		Email:      session.Email,
		RememberMe: session.RememberMe,
		CSRFToken:  session.CSRFToken,
	})
}

// CSRFToken returns the session's CSRF token for form-rendering clients
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionIDFromContext(r.Context())
	token, err := h.guard.IssueCSRFToken(sessionID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// ChangePassword changes the authenticated admin's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	sessionID := auth.SessionIDFromContext(r.Context())
	err := h.guard.ChangePassword(r.Context(), sessionID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication required")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteForbidden(w, "Current password is incorrect")
		case errors.Is(err, models.ErrInternalServer):
			pkghttp.WriteInternalError(w, "Internal server error")
		default:
			// Password-policy violations carry their own message
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequestReset mails a password-reset link. Always responds 202 so the
// endpoint cannot be used to probe for registered emails.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If that email is registered, a reset link is on its way.",
	})
}

// CompleteReset exchanges a mailed token for a new password
func (h *AuthHandler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	var req CompleteResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.resets.CompleteReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Reset link is invalid or expired")
		case errors.Is(err, models.ErrInternalServer):
			pkghttp.WriteInternalError(w, "Internal server error")
		default:
			pkghttp.WriteBadRequest(w, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
