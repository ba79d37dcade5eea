package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
	pkgauth "github.com/tbeaumont/folio/pkg/auth"
	pkglogger "github.com/tbeaumont/folio/pkg/logger"
)

// AdminRepository defines the credential-store operations the guard needs
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	FinalizeLogin(ctx context.Context, adminID, email string, at time.Time) error
}

// AttemptRepository defines the attempt-log operations the guard needs
type AttemptRepository interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
}

// ActivityRecorder appends rows to the persistent activity feed. Failures
// are logged and swallowed; audit writes never block an auth decision.
type ActivityRecorder interface {
	Record(ctx context.Context, activity *models.Activity) error
}

// AuthGuardConfig holds the lockout and session-timeout policy
type AuthGuardConfig struct {
	SessionTimeout     time.Duration
	MaxLoginAttempts   int
	LockoutWindow      time.Duration
	RememberMeDuration time.Duration
}

// AuthService owns the authenticated-session lifecycle: credential
// verification, brute-force lockout bookkeeping, session timeout, and CSRF
// token issuance. Every collaborator failure inside an auth decision is
// treated as a denial; the service fails closed.
type AuthService struct {
	admins   AdminRepository
	attempts AttemptRepository
	activity ActivityRecorder
	sessions auth.SessionStore
	clock    auth.Clock
	config   AuthGuardConfig
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	admins AdminRepository,
	attempts AttemptRepository,
	activity ActivityRecorder,
	sessions auth.SessionStore,
	clock auth.Clock,
	config AuthGuardConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *AuthService {
	if clock == nil {
		clock = auth.SystemClock()
	}
	return &AuthService{
		admins:   admins,
		attempts: attempts,
		activity: activity,
		sessions: sessions,
		clock:    clock,
		config:   config,
		logger:   logger,
		audit:    audit,
	}
}

// IsAuthenticated reports whether the session is live. A valid call slides
// the inactivity window forward; a timed-out session or one referencing a
// missing or deactivated account is destroyed on the spot, so the check is
// always against live account state rather than cached session fields.
func (s *AuthService) IsAuthenticated(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}

	session, ok := s.sessions.Get(sessionID)
	if !ok || !session.Authenticated {
		return false
	}

	now := s.clock.Now()
	if now.Sub(session.LastActivity) > s.idleWindow(session) {
		s.sessions.Delete(sessionID)
		s.logger.Info("session expired", slog.String("admin_id", session.AdminID))
		return false
	}

	admin, err := s.admins.GetByID(ctx, session.AdminID)
	if err != nil || !admin.Active {
		// Missing, deactivated, or unreachable account state: deny and
		// destroy the session so it cannot be resurrected.
		s.sessions.Delete(sessionID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to re-verify admin account", slog.Any("error", err))
		}
		return false
	}

	// Touch rather than Get-then-Put, so a concurrent logout cannot be
	// resurrected by this refresh.
	return s.sessions.Touch(sessionID, now)
}

// Login verifies credentials and establishes a fresh session. On success the
// returned session ID replaces the caller's current one (the old ID stops
// being honored before the new one exists, closing the fixation window).
// Returns models.ErrLockedOut when the email's failed-attempt count has hit
// the threshold, and models.ErrInvalidCredentials for every other denial.
func (s *AuthService) Login(ctx context.Context, sessionID, email, password string, remember bool, ipAddress, userAgent string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.logger.Info("login failed: empty credentials")
		return "", models.ErrInvalidCredentials
	}

	now := s.clock.Now()

	// Lockout check comes first. A locked-out email gets no credential
	// verification and no new attempt row.
	failures, err := s.attempts.CountRecentFailures(ctx, email, now.Add(-s.config.LockoutWindow))
	if err != nil {
		s.logger.Error("failed to count login attempts", slog.Any("error", err))
		return "", models.ErrInvalidCredentials
	}
	if failures >= s.config.MaxLoginAttempts {
		s.logger.Warn("login locked out",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Int("failed_attempts", failures))
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     models.ActivityLoginLockout,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: "too_many_attempts",
		})
		s.recordActivity(ctx, nil, models.ActivityLoginLockout,
			"Login rejected by lockout", ipAddress, userAgent, nil)
		return "", models.ErrLockedOut
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown email looks identical to a wrong password.
			s.failLogin(ctx, email, ipAddress, userAgent, "invalid_credentials", now)
			return "", models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up admin", slog.Any("error", err))
		return "", models.ErrInvalidCredentials
	}

	if !admin.Active {
		s.failLogin(ctx, email, ipAddress, userAgent, "account_inactive", now)
		return "", models.ErrInvalidCredentials
	}

	if err := pkgauth.ComparePassword(admin.PasswordHash, password); err != nil {
		s.failLogin(ctx, email, ipAddress, userAgent, "invalid_credentials", now)
		return "", models.ErrInvalidCredentials
	}

	newSessionID, err := auth.NewSessionID()
	if err != nil {
		s.logger.Error("failed to generate session id", slog.Any("error", err))
		return "", models.ErrInvalidCredentials
	}

	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		s.logger.Error("failed to generate csrf token", slog.Any("error", err))
		return "", models.ErrInvalidCredentials
	}

	// Rotate: retire the caller's pre-login session before the new one
	// exists, then persist the success-path bookkeeping atomically.
	if sessionID != "" {
		s.sessions.Delete(sessionID)
	}

	if err := s.admins.FinalizeLogin(ctx, admin.ID, email, now); err != nil {
		s.logger.Error("failed to finalize login", slog.String("admin_id", admin.ID), slog.Any("error", err))
		return "", models.ErrInvalidCredentials
	}

	s.sessions.Put(newSessionID, &models.Session{
		AdminID:       admin.ID,
		Name:          admin.Name,
		Email:         admin.Email,
		Authenticated: true,
		RememberMe:    remember,
		LastActivity:  now,
		CSRFToken:     csrfToken,
		CreatedAt:     now,
	})

	s.logger.Info("admin logged in", slog.String("admin_id", admin.ID))
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: models.ActivityAdminLogin,
		AdminID:   admin.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})
	s.recordActivity(ctx, &admin.ID, models.ActivityAdminLogin,
		admin.Name+" logged in", ipAddress, userAgent, nil)

	return newSessionID, nil
}

// Logout destroys the session. Safe to call with a missing or already
// destroyed session; it never fails.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	session, ok := s.sessions.Get(sessionID)
	s.sessions.Delete(sessionID)
	if !ok || !session.Authenticated {
		return
	}

	s.logger.Info("admin logged out", slog.String("admin_id", session.AdminID))
	s.audit.LogAccountAction(models.ActivityAdminLogout, session.AdminID, "", nil)
	s.recordActivity(ctx, &session.AdminID, models.ActivityAdminLogout,
		session.Name+" logged out", "", "", nil)
}

// Session returns a copy of the current session state for handlers that
// need the admin's identity. It does not refresh the activity window.
func (s *AuthService) Session(sessionID string) (*models.Session, bool) {
	return s.sessions.Get(sessionID)
}

// IssueCSRFToken returns the session's CSRF token. Tokens are minted when
// the session is established, so repeated calls within one session always
// return the same value; a new session gets a new token.
func (s *AuthService) IssueCSRFToken(sessionID string) (string, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok || session.CSRFToken == "" {
		return "", models.ErrUnauthorized
	}
	return session.CSRFToken, nil
}

// ValidateCSRFToken reports whether candidate matches the session's token
// under constant-time comparison. A missing session or unissued token is
// simply false; this never errors.
func (s *AuthService) ValidateCSRFToken(sessionID, candidate string) bool {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false
	}
	return auth.CSRFTokenEqual(session.CSRFToken, candidate)
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok || !session.Authenticated {
		return models.ErrUnauthorized
	}

	admin, err := s.admins.GetByID(ctx, session.AdminID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to load admin for password change", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(admin.PasswordHash, currentPassword); err != nil {
		s.audit.LogAccountAction(models.ActivityPasswordChanged, admin.ID, "", map[string]string{"success": "false"})
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.admins.UpdatePassword(ctx, admin.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("admin_id", admin.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("admin_id", admin.ID))
	s.audit.LogAccountAction(models.ActivityPasswordChanged, admin.ID, "", nil)
	s.recordActivity(ctx, &admin.ID, models.ActivityPasswordChanged,
		admin.Name+" changed their password", "", "", nil)

	return nil
}

// idleWindow returns the session's effective inactivity timeout.
func (s *AuthService) idleWindow(session *models.Session) time.Duration {
	if session.RememberMe {
		return s.config.RememberMeDuration
	}
	return s.config.SessionTimeout
}

// failLogin records a failed attempt plus its audit trail. Attempt rows are
// retained for twice the lockout window; audit failures are swallowed.
func (s *AuthService) failLogin(ctx context.Context, email, ipAddress, userAgent, reason string, now time.Time) {
	attempt := &models.LoginAttempt{
		Email:       email,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Success:     false,
		AttemptedAt: now,
		ExpiresAt:   now.Add(2 * s.config.LockoutWindow),
	}
	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}

	s.logger.Info("login failed", slog.String("reason", reason))
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     models.ActivityFailedLogin,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Success:       false,
		FailureReason: reason,
	})
	s.recordActivity(ctx, nil, models.ActivityFailedLogin,
		"Failed login attempt", ipAddress, userAgent, nil)
}

// recordActivity appends to the persistent activity feed, best effort.
func (s *AuthService) recordActivity(ctx context.Context, adminID *string, activityType, description, ipAddress, userAgent string, metadata models.ActivityMetadata) {
	activity := &models.Activity{
		AdminID:      adminID,
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
		CreatedAt:    s.clock.Now(),
	}
	if ipAddress != "" {
		activity.IPAddress = &ipAddress
	}
	if userAgent != "" {
		activity.UserAgent = &userAgent
	}

	if err := s.activity.Record(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity", slog.String("activity_type", activityType), slog.Any("error", err))
	}
}
