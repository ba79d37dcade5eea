package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
	pkgauth "github.com/tbeaumont/folio/pkg/auth"
	pkglogger "github.com/tbeaumont/folio/pkg/logger"
)

// ResetAttemptCleaner clears an email's failed-attempt history after a
// completed reset, so a legitimate owner is not still locked out of the
// account they just recovered.
type ResetAttemptCleaner interface {
	ClearFailures(ctx context.Context, email string) error
}

// PasswordResetService drives the forgot-password flow: mail a signed
// reset link, then accept the token back in exchange for a new password.
type PasswordResetService struct {
	admins       AdminRepository
	attempts     ResetAttemptCleaner
	activity     ActivityRecorder
	tokens       *auth.ResetTokenManager
	mailer       Mailer
	clock        auth.Clock
	resetURLBase string
	logger       *slog.Logger
	audit        *pkglogger.AuditLogger
}

func NewPasswordResetService(
	admins AdminRepository,
	attempts ResetAttemptCleaner,
	activity ActivityRecorder,
	tokens *auth.ResetTokenManager,
	mailer Mailer,
	clock auth.Clock,
	resetURLBase string,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *PasswordResetService {
	if clock == nil {
		clock = auth.SystemClock()
	}
	return &PasswordResetService{
		admins:       admins,
		attempts:     attempts,
		activity:     activity,
		tokens:       tokens,
		mailer:       mailer,
		clock:        clock,
		resetURLBase: resetURLBase,
		logger:       logger,
		audit:        audit,
	}
}

// RequestReset mails a reset link if the email belongs to an active
// account. It returns nil either way; the response never reveals whether
// the account exists.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up admin for reset", slog.Any("error", err))
		}
		return nil
	}
	if !admin.Active {
		return nil
	}

	token, err := s.tokens.Generate(admin.ID, admin.PasswordHash, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return nil
	}

	link := s.resetURLBase + "?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, admin.Email, link); err != nil {
		s.logger.Error("failed to send reset email",
			slog.String("email", pkglogger.SanitizedEmail(admin.Email)),
			slog.Any("error", err))
		return nil
	}

	s.logger.Info("password reset requested", slog.String("admin_id", admin.ID))
	return nil
}

// CompleteReset exchanges a valid reset token for a new password. The
// token must have been issued against the admin's current password hash;
// any earlier token is rejected once a reset or password change lands.
func (s *PasswordResetService) CompleteReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Info("reset token rejected", slog.Any("error", err))
		return models.ErrUnauthorized
	}

	admin, err := s.admins.GetByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to load admin for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !admin.Active {
		return models.ErrUnauthorized
	}

	current := auth.PasswordFingerprint(admin.PasswordHash)
	if subtle.ConstantTimeCompare([]byte(current), []byte(claims.Fingerprint)) != 1 {
		s.logger.Info("reset token fingerprint mismatch", slog.String("admin_id", admin.ID))
		return models.ErrUnauthorized
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

	if err := s.attempts.ClearFailures(ctx, admin.Email); err != nil {
		s.logger.Warn("failed to clear login attempts after reset", slog.Any("error", err))
	}

	s.logger.Info("password reset completed", slog.String("admin_id", admin.ID))
	s.audit.LogAccountAction(models.ActivityPasswordReset, admin.ID, "", nil)

	activity := &models.Activity{
		AdminID:      &admin.ID,
		ActivityType: models.ActivityPasswordReset,
		Description:  admin.Name + " reset their password",
		CreatedAt:    s.clock.Now(),
	}
	if err := s.activity.Record(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity", slog.Any("error", err))
	}

	return nil
}
