package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
)

const testResetSecret = "unit-test-reset-secret-0123456789"

type resetFixture struct {
	service  *PasswordResetService
	admins   *MockAdminRepository
	attempts *MockAttemptRepository
	activity *MockActivityRepository
	mailer   *MockMailer
	tokens   *auth.ResetTokenManager
	clock    *fakeClock
}

func newResetFixture(t *testing.T, admin *models.Admin) *resetFixture {
	t.Helper()

	admins := &MockAdminRepository{}
	if admin != nil {
		admins.GetByEmailFunc = func(ctx context.Context, email string) (*models.Admin, error) {
			if email == admin.Email {
				return admin, nil
			}
			return nil, models.ErrNotFound
		}
		admins.GetByIDFunc = func(ctx context.Context, id string) (*models.Admin, error) {
			if id == admin.ID {
				return admin, nil
			}
			return nil, models.ErrNotFound
		}
	}

	attempts := &MockAttemptRepository{}
	activity := &MockActivityRepository{}
	mailer := &MockMailer{}
	tokens := auth.NewResetTokenManager(testResetSecret, time.Hour)
	clock := newFakeClock(time.Now())

	service := NewPasswordResetService(admins, attempts, activity, tokens, mailer, clock,
		"https://example.com/admin/reset", testLogger(), testAuditLogger())

	return &resetFixture{
		service:  service,
		admins:   admins,
		attempts: attempts,
		activity: activity,
		mailer:   mailer,
		tokens:   tokens,
		clock:    clock,
	}
}

// extractToken pulls the token query parameter out of a mailed reset link
func extractToken(t *testing.T, link string) string {
	t.Helper()
	_, token, found := strings.Cut(link, "?token=")
	require.True(t, found, "reset link missing token: %s", link)
	return token
}

func TestRequestReset_MailsLink(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	err := f.service.RequestReset(context.Background(), " Owner@Example.com ")
	require.NoError(t, err)
	require.Len(t, f.mailer.ResetLinks, 1)
	assert.True(t, strings.HasPrefix(f.mailer.ResetLinks[0], "https://example.com/admin/reset?token="))
}

func TestRequestReset_SilentForUnknownEmail(t *testing.T) {
	f := newResetFixture(t, nil)

	err := f.service.RequestReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, f.mailer.ResetLinks)
}

func TestRequestReset_SilentForInactiveAccount(t *testing.T) {
	admin := NewTestAdminInactive("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	err := f.service.RequestReset(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.Empty(t, f.mailer.ResetLinks)
}

func TestCompleteReset_Success(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	require.NoError(t, f.service.RequestReset(context.Background(), "owner@example.com"))
	token := extractToken(t, f.mailer.ResetLinks[0])

	var storedHash string
	f.admins.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
		assert.Equal(t, admin.ID, id)
		storedHash = passwordHash
		return nil
	}

	cleared := false
	f.attempts.ClearFailuresFunc = func(ctx context.Context, email string) error {
		assert.Equal(t, admin.Email, email)
		cleared = true
		return nil
	}

	err := f.service.CompleteReset(context.Background(), token, "FreshSecret123")
	require.NoError(t, err)
	assert.NotEmpty(t, storedHash)
	assert.True(t, cleared, "failed attempts should be cleared after a reset")
	assert.Equal(t, models.ActivityPasswordReset, f.activity.LastActivityType())
}

func TestCompleteReset_RejectsGarbageToken(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	err := f.service.CompleteReset(context.Background(), "not-a-token", "FreshSecret123")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCompleteReset_RejectsExpiredToken(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	// Token minted over an hour in the past
	token, err := f.tokens.Generate(admin.ID, admin.PasswordHash, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	err = f.service.CompleteReset(context.Background(), token, "FreshSecret123")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCompleteReset_TokenDiesOnPasswordChange(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	require.NoError(t, f.service.RequestReset(context.Background(), "owner@example.com"))
	token := extractToken(t, f.mailer.ResetLinks[0])

	// Password changed after the link was mailed
	admin.PasswordHash = admin.PasswordHash + "x"

	err := f.service.CompleteReset(context.Background(), token, "FreshSecret123")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCompleteReset_RejectsWeakPassword(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	require.NoError(t, f.service.RequestReset(context.Background(), "owner@example.com"))
	token := extractToken(t, f.mailer.ResetLinks[0])

	err := f.service.CompleteReset(context.Background(), token, "short")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrUnauthorized)
}

func TestCompleteReset_RejectsDeactivatedAccount(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newResetFixture(t, admin)

	require.NoError(t, f.service.RequestReset(context.Background(), "owner@example.com"))
	token := extractToken(t, f.mailer.ResetLinks[0])

	admin.Active = false

	err := f.service.CompleteReset(context.Background(), token, "FreshSecret123")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
