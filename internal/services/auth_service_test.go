package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbeaumont/folio/internal/auth"
	"github.com/tbeaumont/folio/internal/models"
)

type authFixture struct {
	service  *AuthService
	admins   *MockAdminRepository
	attempts *MockAttemptRepository
	activity *MockActivityRepository
	sessions *auth.MemorySessionStore
	clock    *fakeClock
}

func newAuthFixture(t *testing.T, admin *models.Admin) *authFixture {
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
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	sessions := auth.NewMemorySessionStore()

	service := NewAuthService(admins, attempts, activity, sessions, clock,
		testGuardConfig(), testLogger(), testAuditLogger())

	return &authFixture{
		service:  service,
		admins:   admins,
		attempts: attempts,
		activity: activity,
		sessions: sessions,
		clock:    clock,
	}
}

func (f *authFixture) login(t *testing.T, email, password string, remember bool) (string, error) {
	t.Helper()
	return f.service.Login(context.Background(), "", email, password, remember, "203.0.113.5", "test-agent")
}

func TestLogin_Success(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	finalized := false
	f.admins.FinalizeLoginFunc = func(ctx context.Context, adminID, email string, at time.Time) error {
		assert.Equal(t, admin.ID, adminID)
		assert.Equal(t, admin.Email, email)
		finalized = true
		return nil
	}

	sessionID, err := f.login(t, "owner@example.com", testPassword, false)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	assert.True(t, finalized)

	session, ok := f.sessions.Get(sessionID)
	require.True(t, ok)
	assert.True(t, session.Authenticated)
	assert.Equal(t, admin.ID, session.AdminID)
	assert.NotEmpty(t, session.CSRFToken)
	assert.False(t, session.RememberMe)

	assert.Equal(t, models.ActivityAdminLogin, f.activity.LastActivityType())
}

func TestLogin_NormalizesEmail(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	sessionID, err := f.login(t, "  Owner@Example.COM ", testPassword, false)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
}

func TestLogin_WrongPassword(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	sessionID, err := f.login(t, "owner@example.com", "not-the-password", false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, sessionID)

	require.Len(t, f.attempts.Attempts, 1)
	assert.Equal(t, "owner@example.com", f.attempts.Attempts[0].Email)
	assert.False(t, f.attempts.Attempts[0].Success)
	assert.Equal(t, models.ActivityFailedLogin, f.activity.LastActivityType())
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t, nil)

	sessionID, err := f.login(t, "nobody@example.com", "whatever", false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, sessionID)

	// Unknown email still burns an attempt, same as a wrong password
	require.Len(t, f.attempts.Attempts, 1)
}

func TestLogin_InactiveAccount(t *testing.T) {
	admin := NewTestAdminInactive("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	_, err := f.login(t, "owner@example.com", testPassword, false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	require.Len(t, f.attempts.Attempts, 1)
}

func TestLogin_LockoutAfterMaxFailures(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	for i := 0; i < 5; i++ {
		_, err := f.login(t, "owner@example.com", "wrong", false)
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	require.Len(t, f.attempts.Attempts, 5)

	// Sixth attempt is rejected before credentials are checked, even with
	// the correct password, and records no additional attempt row.
	lookups := 0
	f.admins.GetByEmailFunc = func(ctx context.Context, email string) (*models.Admin, error) {
		lookups++
		return admin, nil
	}

	_, err := f.login(t, "owner@example.com", testPassword, false)
	assert.ErrorIs(t, err, models.ErrLockedOut)
	assert.Zero(t, lookups)
	assert.Len(t, f.attempts.Attempts, 5)
	assert.Equal(t, models.ActivityLoginLockout, f.activity.LastActivityType())
}

func TestLogin_LockoutExpiresWithWindow(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	for i := 0; i < 5; i++ {
		_, err := f.login(t, "owner@example.com", "wrong", false)
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	_, err := f.login(t, "owner@example.com", testPassword, false)
	assert.ErrorIs(t, err, models.ErrLockedOut)

	// Once the oldest failures age out of the window, login works again.
	f.clock.Advance(16 * time.Minute)

	sessionID, err := f.login(t, "owner@example.com", testPassword, false)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
}

func TestLogin_FailClosedOnAttemptCountError(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	f.attempts.CountRecentFailuresFunc = func(ctx context.Context, email string, since time.Time) (int, error) {
		return 0, errors.New("connection refused")
	}

	_, err := f.login(t, "owner@example.com", testPassword, false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_FailClosedOnAdminLookupError(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.admins.GetByEmailFunc = func(ctx context.Context, email string) (*models.Admin, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.login(t, "owner@example.com", testPassword, false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// Infrastructure failure is not a credential failure; no attempt burned.
	assert.Empty(t, f.attempts.Attempts)
}

func TestLogin_DeniedWhenFinalizeFails(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	f.admins.FinalizeLoginFunc = func(ctx context.Context, adminID, email string, at time.Time) error {
		return errors.New("tx aborted")
	}

	sessionID, err := f.login(t, "owner@example.com", testPassword, false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, sessionID)
	assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))
}

func TestLogin_RotatesSessionID(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	// Simulate a pre-login anonymous session
	oldID, err := auth.NewSessionID()
	require.NoError(t, err)
	f.sessions.Put(oldID, &models.Session{LastActivity: f.clock.Now()})

	newID, err := f.service.Login(context.Background(), oldID, "owner@example.com", testPassword, false, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)

	_, ok := f.sessions.Get(oldID)
	assert.False(t, ok, "pre-login session should be destroyed")
}

func TestLogin_EmptyCredentials(t *testing.T) {
	f := newAuthFixture(t, nil)

	_, err := f.login(t, "", "", false)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, f.attempts.Attempts)
}

func TestIsAuthenticated(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")

	t.Run("empty session id", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		assert.False(t, f.service.IsAuthenticated(context.Background(), ""))
	})

	t.Run("missing session", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		assert.False(t, f.service.IsAuthenticated(context.Background(), "no-such-session"))
	})

	t.Run("live session slides the window", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		// Each check resets the inactivity window, so total elapsed time
		// can exceed the timeout without expiring.
		f.clock.Advance(30 * time.Minute)
		assert.True(t, f.service.IsAuthenticated(context.Background(), sessionID))
		f.clock.Advance(45 * time.Minute)
		assert.True(t, f.service.IsAuthenticated(context.Background(), sessionID))
	})

	t.Run("timeout destroys the session", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		f.clock.Advance(61 * time.Minute)
		assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))

		_, ok := f.sessions.Get(sessionID)
		assert.False(t, ok)

		// The destroyed session stays gone on subsequent checks
		assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))
	})

	t.Run("remember me extends the window", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, true)
		require.NoError(t, err)

		f.clock.Advance(48 * time.Hour)
		assert.True(t, f.service.IsAuthenticated(context.Background(), sessionID))

		f.clock.Advance(31 * 24 * time.Hour)
		assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))
	})

	t.Run("deactivated account is cut off", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		f.admins.GetByIDFunc = func(ctx context.Context, id string) (*models.Admin, error) {
			deactivated := *admin
			deactivated.Active = false
			return &deactivated, nil
		}

		assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))
		_, ok := f.sessions.Get(sessionID)
		assert.False(t, ok)
	})

	t.Run("account lookup error fails closed", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		f.admins.GetByIDFunc = func(ctx context.Context, id string) (*models.Admin, error) {
			return nil, errors.New("connection refused")
		}

		assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))
	})
}

func TestLogout(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	sessionID, err := f.login(t, "owner@example.com", testPassword, false)
	require.NoError(t, err)

	f.service.Logout(context.Background(), sessionID)
	assert.False(t, f.service.IsAuthenticated(context.Background(), sessionID))
	assert.Equal(t, models.ActivityAdminLogout, f.activity.LastActivityType())

	// Idempotent: repeated and bogus logouts are harmless no-ops
	recorded := len(f.activity.Recorded)
	f.service.Logout(context.Background(), sessionID)
	f.service.Logout(context.Background(), "no-such-session")
	f.service.Logout(context.Background(), "")
	assert.Len(t, f.activity.Recorded, recorded)
}

func TestCSRFToken(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")
	f := newAuthFixture(t, admin)

	sessionID, err := f.login(t, "owner@example.com", testPassword, false)
	require.NoError(t, err)

	token, err := f.service.IssueCSRFToken(sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Stable within the session
	again, err := f.service.IssueCSRFToken(sessionID)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.True(t, f.service.ValidateCSRFToken(sessionID, token))
	assert.False(t, f.service.ValidateCSRFToken(sessionID, "forged"))
	assert.False(t, f.service.ValidateCSRFToken(sessionID, ""))
	assert.False(t, f.service.ValidateCSRFToken("no-such-session", token))

	// A fresh login mints a fresh token; the old one stops validating
	f.service.Logout(context.Background(), sessionID)
	newSessionID, err := f.login(t, "owner@example.com", testPassword, false)
	require.NoError(t, err)

	newToken, err := f.service.IssueCSRFToken(newSessionID)
	require.NoError(t, err)
	assert.NotEqual(t, token, newToken)
	assert.False(t, f.service.ValidateCSRFToken(newSessionID, token))

	_, err = f.service.IssueCSRFToken(sessionID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	admin := NewTestAdmin("admin_1", "owner@example.com", "Tess Beaumont")

	t.Run("requires a session", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		err := f.service.ChangePassword(context.Background(), "no-such-session", testPassword, "NewSecret123")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("rejects wrong current password", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		err = f.service.ChangePassword(context.Background(), sessionID, "wrong", "NewSecret123")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("rejects weak new password", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		err = f.service.ChangePassword(context.Background(), sessionID, testPassword, "short")
		assert.Error(t, err)
	})

	t.Run("stores the new hash", func(t *testing.T) {
		f := newAuthFixture(t, admin)
		sessionID, err := f.login(t, "owner@example.com", testPassword, false)
		require.NoError(t, err)

		var storedHash string
		f.admins.UpdatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
			assert.Equal(t, admin.ID, id)
			storedHash = passwordHash
			return nil
		}

		err = f.service.ChangePassword(context.Background(), sessionID, testPassword, "NewSecret123")
		require.NoError(t, err)
		assert.NotEmpty(t, storedHash)
		assert.NotEqual(t, admin.PasswordHash, storedHash)
		assert.Equal(t, models.ActivityPasswordChanged, f.activity.LastActivityType())
	})
}
