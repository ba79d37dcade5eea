package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/models"
)

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: db.Pool}
}

// Record inserts a login attempt row
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, success, attempted_at, expires_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.AttemptedAt,
		attempt.ExpiresAt,
	)

	return database.MapPostgresError(err)
}

// CountRecentFailures returns the number of failed attempts for an email
// since the given time. This is the sliding-window lockout counter.
func (r *LoginAttemptRepository) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE lower(email) = lower($1) AND success = false AND attempted_at > $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, email, since).Scan(&count)
	return count, err
}

// ClearFailures deletes all failed attempts for an email, resetting the
// lockout window. Normally this happens inside AdminRepository.FinalizeLogin;
// this standalone form serves the password-reset completion path.
func (r *LoginAttemptRepository) ClearFailures(ctx context.Context, email string) error {
	query := `DELETE FROM login_attempts WHERE lower(email) = lower($1) AND success = false`
	_, err := r.pool.Exec(ctx, query, email)
	return database.MapPostgresError(err)
}

// DeleteExpired removes attempts past their retention time
func (r *LoginAttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM login_attempts WHERE expires_at <= CURRENT_TIMESTAMP`
	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
