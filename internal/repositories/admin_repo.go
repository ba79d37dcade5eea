package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/models"
)

type AdminRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db, pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAdminRow handles nullable fields and populates an Admin model from a database row
func scanAdminRow(scanner rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var lastLoginAt *time.Time

	err := scanner.Scan(
		&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash,
		&admin.Active, &lastLoginAt, &admin.LoginCount,
		&admin.CreatedAt, &admin.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	admin.LastLoginAt = lastLoginAt
	return &admin, nil
}

const adminColumns = `id, name, email, password_hash, active, last_login_at, login_count, created_at, updated_at`

func (r *AdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdminRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail looks up an admin case-insensitively; emails are stored
// lowercase but the comparison does not rely on it.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE lower(email) = lower($1)`
	return scanAdminRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	admin.ID = uuid.New().String()

	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	query := `
		INSERT INTO admins (id, name, email, password_hash, active, login_count, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, 0, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash,
		admin.Active, admin.CreatedAt, admin.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return admin, nil
}

func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE admins SET password_hash = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, passwordHash, time.Now())
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AdminRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE admins SET active = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, active, time.Now())
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// FinalizeLogin commits the success-path bookkeeping for a login as a single
// transaction: bump last-login metadata and clear the email's failed-attempt
// history. Either both land or neither does.
func (r *AdminRepository) FinalizeLogin(ctx context.Context, adminID, email string, at time.Time) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE admins SET last_login_at = $2, login_count = login_count + 1, updated_at = $2 WHERE id = $1`,
			adminID, at,
		)
		if err != nil {
			return fmt.Errorf("failed to record login: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM login_attempts WHERE lower(email) = lower($1) AND success = false`,
			email,
		)
		if err != nil {
			return fmt.Errorf("failed to clear login attempts: %w", err)
		}
		return nil
	})
}
