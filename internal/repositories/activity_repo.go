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

// ActivityRepository handles the append-only activity log
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *database.DB) *ActivityRepository {
	return &ActivityRepository{pool: db.Pool}
}

func scanActivityRow(scanner rowScanner) (*models.Activity, error) {
	var activity models.Activity

	err := scanner.Scan(
		&activity.ID, &activity.AdminID, &activity.ActivityType,
		&activity.Description, &activity.IPAddress, &activity.UserAgent,
		&activity.Metadata, &activity.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &activity, nil
}

func scanActivityRows(rows pgx.Rows) ([]*models.Activity, error) {
	defer rows.Close()

	activities := make([]*models.Activity, 0)

	for rows.Next() {
		activity, err := scanActivityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return activities, nil
}

// Record appends one activity row
func (r *ActivityRepository) Record(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO activity_log (id, admin_id, activity_type, description, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		activity.ID, activity.AdminID, activity.ActivityType,
		activity.Description, activity.IPAddress, activity.UserAgent,
		activity.Metadata, activity.CreatedAt,
	)

	return database.MapPostgresError(err)
}

// ListRecent returns the newest activity rows for the dashboard feed
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	query := `
		SELECT id, admin_id, activity_type, description, ip_address, user_agent, metadata, created_at
		FROM activity_log
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}

	return scanActivityRows(rows)
}

// DeleteOlderThan trims the activity log to its retention window
func (r *ActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM activity_log WHERE created_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
