package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/models"
)

type SettingRepository struct {
	pool *pgxpool.Pool
}

func NewSettingRepository(db *database.DB) *SettingRepository {
	return &SettingRepository{pool: db.Pool}
}

func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	query := `SELECT key, value, updated_at FROM settings WHERE key = $1`

	var setting models.Setting
	err := r.pool.QueryRow(ctx, query, key).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &setting, nil
}

// GetAll returns every setting as a key/value map.
func (r *SettingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setting rows: %w", err)
	}

	return settings, nil
}

// Upsert creates or replaces a setting value.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, key, value, time.Now())
	return database.MapPostgresError(err)
}
