package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/models"
)

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{pool: db.Pool}
}

const projectColumns = `id, title, slug, description, tech, project_url, repo_url, featured, sort_order, created_at, updated_at`

func scanProjectRow(scanner rowScanner) (*models.Project, error) {
	var project models.Project
	var tech pq.StringArray

	err := scanner.Scan(
		&project.ID, &project.Title, &project.Slug, &project.Description,
		&tech, &project.ProjectURL, &project.RepoURL,
		&project.Featured, &project.SortOrder,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	project.Tech = []string(tech)
	return &project, nil
}

func scanProjectRows(rows pgx.Rows) ([]*models.Project, error) {
	defer rows.Close()

	projects := make([]*models.Project, 0)

	for rows.Next() {
		project, err := scanProjectRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProjectRow(r.pool.QueryRow(ctx, query, id))
}

func (r *ProjectRepository) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE slug = $1`
	return scanProjectRow(r.pool.QueryRow(ctx, query, slug))
}

// List returns projects ordered for display. When featuredOnly is set, only
// featured projects are returned.
func (r *ProjectRepository) List(ctx context.Context, featuredOnly bool) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if featuredOnly {
		query += ` WHERE featured = true`
	}
	query += ` ORDER BY sort_order ASC, created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	return scanProjectRows(rows)
}

func (r *ProjectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	project.ID = uuid.New().String()

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		project.ID, project.Title, project.Slug, project.Description,
		pq.StringArray(project.Tech), project.ProjectURL, project.RepoURL,
		project.Featured, project.SortOrder,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) (*models.Project, error) {
	project.UpdatedAt = time.Now()

	query := `
		UPDATE projects
		SET title = $2, slug = $3, description = $4, tech = $5, project_url = $6,
		    repo_url = $7, featured = $8, sort_order = $9, updated_at = $10
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		project.ID, project.Title, project.Slug, project.Description,
		pq.StringArray(project.Tech), project.ProjectURL, project.RepoURL,
		project.Featured, project.SortOrder, project.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return project, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}
