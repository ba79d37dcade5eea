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

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{pool: db.Pool}
}

const postColumns = `id, title, slug, excerpt, body, tags, published, published_at, created_at, updated_at`

func scanPostRow(scanner rowScanner) (*models.Post, error) {
	var post models.Post
	var tags pq.StringArray
	var publishedAt *time.Time

	err := scanner.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Body,
		&tags, &post.Published, &publishedAt,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	post.Tags = []string(tags)
	post.PublishedAt = publishedAt
	return &post, nil
}

func scanPostRows(rows pgx.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := make([]*models.Post, 0)

	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPostRow(r.pool.QueryRow(ctx, query, id))
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE slug = $1`
	return scanPostRow(r.pool.QueryRow(ctx, query, slug))
}

// List returns posts, newest first. When publishedOnly is set, drafts are
// excluded and ordering switches to publication time.
func (r *PostRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	order := ` ORDER BY created_at DESC`
	if publishedOnly {
		query += ` WHERE published = true`
		order = ` ORDER BY published_at DESC`
	}
	query += order + ` LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	return scanPostRows(rows)
}

func (r *PostRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	post.ID = uuid.New().String()

	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		post.ID, post.Title, post.Slug, post.Excerpt, post.Body,
		pq.StringArray(post.Tags), post.Published, post.PublishedAt,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post *models.Post) (*models.Post, error) {
	post.UpdatedAt = time.Now()

	query := `
		UPDATE posts
		SET title = $2, slug = $3, excerpt = $4, body = $5, tags = $6,
		    published = $7, published_at = $8, updated_at = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		post.ID, post.Title, post.Slug, post.Excerpt, post.Body,
		pq.StringArray(post.Tags), post.Published, post.PublishedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns total and published post counts for the dashboard.
func (r *PostRepository) Count(ctx context.Context) (total int, published int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE published) FROM posts`,
	).Scan(&total, &published)
	return total, published, err
}
