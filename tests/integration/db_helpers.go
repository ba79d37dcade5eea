package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/models"
	"github.com/tbeaumont/folio/internal/repositories"
	"github.com/tbeaumont/folio/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and database handles
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase starts a PostgreSQL container, runs migrations, and
// returns a TestDB ready for seeding.
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("folio"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations against the container
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql handle, so bridge through the stdlib adapter
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"login_attempts",
		"activity_log",
		"projects",
		"posts",
		"messages",
		"settings",
		"admins",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from the wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.AdminRepository,
	*repositories.LoginAttemptRepository,
	*repositories.ActivityRepository,
	*repositories.ProjectRepository,
	*repositories.PostRepository,
	*repositories.MessageRepository,
	*repositories.SettingRepository,
) {
	return repositories.NewAdminRepository(db),
		repositories.NewLoginAttemptRepository(db),
		repositories.NewActivityRepository(db),
		repositories.NewProjectRepository(db),
		repositories.NewPostRepository(db),
		repositories.NewMessageRepository(db),
		repositories.NewSettingRepository(db)
}

// SeedAdmin inserts an admin account with a hashed password
func SeedAdmin(ctx context.Context, pool *pgxpool.Pool, name, email, password string, active bool) (*models.Admin, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO admins (id, name, email, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, email, password_hash, active, last_login_at, login_count, created_at, updated_at
	`

	var admin models.Admin
	err = pool.QueryRow(ctx, query, uuid.NewString(), name, email, hashedPassword, active).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Active,
		&admin.LastLoginAt,
		&admin.LoginCount,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert admin: %w", err)
	}

	return &admin, nil
}

// SeedFailedAttempts inserts n failed login attempts for an email, all
// timestamped inside the lockout window.
func SeedFailedAttempts(ctx context.Context, pool *pgxpool.Pool, email string, n int) error {
	query := `
		INSERT INTO login_attempts (id, email, ip_address, success, attempted_at, expires_at)
		VALUES ($1, $2, '127.0.0.1', false, NOW(), NOW() + INTERVAL '15 minutes')
	`
	for i := 0; i < n; i++ {
		if _, err := pool.Exec(ctx, query, uuid.NewString(), email); err != nil {
			return fmt.Errorf("failed to insert login attempt: %w", err)
		}
	}
	return nil
}

// SeedProject inserts a project row
func SeedProject(ctx context.Context, pool *pgxpool.Pool, title, slug string, featured bool) (string, error) {
	query := `
		INSERT INTO projects (id, title, slug, description, tech, featured, created_at, updated_at)
		VALUES ($1, $2, $3, 'seeded project', '{"Go"}', $4, NOW(), NOW())
		RETURNING id
	`

	var id string
	if err := pool.QueryRow(ctx, query, uuid.NewString(), title, slug, featured).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert project: %w", err)
	}
	return id, nil
}

// SeedPost inserts a post row, published or draft
func SeedPost(ctx context.Context, pool *pgxpool.Pool, title, slug string, published bool) (string, error) {
	query := `
		INSERT INTO posts (id, title, slug, excerpt, body, published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'seeded excerpt', 'seeded body', $4, CASE WHEN $4 THEN NOW() ELSE NULL END, NOW(), NOW())
		RETURNING id
	`

	var id string
	if err := pool.QueryRow(ctx, query, uuid.NewString(), title, slug, published).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert post: %w", err)
	}
	return id, nil
}

// SeedMessage inserts a contact message row
func SeedMessage(ctx context.Context, pool *pgxpool.Pool, name, email, body string, read bool) (string, error) {
	query := `
		INSERT INTO messages (id, name, email, subject, body, read, created_at)
		VALUES ($1, $2, $3, 'seeded subject', $4, $5, NOW())
		RETURNING id
	`

	var id string
	if err := pool.QueryRow(ctx, query, uuid.NewString(), name, email, body, read).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}
	return id, nil
}
