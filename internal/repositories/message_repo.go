package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tbeaumont/folio/internal/database"
	"github.com/tbeaumont/folio/internal/models"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{pool: db.Pool}
}

const messageColumns = `id, name, email, subject, body, read, ip_address, created_at`

func scanMessageRow(scanner rowScanner) (*models.Message, error) {
	var message models.Message

	err := scanner.Scan(
		&message.ID, &message.Name, &message.Email, &message.Subject,
		&message.Body, &message.Read, &message.IPAddress, &message.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &message, nil
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) (*models.Message, error) {
	message.ID = uuid.New().String()
	message.CreatedAt = time.Now()

	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		message.ID, message.Name, message.Email, message.Subject,
		message.Body, message.IPAddress, message.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessageRow(r.pool.QueryRow(ctx, query, id))
}

func (r *MessageRepository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages`
	if unreadOnly {
		query += ` WHERE read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		message, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE messages SET read = true WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE read = false`).Scan(&count)
	return count, err
}
