package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/silicity/silicity-server/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, groupID, authorID int64, body string) (*domain.Message, error)
	ListByGroup(ctx context.Context, groupID int64) ([]domain.EnrichedMessage, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

// Create assigns the timestamp server-side so broadcast order and persisted
// order agree within a channel.
func (r *messageRepository) Create(ctx context.Context, groupID, authorID int64, body string) (*domain.Message, error) {
	const q = `
		INSERT INTO group_messages (group_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, group_id, author_id, body, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.Message
	err := r.pool.QueryRow(ctx, q, groupID, authorID, body).Scan(
		&m.ID, &m.GroupID, &m.AuthorID, &m.Body, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) ListByGroup(ctx context.Context, groupID int64) ([]domain.EnrichedMessage, error) {
	const q = `
		SELECT m.id, m.group_id, m.author_id, m.body, m.created_at, u.name, u.avatar_url
		FROM group_messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.group_id = $1
		ORDER BY m.created_at ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.EnrichedMessage
	for rows.Next() {
		var m domain.EnrichedMessage
		if err := rows.Scan(
			&m.ID, &m.GroupID, &m.AuthorID, &m.Body, &m.CreatedAt,
			&m.AuthorName, &m.AuthorAvatar,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
