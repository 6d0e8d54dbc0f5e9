package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/user"
)

// MessageStore is the PostgreSQL-backed durable message log. Ids come from a
// sequence and timestamps from the database clock, so created_at is
// monotonically non-decreasing across the log.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore returns a MessageStore using the given connection pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Insert appends one message to the log.
func (s *MessageStore) Insert(ctx context.Context, sender user.User, content string) (chat.StoredMessage, error) {
	const query = `
		INSERT INTO messages (sender_id, content)
		VALUES ($1, $2)
		RETURNING id, created_at`

	stored := chat.StoredMessage{
		SenderID:   sender.ID,
		SenderName: sender.Username,
		Content:    content,
	}

	err := s.pool.QueryRow(ctx, query, sender.ID, content).
		Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return chat.StoredMessage{}, fmt.Errorf("insert message: %w", err)
	}

	return stored, nil
}

// ListRecent returns up to limit of the newest messages, oldest first, with
// sender display names resolved.
func (s *MessageStore) ListRecent(ctx context.Context, limit int) ([]chat.StoredMessage, error) {
	const query = `
		SELECT m.id, m.sender_id, u.username, m.content, m.created_at
		FROM (
			SELECT id, sender_id, content, created_at
			FROM messages
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		) m
		JOIN users u ON u.id = m.sender_id
		ORDER BY m.created_at ASC, m.id ASC`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.StoredMessage, error) {
		var m chat.StoredMessage
		err := row.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent messages: %w", err)
	}

	return messages, nil
}
