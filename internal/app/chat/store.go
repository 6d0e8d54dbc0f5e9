package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"relaychat/internal/app/user"
)

// StoredMessage is a chat message as recorded in the durable log. The id and
// timestamp are assigned at persistence time; rows are never mutated.
type StoredMessage struct {
	ID         int64
	SenderID   uuid.UUID
	SenderName string
	Content    string
	CreatedAt  time.Time
}

// MessageStore is the durable log the pipeline writes committed messages to
// and the history endpoint reads from.
type MessageStore interface {
	// Insert appends one message to the log, assigning its id and creation time.
	Insert(ctx context.Context, sender user.User, content string) (StoredMessage, error)

	// ListRecent returns up to limit of the newest messages, ordered oldest first.
	ListRecent(ctx context.Context, limit int) ([]StoredMessage, error)
}
