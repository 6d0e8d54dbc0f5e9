/*
Package chat contains the core logic of the gateway: authenticated session
establishment, the live presence registry, ordered message broadcast, and the
per-connection lifecycle.

This file defines the wire envelope and the payloads exchanged with clients.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of event carried in a wire envelope.
type MessageType string

// Inbound event types accepted from clients.
const (
	TypeSendMessage MessageType = "SEND_MESSAGE"
	TypeTyping      MessageType = "TYPING"
	TypeStopTyping  MessageType = "STOP_TYPING"
)

// Outbound event types emitted to clients.
const (
	TypeMessage        MessageType = "MESSAGE"
	TypePresenceUpdate MessageType = "PRESENCE_UPDATE"
	TypeUserTyping     MessageType = "USER_TYPING"
	TypeUserStopTyping MessageType = "USER_STOP_TYPING"
	TypeAuthError      MessageType = "AUTH_ERROR"
	TypeError          MessageType = "ERROR"
)

// Event is the envelope for every frame crossing a connection, in either direction.
type Event struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// Encode marshals the event once for delivery to any number of recipients.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// SendMessagePayload is the inbound payload of a TypeSendMessage event.
type SendMessagePayload struct {
	Content string `json:"content"`
}

// MessagePayload is the outbound payload of a TypeMessage event: one committed
// chat message, enriched with sender identity.
type MessagePayload struct {
	ID                int64     `json:"id"`
	Text              string    `json:"text"`
	SenderDisplayName string    `json:"senderDisplayName"`
	SenderID          uuid.UUID `json:"senderId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PresencePayload is the outbound payload of a TypePresenceUpdate event,
// carrying the full current snapshot of online display names.
type PresencePayload struct {
	OnlineUsers []string `json:"onlineUsers"`
}

// TypingPayload is the outbound payload of TypeUserTyping and TypeUserStopTyping events.
type TypingPayload struct {
	DisplayName string `json:"displayName"`
}

// ErrorPayload is the outbound payload of TypeError and TypeAuthError events.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
