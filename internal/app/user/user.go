/*
Package user contains core data structures and logic related to user identity.

It defines the basic representation of a chat participant (the User struct) and the
contract the persistence layer must satisfy to act as the identity store.
*/
package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// User represents the identity of a chat participant as seen by the gateway
// and by connected clients. Fields use JSON tags for serialization in
// WebSocket messages.
type User struct {
	// ID is the stable unique identifier for the user.
	ID uuid.UUID `json:"id"`

	// Username is the display name of the user in the chat room.
	Username string `json:"username"`
}

// Record is a full user row from the identity store, including fields that
// must never cross the wire.
type Record struct {
	User

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string

	// CreatedAt is when the account was registered.
	CreatedAt time.Time
}

// Store errors. Implementations map their driver-level failures onto these
// so callers can branch without importing the driver.
var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned by Create when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
)

// Store is the identity store consumed by the authentication flow and the
// connection handshake.
type Store interface {
	// Create registers a new account and returns the stored record.
	Create(ctx context.Context, username, passwordHash string) (Record, error)

	// FindByID resolves a user id to its record. Returns ErrNotFound when the
	// account no longer exists.
	FindByID(ctx context.Context, id uuid.UUID) (Record, error)

	// FindByUsername resolves a username to its record, including the password
	// hash for credential checks. Returns ErrNotFound when unknown.
	FindByUsername(ctx context.Context, username string) (Record, error)
}
