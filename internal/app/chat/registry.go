/*
Package chat contains the core logic of the gateway.

This file defines the presence Registry, the single source of truth for which
connections are currently online. All mutation funnels through its
synchronized API; readers only ever see a point-in-time consistent snapshot.
*/
package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
)

// Delivery errors returned by a Sender when a frame cannot be queued.
var (
	// ErrSendQueueFull indicates the connection's outbound buffer is saturated.
	ErrSendQueueFull = errors.New("send queue full")

	// ErrConnClosed indicates the connection has already been closed.
	ErrConnClosed = errors.New("connection closed")
)

// Sender is the outbound half of one live connection: a non-blocking enqueue
// plus an idempotent close. A slow recipient never blocks the caller; a
// failed enqueue is treated upstream as an implicit disconnect signal.
type Sender interface {
	// Enqueue queues one encoded frame for delivery. It never blocks.
	Enqueue(frame []byte) error

	// Close terminates the connection. Safe to call any number of times,
	// from any goroutine.
	Close(reason string)
}

// Connection ties an authenticated identity to the transport handle it
// arrived on. A single identity may hold several simultaneous Connections
// (e.g., two browser tabs); each has its own id.
type Connection struct {
	ID          uuid.UUID
	User        user.User
	ConnectedAt time.Time
	Sender      Sender
}

// Registry is the in-memory mapping of connection id to live Connection.
// An entry exists if and only if its connection is active and authenticated.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Connection

	logger zerolog.Logger
}

// NewRegistry returns an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]*Connection),
		logger: logx.Logger().With().Str("component", "registry").Logger(),
	}
}

// Register adds (or, for an already-registered connection id, replaces) a
// presence entry. Replacement keeps duplicate registration attempts harmless.
func (r *Registry) Register(connID uuid.UUID, u user.User, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		r.logger.Warn().
			Str("connection_id", connID.String()).
			Msg("Connection id already registered. Replacing entry.")
	}

	r.conns[connID] = &Connection{
		ID:          connID,
		User:        u,
		ConnectedAt: time.Now(),
		Sender:      sender,
	}
}

// Deregister removes the presence entry for connID. It reports whether an
// entry was actually removed, so callers can make the surrounding cleanup
// (presence re-broadcast) exactly-once. A second call for the same id is a no-op.
func (r *Registry) Deregister(connID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return false
	}

	delete(r.conns, connID)
	return true
}

// Snapshot returns the distinct display names currently online, sorted.
// Two connections held by the same user contribute a single name.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.conns))
	names := make([]string, 0, len(r.conns))

	for _, conn := range r.conns {
		if _, ok := seen[conn.User.Username]; ok {
			continue
		}
		seen[conn.User.Username] = struct{}{}
		names = append(names, conn.User.Username)
	}

	sort.Strings(names)
	return names
}

// IsOnline reports whether the user holds at least one active connection.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.conns {
		if conn.User.ID == userID {
			return true
		}
	}
	return false
}

// Connections returns a point-in-time copy of all live connections, for the
// broadcast router and shutdown. The returned slice is the caller's to keep.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
