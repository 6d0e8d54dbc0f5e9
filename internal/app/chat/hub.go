/*
Package chat contains the core logic of the gateway.

This file defines the Hub, the single global chat room. It ties the session
authenticator, presence registry, broadcast router, and message pipeline
together and orchestrates the connection lifecycle around them.
*/
package chat

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// Hub coordinates the one global room: joins, leaves, presence broadcasts,
// and shutdown. All registry mutation funnels through Join and Leave, which
// keeps the presence-update broadcast tied to every membership change.
type Hub struct {
	registry *Registry
	router   *Router
	pipeline *Pipeline
	auth     *Authenticator

	// closed suppresses per-connection presence broadcasts during shutdown.
	closed atomic.Bool

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs the Hub around its four collaborators.
func NewHub(registry *Registry, router *Router, pipeline *Pipeline, auth *Authenticator) *Hub {
	return &Hub{
		registry: registry,
		router:   router,
		pipeline: pipeline,
		auth:     auth,
		logger:   logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// Registry exposes the presence registry for read-side consumers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Join registers an authenticated client and broadcasts the updated presence
// snapshot to every connection, the new one included.
func (h *Hub) Join(c *Client) {
	if h.closed.Load() {
		c.Close("server shutting down")
		return
	}

	h.registry.Register(c.id, c.user, c)

	h.logger.Info().
		Str("connection_id", c.id.String()).
		Str("username", c.user.Username).
		Int("total_connections", h.registry.Len()).
		Msg("Client joined.")

	h.broadcastPresence()
}

// Leave removes a closing client from the registry. The presence re-broadcast
// happens only for the call that actually removed the entry, so concurrent
// closure observers (disconnect plus failed delivery) produce one update.
func (h *Hub) Leave(c *Client) {
	if !h.registry.Deregister(c.id) {
		return
	}

	h.logger.Info().
		Str("connection_id", c.id.String()).
		Str("username", c.user.Username).
		Int("total_connections", h.registry.Len()).
		Msg("Client left.")

	if !h.closed.Load() {
		h.broadcastPresence()
	}
}

// broadcastPresence sends the full current snapshot of online display names
// to every connection.
func (h *Hub) broadcastPresence() {
	h.router.Broadcast(Event{
		Type:    TypePresenceUpdate,
		Payload: PresencePayload{OnlineUsers: h.registry.Snapshot()},
	})
}

// Shutdown closes every live connection. New joins are rejected from this
// point on.
func (h *Hub) Shutdown() {
	h.closed.Store(true)

	conns := h.registry.Connections()
	h.logger.Info().Int("total_connections", len(conns)).Msg("Shutting down hub.")

	for _, conn := range conns {
		conn.Sender.Close("server shutdown")
	}

	h.logger.Info().Msg("Hub shutdown complete.")
}
