/*
Package chat contains the core logic of the gateway.

This file defines the broadcast Router, which fans an event out to every
connection currently in the presence registry. Delivery is best-effort and
fire-and-forget per recipient; a failed recipient is closed so the lifecycle
can deregister it, and the remaining recipients are unaffected.
*/
package chat

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// Router fans events out to the live recipient set, obtained from the
// presence registry at call time. Two Broadcast calls issued sequentially
// from one goroutine reach every shared recipient in that same order, since
// each connection's outbound queue is FIFO.
type Router struct {
	registry *Registry

	logger zerolog.Logger
}

// NewRouter returns a Router delivering to the given registry's connections.
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		logger:   logx.Logger().With().Str("component", "router").Logger(),
	}
}

// Broadcast delivers event to every currently-registered connection.
func (rt *Router) Broadcast(event Event) {
	rt.deliver(event, uuid.Nil, false)
}

// BroadcastExcept delivers event to every currently-registered connection
// except the one identified by excludeConnID. Used for typing indicators,
// which must not echo back to the typer.
func (rt *Router) BroadcastExcept(event Event, excludeConnID uuid.UUID) {
	rt.deliver(event, excludeConnID, true)
}

// deliver encodes the event once and enqueues it on each recipient's outbound
// queue. Recipients whose queue rejects the frame are closed after the
// delivery loop, which deregisters them and re-broadcasts presence; closing
// mid-loop would let the presence update overtake this event for recipients
// not yet visited.
func (rt *Router) deliver(event Event, excludeConnID uuid.UUID, hasExclude bool) {
	frame, err := event.Encode()
	if err != nil {
		rt.logger.Error().Err(err).
			Str("event_type", string(event.Type)).
			Msg("Error marshaling event for broadcast.")
		return
	}

	var failed []*Connection

	for _, conn := range rt.registry.Connections() {
		if hasExclude && conn.ID == excludeConnID {
			continue
		}

		if err := conn.Sender.Enqueue(frame); err != nil {
			rt.logger.Warn().Err(err).
				Str("connection_id", conn.ID.String()).
				Str("username", conn.User.Username).
				Str("event_type", string(event.Type)).
				Msg("Delivery failed, treating connection as disconnected.")

			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		conn.Sender.Close("delivery failure")
	}
}
