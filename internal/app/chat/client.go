/*
Package chat contains the core logic of the gateway.

This file defines the Client struct, representing one live WebSocket connection.
It owns the per-connection state machine (Connecting, Authenticating, Active,
Closed), the message communication loops (ReadPump and WritePump), and the
dispatch of inbound events to the pipeline and router.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// ConnState is the lifecycle state of one connection. Transitions only move
// forward; Closed is terminal.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateActive
	StateClosed
)

// Client represents one live bidirectional connection and, once
// authenticated, the identity bound to it for the connection's lifetime.
type Client struct {
	// the hub coordinating registry, router, and pipeline.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// unique id of this connection, distinct from the user id.
	id uuid.UUID

	// associated identity; zero until authentication succeeds.
	user user.User

	// lifecycle state, advanced with atomic stores.
	state atomic.Int32

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closed exactly once when the connection enters Closed.
	done chan struct{}

	closeOnce sync.Once

	// typing tracks whether this client last announced TYPING without a
	// matching STOP_TYPING. Touched only from the read loop.
	typing bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for a freshly established transport, in the
// Connecting state. No registry state exists until authentication succeeds.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	connID := uuid.New()

	client := &Client{
		hub:    hub,
		conn:   wsConn,
		id:     connID,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		logger: logx.Logger().With().Str("connection_id", connID.String()).Logger(),
	}
	client.state.Store(int32(StateConnecting))

	return client
}

// ID returns the unique connection id.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// User returns the authenticated identity. Zero before authentication.
func (c *Client) User() user.User {
	return c.user
}

// State returns the current lifecycle state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// Authenticate validates the handshake credential token and advances the
// connection to Active, or sends a single AUTH_ERROR event and terminates
// the transport. It must be called before the pumps are started.
func (c *Client) Authenticate(ctx context.Context, credentialToken string) *errs.CustomError {
	c.state.Store(int32(StateAuthenticating))

	identity, authErr := c.hub.auth.Authenticate(ctx, credentialToken)
	if authErr != nil {
		c.logger.Warn().
			Int("auth_code", authErr.Code).
			Msg("Authentication failed. Terminating connection.")

		c.rejectAuth(authErr)
		return authErr
	}

	c.user = identity
	c.logger = c.logger.With().Str("username", identity.Username).Logger()
	c.state.Store(int32(StateActive))

	return nil
}

// rejectAuth writes the AUTH_ERROR event followed by a close frame directly
// on the transport and moves the connection to Closed. The write happens
// synchronously because the write pump is not running yet.
func (c *Client) rejectAuth(authErr *errs.CustomError) {
	event := Event{
		Type:    TypeAuthError,
		Payload: ErrorPayload{Code: authErr.Code, Message: authErr.Message},
	}

	if frame, err := event.Encode(); err == nil {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to write AUTH_ERROR frame.")
		}
	}

	closeFrame := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, authErr.Message)
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write close frame after auth failure.")
	}

	c.Close("authentication failed")
}

// Enqueue queues one encoded frame for delivery to this client. It never
// blocks; a saturated queue or a closed connection yields an error the
// router treats as an implicit disconnect signal.
func (c *Client) Enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

// Close terminates the connection. It is idempotent: only the first call
// advances the state to Closed, deregisters the connection, and closes the
// transport, no matter how many concurrent events observe the closure.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)

		c.logger.Info().Str("reason", reason).Msg("Connection closing.")

		c.hub.Leave(c)

		if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				c.logger.Debug().Err(err).Msg("Transport close error.")
			}
		}
	})
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), event parsing, and performs cleanup upon
// connection closure. Each connection runs exactly one read loop, which is
// what serializes a single sender's submissions.
func (c *Client) ReadPump() {
	defer c.Close("read loop exit")

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.processInboundEvent(frame)
	}
}

// processInboundEvent handles one raw frame received from the client.
// Frames arriving on a connection that is not Active are discarded.
func (c *Client) processInboundEvent(frame []byte) {
	if c.State() != StateActive {
		c.logger.Debug().Msg("Discarding inbound event on inactive connection.")
		return
	}

	var inbound struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(frame, &inbound); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame", frame).
			Msg("Client sent invalid JSON")
		return
	}

	switch inbound.Type {
	case TypeSendMessage:
		c.handleSendMessage(inbound.Payload)

	case TypeTyping:
		c.handleTyping()

	case TypeStopTyping:
		c.handleStopTyping()

	default:
		c.logger.Warn().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// handleSendMessage routes one chat submission through the pipeline. Sending
// a message implicitly ends any announced typing state first, so no stale
// "is typing" indicator survives the message itself.
func (c *Client) handleSendMessage(payloadBytes json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid SEND_MESSAGE payload")
		return
	}

	if c.typing {
		c.typing = false
		c.hub.router.BroadcastExcept(Event{
			Type:    TypeUserStopTyping,
			Payload: TypingPayload{DisplayName: c.user.Username},
		}, c.id)
	}

	if _, submitErr := c.hub.pipeline.Submit(context.Background(), payload.Content, c.user); submitErr != nil {
		c.SendError(submitErr)
	}
}

// handleTyping broadcasts a typing indicator to every other connection.
func (c *Client) handleTyping() {
	c.typing = true
	c.hub.router.BroadcastExcept(Event{
		Type:    TypeUserTyping,
		Payload: TypingPayload{DisplayName: c.user.Username},
	}, c.id)
}

// handleStopTyping clears the typing indicator for every other connection.
func (c *Client) handleStopTyping() {
	c.typing = false
	c.hub.router.BroadcastExcept(Event{
		Type:    TypeUserStopTyping,
		Payload: TypingPayload{DisplayName: c.user.Username},
	}, c.id)
}

// SendError queues a TypeError event for this client alone. Validation and
// persistence failures are never broadcast.
func (c *Client) SendError(customErr *errs.CustomError) {
	event := Event{
		Type:    TypeError,
		Payload: ErrorPayload{Code: customErr.Code, Message: customErr.Message},
	}

	frame, err := event.Encode()
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling error event")
		return
	}

	if err := c.Enqueue(frame); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to queue error event")
	}
}

// WritePump drains the outbound queue to the WebSocket connection and keeps
// the heartbeat alive. It exits when the connection closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Transport close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.writeQueuedFrame(frame) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing close message")
			}
			return
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
