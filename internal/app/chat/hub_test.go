package chat

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestHub(store MessageStore) *Hub {
	registry := NewRegistry()
	router := NewRouter(registry)
	pipeline := NewPipeline(store, router)
	auth := NewAuthenticator(&stubVerifier{subjectID: uuid.New()}, newMemUserStore())
	return NewHub(registry, router, pipeline, auth)
}

// activeClient builds a client already past authentication, without a real
// transport. Frames pile up in its send queue for the test to drain.
func activeClient(hub *Hub, name string) *Client {
	c := NewClient(hub, nil)
	c.user = testUser(name)
	c.state.Store(int32(StateActive))
	return c
}

// drainEvents empties the client's send queue and decodes each frame.
func drainEvents(t *testing.T, c *Client) []decodedEvent {
	t.Helper()

	var events []decodedEvent
	for {
		select {
		case frame := <-c.send:
			var evt decodedEvent
			require.NoError(t, json.Unmarshal(frame, &evt))
			events = append(events, evt)
		default:
			return events
		}
	}
}

func presenceNames(t *testing.T, evt decodedEvent) []string {
	t.Helper()

	require.Equal(t, TypePresenceUpdate, evt.Type)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	return p.OnlineUsers
}

func sendMessageFrame(content string) json.RawMessage {
	payload, _ := json.Marshal(SendMessagePayload{Content: content})
	return payload
}

func TestHub_JoinSendLeaveScenario(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	hub := newTestHub(store)

	// Alice connects: presence goes out to all active connections (just alice).
	alice := activeClient(hub, "alice")
	hub.Join(alice)

	events := drainEvents(t, alice)
	req.Len(events, 1)
	req.Equal([]string{"alice"}, presenceNames(t, events[0]))

	// Bob connects: both see the two-name snapshot.
	bob := activeClient(hub, "bob")
	hub.Join(bob)

	req.Equal([]string{"alice", "bob"}, presenceNames(t, drainEvents(t, alice)[0]))
	req.Equal([]string{"alice", "bob"}, presenceNames(t, drainEvents(t, bob)[0]))

	// Alice sends "hi": both receive the committed message.
	alice.handleSendMessage(sendMessageFrame("hi"))

	for _, c := range []*Client{alice, bob} {
		events := drainEvents(t, c)
		req.Len(events, 1)
		req.Equal(TypeMessage, events[0].Type)

		var msg MessagePayload
		req.NoError(json.Unmarshal(events[0].Payload, &msg))
		req.Equal("hi", msg.Text)
		req.Equal("alice", msg.SenderDisplayName)
		req.Equal(alice.user.ID, msg.SenderID)
	}
	req.Equal([]string{"hi"}, store.insertedContents())

	// Bob disconnects: remaining connections see the shrunken snapshot.
	bob.Close("client disconnect")

	req.Equal(1, hub.registry.Len())
	req.Equal(StateClosed, bob.State())
	req.Equal([]string{"alice"}, presenceNames(t, drainEvents(t, alice)[0]))
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessageStore{})

	alice := activeClient(hub, "alice")
	bob := activeClient(hub, "bob")
	hub.Join(alice)
	hub.Join(bob)
	drainEvents(t, alice)
	drainEvents(t, bob)

	// Concurrent closure observers (disconnect plus failed delivery) may
	// each call Close; only one presence update goes out.
	bob.Close("client disconnect")
	bob.Close("delivery failure")

	events := drainEvents(t, alice)
	req.Len(events, 1)
	req.Equal([]string{"alice"}, presenceNames(t, events[0]))
	req.Equal(1, hub.registry.Len())
}

func TestHub_InboundEventsDiscardedAfterClose(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	hub := newTestHub(store)

	alice := activeClient(hub, "alice")
	hub.Join(alice)
	alice.Close("client disconnect")

	frame, _ := json.Marshal(map[string]any{
		"type":    TypeSendMessage,
		"payload": SendMessagePayload{Content: "ghost"},
	})
	alice.processInboundEvent(frame)

	req.Empty(store.inserted)
}

func TestHub_TypingIndicatorsSkipTheTyper(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessageStore{})

	alice := activeClient(hub, "alice")
	bob := activeClient(hub, "bob")
	hub.Join(alice)
	hub.Join(bob)
	drainEvents(t, alice)
	drainEvents(t, bob)

	alice.handleTyping()

	req.Empty(drainEvents(t, alice))
	events := drainEvents(t, bob)
	req.Len(events, 1)
	req.Equal(TypeUserTyping, events[0].Type)

	var p TypingPayload
	req.NoError(json.Unmarshal(events[0].Payload, &p))
	req.Equal("alice", p.DisplayName)

	alice.handleStopTyping()

	events = drainEvents(t, bob)
	req.Len(events, 1)
	req.Equal(TypeUserStopTyping, events[0].Type)
}

func TestHub_SendMessageImpliesStopTyping(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessageStore{})

	alice := activeClient(hub, "alice")
	bob := activeClient(hub, "bob")
	hub.Join(alice)
	hub.Join(bob)
	drainEvents(t, alice)
	drainEvents(t, bob)

	// Alice announces typing, then sends without an explicit stop.
	alice.handleTyping()
	drainEvents(t, bob)

	alice.handleSendMessage(sendMessageFrame("hi"))

	events := drainEvents(t, bob)
	req.Len(events, 2)
	req.Equal(TypeUserStopTyping, events[0].Type)
	req.Equal(TypeMessage, events[1].Type)

	// The typer only sees the message itself.
	events = drainEvents(t, alice)
	req.Len(events, 1)
	req.Equal(TypeMessage, events[0].Type)
}

func TestHub_ValidationErrorStaysWithSender(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	hub := newTestHub(store)

	alice := activeClient(hub, "alice")
	bob := activeClient(hub, "bob")
	hub.Join(alice)
	hub.Join(bob)
	drainEvents(t, alice)
	drainEvents(t, bob)

	alice.handleSendMessage(sendMessageFrame("   "))

	events := drainEvents(t, alice)
	req.Len(events, 1)
	req.Equal(TypeError, events[0].Type)

	req.Empty(drainEvents(t, bob))
	req.Empty(store.inserted)
	req.Equal(StateActive, alice.State())
}

func TestHub_SaturatedQueueTreatedAsDisconnect(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessageStore{})

	alice := activeClient(hub, "alice")
	bob := activeClient(hub, "bob")
	hub.Join(alice)
	hub.Join(bob)
	drainEvents(t, alice)
	drainEvents(t, bob)

	// Saturate bob's outbound queue so the next delivery fails.
	for i := 0; i < sendQueueSize; i++ {
		bob.send <- []byte("{}")
	}

	alice.handleSendMessage(sendMessageFrame("hi"))

	req.Equal(1, hub.registry.Len())
	req.Equal(StateClosed, bob.State())
	req.False(hub.registry.IsOnline(bob.user.ID))

	// Alice got the message and then the presence update dropping bob.
	events := drainEvents(t, alice)
	req.Len(events, 2)
	req.Equal(TypeMessage, events[0].Type)
	req.Equal([]string{"alice"}, presenceNames(t, events[1]))
}

func TestHub_EnqueueAfterCloseFails(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessageStore{})

	alice := activeClient(hub, "alice")
	hub.Join(alice)
	alice.Close("client disconnect")

	req.ErrorIs(alice.Enqueue([]byte("{}")), ErrConnClosed)
}

func TestHub_ShutdownClosesAllConnections(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessageStore{})

	alice := activeClient(hub, "alice")
	bob := activeClient(hub, "bob")
	hub.Join(alice)
	hub.Join(bob)

	hub.Shutdown()

	req.Zero(hub.registry.Len())
	req.Equal(StateClosed, alice.State())
	req.Equal(StateClosed, bob.State())

	// Joins are rejected once the hub is down.
	carol := activeClient(hub, "carol")
	hub.Join(carol)
	req.Zero(hub.registry.Len())
	req.Equal(StateClosed, carol.State())
}
