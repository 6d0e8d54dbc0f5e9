package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/user"
)

// stubSender is a Sender that records delivered frames in memory.
type stubSender struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
	reason string
}

func (s *stubSender) Enqueue(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		return ErrSendQueueFull
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *stubSender) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.reason = reason
}

func (s *stubSender) delivered() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

func testUser(name string) user.User {
	return user.User{ID: uuid.New(), Username: name}
}

func TestRegistry_RegisterAndSnapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.Empty(registry.Snapshot())
	req.Zero(registry.Len())

	alice := testUser("alice")
	bob := testUser("bob")

	registry.Register(uuid.New(), bob, &stubSender{})
	registry.Register(uuid.New(), alice, &stubSender{})

	req.Equal([]string{"alice", "bob"}, registry.Snapshot())
	req.Equal(2, registry.Len())
	req.True(registry.IsOnline(alice.ID))
	req.True(registry.IsOnline(bob.ID))
}

func TestRegistry_SnapshotDeduplicatesByDisplayName(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Same identity on two connections, e.g. two browser tabs.
	alice := testUser("alice")
	tab1 := uuid.New()
	tab2 := uuid.New()

	registry.Register(tab1, alice, &stubSender{})
	registry.Register(tab2, alice, &stubSender{})

	req.Equal([]string{"alice"}, registry.Snapshot())
	req.Equal(2, registry.Len())

	// Presence survives until the last connection goes.
	req.True(registry.Deregister(tab1))
	req.Equal([]string{"alice"}, registry.Snapshot())
	req.True(registry.IsOnline(alice.ID))

	req.True(registry.Deregister(tab2))
	req.Empty(registry.Snapshot())
	req.False(registry.IsOnline(alice.ID))
}

func TestRegistry_RegisterIsIdempotentPerConnectionID(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	connID := uuid.New()
	registry.Register(connID, testUser("alice"), &stubSender{})
	registry.Register(connID, testUser("alice"), &stubSender{})

	req.Equal(1, registry.Len())
	req.Equal([]string{"alice"}, registry.Snapshot())
}

func TestRegistry_DeregisterTwiceIsNoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	connID := uuid.New()
	registry.Register(connID, testUser("alice"), &stubSender{})

	req.True(registry.Deregister(connID))
	req.False(registry.Deregister(connID))
	req.False(registry.Deregister(uuid.New()))
	req.Zero(registry.Len())
}

func TestRegistry_SnapshotMatchesNetRegistrations(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	users := []user.User{testUser("alice"), testUser("bob"), testUser("carol")}
	var connIDs []uuid.UUID

	for _, u := range users {
		id := uuid.New()
		connIDs = append(connIDs, id)
		registry.Register(id, u, &stubSender{})
	}

	registry.Deregister(connIDs[1])

	req.Equal([]string{"alice", "carol"}, registry.Snapshot())
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			u := testUser(fmt.Sprintf("user%02d", w))
			for i := 0; i < perWorker; i++ {
				id := uuid.New()
				registry.Register(id, u, &stubSender{})
				_ = registry.Snapshot()
				registry.Deregister(id)
			}
		}(w)
	}
	wg.Wait()

	req.Zero(registry.Len())
	req.Empty(registry.Snapshot())
}
