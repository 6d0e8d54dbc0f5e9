package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
)

// memMessageStore is an in-memory MessageStore assigning sequential ids.
type memMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	inserted []StoredMessage
	failWith error
}

func (s *memMessageStore) Insert(_ context.Context, sender user.User, content string) (StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return StoredMessage{}, s.failWith
	}

	s.nextID++
	stored := StoredMessage{
		ID:         s.nextID,
		SenderID:   sender.ID,
		SenderName: sender.Username,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	s.inserted = append(s.inserted, stored)
	return stored, nil
}

func (s *memMessageStore) ListRecent(_ context.Context, limit int) ([]StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.inserted) - limit
	if start < 0 {
		start = 0
	}
	out := make([]StoredMessage, len(s.inserted[start:]))
	copy(out, s.inserted[start:])
	return out, nil
}

func (s *memMessageStore) insertedContents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.inserted))
	for _, m := range s.inserted {
		out = append(out, m.Content)
	}
	return out
}

func newTestPipeline(store MessageStore) (*Pipeline, *Registry, *Router) {
	registry := NewRegistry()
	router := NewRouter(registry)
	return NewPipeline(store, router), registry, router
}

func TestPipeline_RejectsContentEmptyAfterTrim(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	pipeline, registry, _ := newTestPipeline(store)

	recipient := &stubSender{}
	registry.Register(uuid.New(), testUser("bob"), recipient)

	for _, raw := range []string{"", "   ", "\n\t  \r\n"} {
		_, submitErr := pipeline.Submit(context.Background(), raw, testUser("alice"))
		req.NotNil(submitErr)
		req.Equal(errs.ErrMessageContentEmpty, submitErr.Code)
	}

	// Nothing reached persistence or broadcast.
	req.Empty(store.inserted)
	req.Empty(recipient.delivered())
}

func TestPipeline_RejectsContentOverLimit(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	pipeline, _, _ := newTestPipeline(store)

	tooLong := strings.Repeat("a", MaxMessageChars+1)
	_, submitErr := pipeline.Submit(context.Background(), tooLong, testUser("alice"))
	req.NotNil(submitErr)
	req.Equal(errs.ErrMessageContentTooLong, submitErr.Code)
	req.Empty(store.inserted)

	// Limit counts runes after trimming, and the boundary is inclusive.
	atLimit := strings.Repeat("b", MaxMessageChars)
	_, submitErr = pipeline.Submit(context.Background(), "  "+atLimit+"  ", testUser("alice"))
	req.Nil(submitErr)
	req.Len(store.inserted, 1)
}

func TestPipeline_PersistsThenBroadcasts(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	pipeline, registry, _ := newTestPipeline(store)

	alice := testUser("alice")
	recipient := &stubSender{}
	registry.Register(uuid.New(), testUser("bob"), recipient)

	payload, submitErr := pipeline.Submit(context.Background(), "  hi there  ", alice)
	req.Nil(submitErr)
	req.Equal("hi there", payload.Text)
	req.Equal(alice.ID, payload.SenderID)
	req.Equal("alice", payload.SenderDisplayName)
	req.Equal(int64(1), payload.ID)

	events := decodeFrames(t, recipient.delivered())
	req.Len(events, 1)
	req.Equal(TypeMessage, events[0].Type)

	var got MessagePayload
	req.NoError(json.Unmarshal(events[0].Payload, &got))
	req.Equal("hi there", got.Text)
	req.Equal("alice", got.SenderDisplayName)
}

func TestPipeline_PersistenceFailureSuppressesBroadcast(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{failWith: errors.New("connection refused")}
	pipeline, registry, _ := newTestPipeline(store)

	recipient := &stubSender{}
	registry.Register(uuid.New(), testUser("bob"), recipient)

	_, submitErr := pipeline.Submit(context.Background(), "hello", testUser("alice"))
	req.NotNil(submitErr)
	req.Equal(errs.ErrMessagePersistence, submitErr.Code)
	req.Empty(recipient.delivered())
}

func TestPipeline_SingleSenderOrderPreservedUnderConcurrentTraffic(t *testing.T) {
	req := require.New(t)
	store := &memMessageStore{}
	pipeline, registry, _ := newTestPipeline(store)

	recipient := &stubSender{}
	registry.Register(uuid.New(), testUser("observer"), recipient)

	// Other senders interleave freely while alice submits M1 then M2 from a
	// single goroutine, the same serialization a connection's read loop gives.
	var wg sync.WaitGroup
	for _, name := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			u := testUser(name)
			for i := 0; i < 20; i++ {
				_, _ = pipeline.Submit(context.Background(), name+" noise", u)
			}
		}(name)
	}

	alice := testUser("alice")
	_, submitErr := pipeline.Submit(context.Background(), "M1", alice)
	req.Nil(submitErr)
	_, submitErr = pipeline.Submit(context.Background(), "M2", alice)
	req.Nil(submitErr)

	wg.Wait()

	persistedOrder := indexOf(store.insertedContents(), "M1", "M2")
	req.True(persistedOrder, "persisted order must place M1 before M2")

	var broadcastTexts []string
	for _, evt := range decodeFrames(t, recipient.delivered()) {
		var p MessagePayload
		req.NoError(json.Unmarshal(evt.Payload, &p))
		broadcastTexts = append(broadcastTexts, p.Text)
	}
	req.True(indexOf(broadcastTexts, "M1", "M2"), "broadcast order must place M1 before M2")
}

// indexOf reports whether first occurs before second in items, with both present.
func indexOf(items []string, first, second string) bool {
	firstIdx, secondIdx := -1, -1
	for i, item := range items {
		if item == first && firstIdx == -1 {
			firstIdx = i
		}
		if item == second && secondIdx == -1 {
			secondIdx = i
		}
	}
	return firstIdx >= 0 && secondIdx >= 0 && firstIdx < secondIdx
}
