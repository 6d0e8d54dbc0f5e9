/*
Package chat contains the core logic of the gateway.

This file defines the message Pipeline: validation, persistence, and the
hand-off of committed messages to the broadcast router.
*/
package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// MaxMessageChars is the maximum number of characters allowed in a chat
// message after whitespace trimming.
const MaxMessageChars = 1000

// Pipeline validates, persists, and enriches incoming chat messages before
// handing them to the broadcast router. It holds no lock of its own: a
// pending persistence call for one sender never delays another sender's
// submission, and per-sender ordering is inherited from each connection's
// single read loop.
type Pipeline struct {
	store  MessageStore
	router *Router

	logger zerolog.Logger
}

// NewPipeline returns a Pipeline persisting through store and broadcasting
// through router.
func NewPipeline(store MessageStore, router *Router) *Pipeline {
	return &Pipeline{
		store:  store,
		router: router,
		logger: logx.Logger().With().Str("component", "pipeline").Logger(),
	}
}

// Submit processes one raw message from sender. On success the message is
// durable and has been handed to the router; a broadcast failure to some
// peers does not roll it back. On failure nothing is broadcast and the
// returned error is for the sender alone.
func (p *Pipeline) Submit(ctx context.Context, rawContent string, sender user.User) (MessagePayload, *errs.CustomError) {
	content := strings.TrimSpace(rawContent)

	if content == "" {
		return MessagePayload{}, errs.NewError(errs.ErrMessageContentEmpty)
	}

	if utf8.RuneCountInString(content) > MaxMessageChars {
		return MessagePayload{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	stored, err := p.store.Insert(ctx, sender, content)
	if err != nil {
		p.logger.Error().Err(err).
			Str("sender_id", sender.ID.String()).
			Msg("Failed to persist message.")
		return MessagePayload{}, errs.NewError(errs.ErrMessagePersistence)
	}

	payload := MessagePayload{
		ID:                stored.ID,
		Text:              stored.Content,
		SenderDisplayName: sender.Username,
		SenderID:          sender.ID,
		CreatedAt:         stored.CreatedAt,
	}

	p.router.Broadcast(Event{Type: TypeMessage, Payload: payload})

	return payload, nil
}
