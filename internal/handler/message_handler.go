/*
Package handler provides the HTTP handler for the chat history endpoint,
used to seed a joining client before live events begin.
*/
package handler

import (
	"net/http"
	"time"

	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// HistoryLimit is the number of recent messages returned to a joining client.
const HistoryLimit = 100

// HandleListMessages returns the most recent chat messages, oldest first.
// Requires an authenticated identity.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		messages, err := deps.Messages.ListRecent(r.Context(), HistoryLimit)
		if err != nil {
			logx.Error(err, "failed to fetch message history")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		out := make([]map[string]any, 0, len(messages))
		for _, m := range messages {
			out = append(out, map[string]any{
				"id":                m.ID,
				"text":              m.Content,
				"senderDisplayName": m.SenderName,
				"senderId":          m.SenderID.String(),
				"createdAt":         m.CreatedAt.Format(time.RFC3339Nano),
			})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": out,
		})
	}
}
