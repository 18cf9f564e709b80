package adapter

import (
	"context"
	"log/slog"

	"github.com/harunnryd/tabi/internal/chat"
	"github.com/harunnryd/tabi/internal/concurrency"
	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/widget/render"

	"github.com/oklog/ulid/v2"
)

type ChatHandler interface {
	Handle(ctx context.Context, req chat.Request) (chat.Reply, error)
}

// NewChatBridge returns an EventHandler that runs a chat turn for each
// inbound message. Each platform chat keeps its own conversation and its
// turns run one at a time in arrival order. Widget blocks come back
// rendered as plain text; any failure becomes chat.FailureText.
func NewChatBridge(h ChatHandler) EventHandler {
	turns := concurrency.NewKeyedMutex()
	return func(ctx context.Context, in Inbound) (string, error) {
		if logger.GetTraceID(ctx) == "" {
			ctx = logger.WithTraceID(ctx, ulid.Make().String())
		}

		convID := in.ConversationID()
		turns.Lock(convID)
		defer turns.Unlock(convID)

		reply, err := h.Handle(ctx, chat.Request{Message: in.Text, ConversationID: convID})
		if err != nil {
			slog.Error("Chat turn failed for adapter message", "source", in.Source, "session_id", in.SessionID, "error", err, "trace_id", logger.GetTraceID(ctx))
			return chat.FailureText, nil
		}
		return render.Plain(reply.Text), nil
	}
}
