package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harunnryd/tabi/internal/conversation"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/metrics"
	"github.com/harunnryd/tabi/internal/model"
	"github.com/harunnryd/tabi/internal/model/contract"
	"github.com/harunnryd/tabi/internal/tool"

	"github.com/oklog/ulid/v2"
)

// FailureText is the only failure message end users ever see.
const FailureText = "Sorry, something went wrong while processing your request. Please try again."

const (
	DefaultModelTimeout    = 30 * time.Second
	DefaultHistoryLimit    = 10
	DefaultMaxMessageChars = 4000
)

// HistoryStore is the part of the conversation store a turn needs.
type HistoryStore interface {
	History(ctx context.Context, id string, limit int) ([]conversation.Message, error)
	Append(ctx context.Context, id string, messages ...conversation.Message) (conversation.Meta, error)
}

type Options struct {
	// Model is the router model name; empty uses the router default.
	Model           string
	SystemPrompt    string
	ModelTimeout    time.Duration
	HistoryLimit    int
	MaxMessageChars int
	Now             func() time.Time
}

type Request struct {
	Message        string `json:"message"`
	Language       string `json:"language,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

type Reply struct {
	Text           string
	ConversationID string
	// Tool names the tool that produced Text, empty for plain model text.
	Tool string
}

// Orchestrator runs one chat turn: a single model round trip and, when the
// model asks for it, a single tool dispatch.
type Orchestrator struct {
	router     model.ModelRouter
	dispatcher *tool.Dispatcher
	history    HistoryStore
	opts       Options
}

func New(router model.ModelRouter, dispatcher *tool.Dispatcher, history HistoryStore, opts Options) *Orchestrator {
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = DefaultModelTimeout
	}
	if opts.HistoryLimit < 0 {
		opts.HistoryLimit = 0
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = DefaultMaxMessageChars
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{router: router, dispatcher: dispatcher, history: history, opts: opts}
}

// Handle answers one user message. Model failures come back as errors
// categorized ErrModelCommunication or ErrTimeout; their text is for logs
// only, callers show FailureText.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Reply, error) {
	start := time.Now()
	if logger.GetTraceID(ctx) == "" {
		ctx = logger.WithTraceID(ctx, ulid.Make().String())
	}
	traceID := logger.GetTraceID(ctx)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, tabiErrors.InvalidInput("message is empty")
	}
	if utf8.RuneCountInString(message) > o.opts.MaxMessageChars {
		return Reply{}, tabiErrors.InvalidInput(fmt.Sprintf("message exceeds %d characters", o.opts.MaxMessageChars))
	}
	convID := strings.TrimSpace(req.ConversationID)
	if convID != "" {
		if err := conversation.ValidateID(convID); err != nil {
			return Reply{}, err
		}
		ctx = logger.WithConversationID(ctx, convID)
	}

	slog.Info("Handling chat turn", "conversation_id", convID, "language", req.Language, "message_len", len(message), "trace_id", traceID)

	completion := contract.CompletionRequest{
		Model:    o.opts.Model,
		System:   SystemInstruction(o.opts.SystemPrompt, o.opts.Now(), req.Language),
		Messages: append(o.loadHistory(ctx, convID), contract.Message{Role: "user", Content: message}),
		Tools:    o.dispatcher.Definitions(),
	}

	resp, err := o.complete(ctx, completion)
	if err != nil {
		o.observe("error", start)
		slog.Error("Chat turn failed", "error", err, "duration", time.Since(start), "trace_id", traceID)
		return Reply{}, err
	}

	reply := Reply{Text: resp.Content, ConversationID: convID}
	outcome := "text"
	if call, requested := resp.FirstToolCall(); call != nil {
		if requested > 1 {
			slog.Info("Ignoring extra tool calls", "requested", requested, "used", call.Name, "trace_id", traceID)
		}
		reply.Tool = call.Name
		reply.Text = o.dispatcher.Dispatch(ctx, tool.Invocation{Name: call.Name, Args: decodeArgs(call.Input, traceID)})
		outcome = "tool"
	}

	o.record(ctx, convID, message, reply.Text)
	o.observe(outcome, start)
	slog.Info("Chat turn completed", "outcome", outcome, "tool", reply.Tool, "duration", time.Since(start), "trace_id", traceID)
	return reply, nil
}

func (o *Orchestrator) complete(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.ModelTimeout)
	defer cancel()

	resp, err := o.router.Route(ctx, req.Model, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, tabiErrors.WrapWithCategory(err, "model call timed out", tabiErrors.ErrTimeout)
		}
		if tabiErrors.IsCategory(err, tabiErrors.ErrModelCommunication) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, tabiErrors.WrapWithCategory(err, "model call failed", tabiErrors.ErrModelCommunication)
	}
	if resp == nil {
		return nil, tabiErrors.ModelCommunication("model returned no response")
	}
	return resp, nil
}

func (o *Orchestrator) loadHistory(ctx context.Context, convID string) []contract.Message {
	if o.history == nil || convID == "" || o.opts.HistoryLimit == 0 {
		return nil
	}
	past, err := o.history.History(ctx, convID, o.opts.HistoryLimit)
	if err != nil {
		slog.Warn("Conversation history unavailable", "conversation_id", convID, "error", err, "trace_id", logger.GetTraceID(ctx))
		return nil
	}

	messages := make([]contract.Message, 0, len(past)+1)
	for _, m := range past {
		messages = append(messages, contract.Message{Role: string(m.Role), Content: m.Content})
	}
	return messages
}

// record appends the turn to the conversation. A write failure is logged;
// the user still gets the reply.
func (o *Orchestrator) record(ctx context.Context, convID, message, reply string) {
	if o.history == nil || convID == "" {
		return
	}
	_, err := o.history.Append(ctx, convID,
		conversation.Message{Role: conversation.RoleUser, Content: message},
		conversation.Message{Role: conversation.RoleAssistant, Content: reply},
	)
	if err != nil {
		slog.Warn("Failed to record chat turn", "conversation_id", convID, "error", err, "trace_id", logger.GetTraceID(ctx))
	}
}

func (o *Orchestrator) observe(outcome string, start time.Time) {
	metrics.ChatTurns.WithLabelValues(outcome).Inc()
	metrics.ChatTurnDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// decodeArgs parses the model's JSON arguments. Garbage decodes to an
// empty map and the dispatcher's validation rejects it.
func decodeArgs(input, traceID string) map[string]interface{} {
	args := map[string]interface{}{}
	if strings.TrimSpace(input) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil || args == nil {
		slog.Warn("Tool arguments are not a JSON object", "input", input, "error", err, "trace_id", traceID)
		return map[string]interface{}{}
	}
	return args
}

// Tools lists the tool definitions sent to the model.
func (o *Orchestrator) Tools() []contract.ToolDef {
	return o.dispatcher.Definitions()
}
