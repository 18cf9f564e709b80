package adapter

import (
	"context"
)

// Inbound is one user message received from a chat platform.
type Inbound struct {
	// Source is the adapter name, e.g. "slack".
	Source string
	// SessionID is the platform chat the reply goes to (channel id, chat id).
	SessionID string
	UserID    string
	Text      string
}

// ConversationID keys the stored history of the platform chat.
func (in Inbound) ConversationID() string {
	return in.Source + ":" + in.SessionID
}

// EventHandler answers an inbound message with the text to send back.
// Adapters depend on this callback instead of the chat package.
type EventHandler func(ctx context.Context, in Inbound) (string, error)

// InputAdapter defines the interface for adapters that receive events from external platforms
type InputAdapter interface {
	// Name returns the adapter name (e.g. "slack", "telegram").
	Name() string

	// Start begins listening for events (e.g. starts a server or long-poll).
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter.
	Stop(ctx context.Context) error

	// Health checks if the adapter is healthy and connected.
	Health(ctx context.Context) error
}

// Platform is a chat platform adapter: it receives messages and sends the
// replies back to the same platform.
type Platform interface {
	InputAdapter

	// Send delivers content to a platform chat (channel id, chat id).
	Send(ctx context.Context, sessionID string, content string) error
}
