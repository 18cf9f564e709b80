package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrProviderUnavailable - upstream search provider failed or is not configured (absorbed by the search adapter, never surfaced)
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedPayload - upstream provider returned an unexpected shape (absorbed by the search adapter)
	ErrMalformedPayload = errors.New("malformed provider payload")

	// ErrModelCommunication - model call failed (generic failure message to the client, non-2xx)
	ErrModelCommunication = errors.New("model communication failed")

	// ErrTimeout - model or tool call exceeded its deadline
	ErrTimeout = errors.New("timeout")

	// ErrMalformedWidget - widget block JSON could not be decoded (block skipped, raw text kept)
	ErrMalformedWidget = errors.New("malformed widget")

	// ErrUnknownTool - model asked for a tool outside the catalog (fixed text, no provider call)
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidInput - invalid request or tool arguments
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrConflict - a turn is already in flight for the conversation
	ErrConflict = errors.New("conflict")

	// ErrInternal - internal error (generic message + trace id)
	ErrInternal = errors.New("internal error")
)
