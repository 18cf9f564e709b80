package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/harunnryd/tabi/internal/chat"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// publicMessages are the user-facing texts per error code. Anything else
// gets chat.FailureText; raw error text never leaves the process.
var publicMessages = map[string]string{
	"invalid_request":  "Invalid request.",
	"not_found":        "Conversation not found.",
	"turn_in_progress": "A reply to your previous message is still on its way. Please wait a moment.",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := tabiErrors.Code(err)
	msg, ok := publicMessages[code]
	if !ok {
		msg = chat.FailureText
	}
	writeJSON(w, tabiErrors.HTTPStatus(err), errorResponse{Error: msg, Details: code})
}
