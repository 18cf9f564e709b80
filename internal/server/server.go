package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/harunnryd/tabi/internal/chat"
	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/conversation"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/tool"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ChatHandler interface {
	Handle(ctx context.Context, req chat.Request) (chat.Reply, error)
}

type ConversationStore interface {
	Create(ctx context.Context, id, title string) (conversation.Meta, error)
	Get(ctx context.Context, id string) (conversation.Transcript, error)
	List(ctx context.Context) ([]conversation.Meta, error)
	Delete(ctx context.Context, id string) error
}

// HealthFunc reports per-component health; a nil error means healthy.
type HealthFunc func(ctx context.Context) map[string]error

type Deps struct {
	Chat          ChatHandler
	Conversations ConversationStore
	Tools         *tool.Registry
	Health        HealthFunc
	MaxBodyBytes  int64
}

// Server is the HTTP API. It owns no listener; see Handler.
type Server struct {
	deps Deps
	gate *turnGate
	mux  *http.ServeMux
}

func New(deps Deps) *Server {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = config.DefaultServerMaxBodyBytes
	}

	s := &Server{deps: deps, gate: newTurnGate(), mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	if deps.Conversations != nil {
		s.mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
		s.mux.HandleFunc("GET /api/conversations", s.handleListConversations)
		s.mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
		s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	}
	s.mux.HandleFunc("GET /api/tools", s.handleTools)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the API wrapped in request-id, recovery and access-log
// middleware.
func (s *Server) Handler() http.Handler {
	return requestID(recoverer(accessLog(s.mux)))
}

type chatRequest struct {
	Message        string `json:"message"`
	Language       string `json:"language,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, tabiErrors.InvalidInput("message is required"))
		return
	}

	convID := strings.TrimSpace(req.ConversationID)
	if !s.gate.acquire(convID) {
		slog.Warn("Rejecting concurrent turn", "conversation_id", convID, "trace_id", logger.GetTraceID(r.Context()))
		writeError(w, tabiErrors.Conflict("turn in progress"))
		return
	}
	defer s.gate.release(convID)

	reply, err := s.deps.Chat.Handle(r.Context(), chat.Request{
		Message:        req.Message,
		Language:       req.Language,
		ConversationID: convID,
	})
	if err != nil {
		slog.Error("Chat request failed", "error", err, "details", tabiErrors.Code(err), "trace_id", logger.GetTraceID(r.Context()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply.Text, ConversationID: reply.ConversationID})
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if r.ContentLength != 0 {
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	meta, err := s.deps.Conversations.Create(r.Context(), "", req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	metas, err := s.deps.Conversations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": metas})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := conversation.ValidateID(id); err != nil {
		writeError(w, err)
		return
	}

	transcript, err := s.deps.Conversations.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := conversation.ValidateID(id); err != nil {
		writeError(w, err)
		return
	}
	// Held through Delete so a turn cannot start and re-create the
	// conversation with its Append.
	if !s.gate.acquire(id) {
		writeError(w, tabiErrors.Conflict("turn in progress"))
		return
	}
	defer s.gate.release(id)

	if err := s.deps.Conversations.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	descriptors := []tool.ToolDescriptor{}
	if s.deps.Tools != nil {
		descriptors = s.deps.Tools.GetDescriptors()
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": descriptors})
}

type componentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := map[string]componentStatus{}
	if s.deps.Health != nil {
		results := s.deps.Health(r.Context())
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cs := componentStatus{Healthy: results[name] == nil}
			if !cs.Healthy {
				cs.Error = results[name].Error()
				status = "degraded"
			}
			components[name] = cs
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "components": components})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tabiErrors.InvalidInput(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return tabiErrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}
