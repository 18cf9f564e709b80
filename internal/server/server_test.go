package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/tabi/internal/chat"
	"github.com/harunnryd/tabi/internal/conversation"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/logger"
	"github.com/harunnryd/tabi/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	mu       sync.Mutex
	requests []chat.Request
	traceIDs []string
	reply    chat.Reply
	err      error
	release  chan struct{}
	entered  chan struct{}
	panicMsg string
}

func (s *stubChat) Handle(ctx context.Context, req chat.Request) (chat.Reply, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.traceIDs = append(s.traceIDs, logger.GetTraceID(ctx))
	s.mu.Unlock()

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return chat.Reply{}, s.err
	}
	reply := s.reply
	reply.ConversationID = req.ConversationID
	return reply, nil
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(deps).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChatSuccess(t *testing.T) {
	text := "[WEATHER_WIDGET]\n{}\n[/WEATHER_WIDGET]"
	stub := &stubChat{reply: chat.Reply{Text: text}}
	ts := newTestServer(t, Deps{Chat: stub})

	resp := postJSON(t, ts.URL+"/api/chat", `{"message":"weather in Oslo","language":"no"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	body := decodeBody(t, resp)
	assert.Equal(t, text, body["response"])
	assert.NotContains(t, body, "conversationId")

	require.Len(t, stub.requests, 1)
	assert.Equal(t, "weather in Oslo", stub.requests[0].Message)
	assert.Equal(t, "no", stub.requests[0].Language)
	assert.Equal(t, resp.Header.Get(RequestIDHeader), stub.traceIDs[0])
}

func TestChatHonoursRequestID(t *testing.T) {
	stub := &stubChat{reply: chat.Reply{Text: "hi"}}
	ts := newTestServer(t, Deps{Chat: stub})

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/chat", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "req-123", stub.traceIDs[0])
}

func TestChatBadRequests(t *testing.T) {
	stub := &stubChat{}
	ts := newTestServer(t, Deps{Chat: stub, MaxBodyBytes: 64})

	for name, body := range map[string]string{
		"not json":      `{"message":`,
		"empty message": `{"message":"   "}`,
		"missing":       `{}`,
		"too large":     `{"message":"` + strings.Repeat("x", 100) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/chat", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			out := decodeBody(t, resp)
			assert.Equal(t, "Invalid request.", out["error"])
			assert.Equal(t, "invalid_request", out["details"])
		})
	}
	assert.Empty(t, stub.requests)
}

func TestChatMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Deps{Chat: &stubChat{}})

	resp, err := http.Get(ts.URL + "/api/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChatModelFailureIsSanitized(t *testing.T) {
	stub := &stubChat{err: tabiErrors.WrapWithCategory(errors.New("api key sk-secret rejected"), "model call failed", tabiErrors.ErrModelCommunication)}
	ts := newTestServer(t, Deps{Chat: stub})

	resp := postJSON(t, ts.URL+"/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, chat.FailureText, body["error"])
	assert.Equal(t, "model_unavailable", body["details"])
	assert.NotContains(t, body["error"], "sk-secret")
}

func TestChatTimeoutStatus(t *testing.T) {
	stub := &stubChat{err: tabiErrors.WrapWithCategory(context.DeadlineExceeded, "model call timed out", tabiErrors.ErrTimeout)}
	ts := newTestServer(t, Deps{Chat: stub})

	resp := postJSON(t, ts.URL+"/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "timeout", decodeBody(t, resp)["details"])
}

func TestChatPanicIsRecovered(t *testing.T) {
	ts := newTestServer(t, Deps{Chat: &stubChat{panicMsg: "nil map"}})

	resp := postJSON(t, ts.URL+"/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, chat.FailureText, body["error"])
	assert.Equal(t, "internal", body["details"])
}

func TestChatOneTurnPerConversation(t *testing.T) {
	stub := &stubChat{
		reply:   chat.Reply{Text: "done"},
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	ts := newTestServer(t, Deps{Chat: stub})

	first := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"one","conversationId":"c1"}`))
		if err == nil {
			first <- resp
		}
		close(first)
	}()

	select {
	case <-stub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never reached the chat handler")
	}

	second := postJSON(t, ts.URL+"/api/chat", `{"message":"two","conversationId":"c1"}`)
	assert.Equal(t, http.StatusConflict, second.StatusCode)
	assert.Equal(t, "turn_in_progress", decodeBody(t, second)["details"])

	close(stub.release)
	resp, ok := <-first
	require.True(t, ok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c1", decodeBody(t, resp)["conversationId"])

	stub.entered = nil
	third := postJSON(t, ts.URL+"/api/chat", `{"message":"three","conversationId":"c1"}`)
	assert.Equal(t, http.StatusOK, third.StatusCode)
}

func openStore(t *testing.T) *conversation.Store {
	t.Helper()
	s, err := conversation.Open(t.TempDir(), conversation.RuntimeConfig{})
	require.NoError(t, err)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestConversationsAPI(t *testing.T) {
	store := openStore(t)
	ts := newTestServer(t, Deps{Chat: &stubChat{}, Conversations: store})

	resp := postJSON(t, ts.URL+"/api/conversations", `{"title":"Lisbon weekend"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Lisbon weekend", created["title"])

	_, err := store.Append(context.Background(), id,
		conversation.Message{Role: conversation.RoleUser, Content: "hotels in Lisbon"},
		conversation.Message{Role: conversation.RoleAssistant, Content: "[HOTEL_WIDGET]\n{}\n[/HOTEL_WIDGET]"},
	)
	require.NoError(t, err)

	listResp, err := http.Get(ts.URL + "/api/conversations")
	require.NoError(t, err)
	defer listResp.Body.Close()
	list := decodeBody(t, listResp)
	assert.Len(t, list["conversations"], 1)

	getResp, err := http.Get(ts.URL + "/api/conversations/" + id)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var tr conversation.Transcript
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&tr))
	assert.Equal(t, id, tr.Meta.ID)
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, conversation.RoleAssistant, tr.Messages[1].Role)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/conversations/"+id, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missing, err := http.Get(ts.URL + "/api/conversations/" + id)
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
	assert.Equal(t, "not_found", decodeBody(t, missing)["details"])
}

func TestCreateConversationWithoutBody(t *testing.T) {
	ts := newTestServer(t, Deps{Chat: &stubChat{}, Conversations: openStore(t)})

	resp, err := http.Post(ts.URL+"/api/conversations", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestConversationRoutesAbsentWithoutStore(t *testing.T) {
	ts := newTestServer(t, Deps{Chat: &stubChat{}})

	resp, err := http.Get(ts.URL + "/api/conversations")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type namedTool struct{ name string }

func (n namedTool) Name() string        { return n.name }
func (n namedTool) Description() string { return "test tool" }
func (n namedTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (n namedTool) Execute(context.Context, json.RawMessage) (string, error) { return "", nil }

func TestToolsEndpoint(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(namedTool{name: "getWeather"})
	registry.Register(namedTool{name: "searchHotels"})
	ts := newTestServer(t, Deps{Chat: &stubChat{}, Tools: registry})

	resp, err := http.Get(ts.URL + "/api/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Tools []tool.ToolDescriptor `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Tools, 2)
	assert.Equal(t, "getWeather", out.Tools[0].Definition.Name)
}

func TestHealthEndpoint(t *testing.T) {
	healthy := true
	ts := newTestServer(t, Deps{Chat: &stubChat{}, Health: func(context.Context) map[string]error {
		if healthy {
			return map[string]error{"ConversationStore": nil}
		}
		return map[string]error{"ConversationStore": errors.New("loop not running")}
	}})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])

	healthy = false
	resp2, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
	body := decodeBody(t, resp2)
	assert.Equal(t, "degraded", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Deps{Chat: &stubChat{reply: chat.Reply{Text: "ok"}}})
	postJSON(t, ts.URL+"/api/chat", `{"message":"hi"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `tabi_http_requests_total{route="POST /api/chat",status="200"}`)
}

// slowDeleteStore blocks Delete until release is closed.
type slowDeleteStore struct {
	*conversation.Store
	entered chan struct{}
	release chan struct{}
}

func (s *slowDeleteStore) Delete(ctx context.Context, id string) error {
	s.entered <- struct{}{}
	<-s.release
	return s.Store.Delete(ctx, id)
}

func TestDeleteBlocksTurnsOnSameConversation(t *testing.T) {
	base := openStore(t)
	_, err := base.Append(context.Background(), "trip-1", conversation.Message{Role: conversation.RoleUser, Content: "hi"})
	require.NoError(t, err)

	store := &slowDeleteStore{Store: base, entered: make(chan struct{}, 1), release: make(chan struct{})}
	stub := &stubChat{reply: chat.Reply{Text: "hello"}}
	ts := newTestServer(t, Deps{Chat: stub, Conversations: store})

	deleted := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/conversations/trip-1", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			deleted <- 0
			return
		}
		resp.Body.Close()
		deleted <- resp.StatusCode
	}()

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("delete never reached the store")
	}

	resp := postJSON(t, ts.URL+"/api/chat", `{"message":"again","conversationId":"trip-1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "turn_in_progress", decodeBody(t, resp)["details"])
	assert.Empty(t, stub.requests)

	close(store.release)
	assert.Equal(t, http.StatusNoContent, <-deleted)

	_, err = base.Get(context.Background(), "trip-1")
	assert.True(t, tabiErrors.IsCategory(err, tabiErrors.ErrNotFound))

	resp = postJSON(t, ts.URL+"/api/chat", `{"message":"fresh","conversationId":"trip-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
