package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/tabi/internal/widget/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hotelReply = `Here are some options.

[HOTEL_WIDGET]
{
  "name": "Aman Tokyo",
  "rating": 4.8,
  "reviews": 1200,
  "price": "$900",
  "location": "Otemachi",
  "link": "#"
}
[/HOTEL_WIDGET]`

type recordedChat struct {
	mu       sync.Mutex
	payloads []chatPayload
}

func (r *recordedChat) all() []chatPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chatPayload(nil), r.payloads...)
}

func newChatServer(t *testing.T, reply string, status int) (*httptest.Server, *recordedChat) {
	t.Helper()
	rec := &recordedChat{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var p chatPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		rec.mu.Lock()
		rec.payloads = append(rec.payloads, p)
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error", "details": "model_communication"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": reply})
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestAPIClientChat(t *testing.T) {
	srv, rec := newChatServer(t, "hello traveler", http.StatusOK)

	client := newAPIClient(srv.URL+"/", time.Second)
	reply, err := client.Chat(context.Background(), chatPayload{Message: "hi", Language: "ja", ConversationID: "cli-1"})
	require.NoError(t, err)
	assert.Equal(t, "hello traveler", reply)

	payloads := rec.all()
	require.Len(t, payloads, 1)
	assert.Equal(t, chatPayload{Message: "hi", Language: "ja", ConversationID: "cli-1"}, payloads[0])
}

func TestAPIClientChatError(t *testing.T) {
	srv, _ := newChatServer(t, "", http.StatusInternalServerError)

	_, err := newAPIClient(srv.URL, time.Second).Chat(context.Background(), chatPayload{Message: "hi"})
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "model_communication", apiErr.Details)
}

func TestChatREPL(t *testing.T) {
	srv, rec := newChatServer(t, hotelReply, http.StatusOK)

	renderer, err := render.New(render.OutputFormatPlain)
	require.NoError(t, err)

	var out bytes.Buffer
	repl := &chatREPL{
		client:         newAPIClient(srv.URL, time.Second),
		renderer:       renderer,
		in:             bufio.NewReader(strings.NewReader("\nhotels in tokyo\n/new\nagain\n/exit\nignored\n")),
		out:            &out,
		conversationID: "cli-test",
	}
	require.NoError(t, repl.Run(context.Background()))

	payloads := rec.all()
	require.Len(t, payloads, 2)
	assert.Equal(t, "hotels in tokyo", payloads[0].Message)
	assert.Equal(t, "cli-test", payloads[0].ConversationID)
	assert.NotEqual(t, "cli-test", payloads[1].ConversationID, "/new switches conversation")

	printed := out.String()
	assert.Contains(t, printed, "Tabi chat session: cli-test")
	assert.Contains(t, printed, "Here are some options.")
	assert.Contains(t, printed, "🏨 Aman Tokyo")
	assert.NotContains(t, printed, "[HOTEL_WIDGET]")
}

func TestChatREPLEndsOnEOF(t *testing.T) {
	srv, rec := newChatServer(t, "ok", http.StatusOK)

	renderer, err := render.New(render.OutputFormatJSON)
	require.NoError(t, err)

	var out bytes.Buffer
	repl := &chatREPL{
		client:   newAPIClient(srv.URL, time.Second),
		renderer: renderer,
		in:       bufio.NewReader(strings.NewReader("weather in paris")),
		out:      &out,
	}
	require.NoError(t, repl.Run(context.Background()))

	require.Len(t, rec.all(), 1)
	assert.True(t, strings.HasPrefix(repl.conversationID, "cli-"))
	assert.Contains(t, out.String(), `"ok"`)
}

func TestChatREPLReportsServerErrors(t *testing.T) {
	srv, _ := newChatServer(t, "", http.StatusInternalServerError)

	renderer, err := render.New(render.OutputFormatPlain)
	require.NoError(t, err)

	var out bytes.Buffer
	repl := &chatREPL{
		client:   newAPIClient(srv.URL, time.Second),
		renderer: renderer,
		in:       bufio.NewReader(strings.NewReader("hi\n/exit\n")),
		out:      &out,
	}
	require.NoError(t, repl.Run(context.Background()))
	assert.Contains(t, out.String(), "error: server returned 500")
}
