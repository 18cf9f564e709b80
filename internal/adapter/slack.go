package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/tabi/internal/concurrency"
	"github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/metrics"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const (
	slackEventsPath        = "/slack/events"
	defaultSlackReplyLimit = 90 * time.Second
	maxSlackBodyBytes      = 1 << 20
)

// Deduper marks delivery keys as seen.
type Deduper interface {
	CheckAndMark(key string, ttl time.Duration) bool
}

type SlackOptions struct {
	Port          int
	SigningSecret string
	BotToken      string
	// APIURL overrides the Slack Web API base URL.
	APIURL string
	// Dedup drops redelivered events; nil handles every delivery.
	Dedup        Deduper
	DedupTTL     time.Duration
	ReplyTimeout time.Duration
}

type SlackAdapter struct {
	signingSecret string
	eventHandler  EventHandler
	dedup         Deduper
	dedupTTL      time.Duration
	replyTimeout  time.Duration
	port          int
	client        *slack.Client

	mu      sync.Mutex
	server  *http.Server
	pending sync.WaitGroup
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

func NewSlackAdapter(opts SlackOptions, eventHandler EventHandler) *SlackAdapter {
	var clientOpts []slack.Option
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(opts.APIURL))
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultSlackReplyLimit
	}
	return &SlackAdapter{
		signingSecret: opts.SigningSecret,
		eventHandler:  eventHandler,
		dedup:         opts.Dedup,
		dedupTTL:      opts.DedupTTL,
		replyTimeout:  opts.ReplyTimeout,
		port:          opts.Port,
		client:        slack.New(opts.BotToken, clientOpts...),
	}
}

func (s *SlackAdapter) Name() string {
	return "slack"
}

// Handler serves the Events API endpoint.
func (s *SlackAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+slackEventsPath, s.handleEvents)
	return mux
}

func (s *SlackAdapter) Start(ctx context.Context) error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.server
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Slack adapter listening", "port", s.port, "path", slackEventsPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "slack server failed")
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

// Stop shuts the listener down and waits for in-flight replies.
func (s *SlackAdapter) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Slack replies still pending at shutdown")
	}
	return err
}

func (s *SlackAdapter) Send(ctx context.Context, sessionID string, content string) error {
	return s.send(ctx, sessionID, "", content)
}

func (s *SlackAdapter) send(ctx context.Context, channel, threadTS, content string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(content, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := s.client.PostMessageContext(ctx, channel, opts...); err != nil {
		return errors.WrapWithCategory(err, "failed to send Slack message", errors.ErrProviderUnavailable)
	}
	slog.Debug("Slack message sent", "channel", channel)
	return nil
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	s.mu.Lock()
	started := s.server != nil
	s.mu.Unlock()
	if !started {
		return errors.ProviderUnavailable("slack server not started")
	}
	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return errors.WrapWithCategory(err, "slack connection failed", errors.ErrProviderUnavailable)
	}
	return nil
}

func (s *SlackAdapter) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSlackBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		slog.Warn("Rejecting Slack request with bad signature", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
		return
	case slackevents.CallbackEvent:
		if s.duplicate(body) {
			w.WriteHeader(http.StatusOK)
			return
		}
		if in, threadTS, ok := s.inbound(event.InnerEvent); ok {
			s.dispatch(in, threadTS)
		}
	}

	// Slack retries anything not acknowledged within three seconds, so the
	// reply is produced after the ack.
	w.WriteHeader(http.StatusOK)
}

func (s *SlackAdapter) duplicate(body []byte) bool {
	if s.dedup == nil {
		return false
	}
	var envelope struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.EventID == "" {
		return false
	}
	if s.dedup.CheckAndMark("slack:"+envelope.EventID, s.dedupTTL) {
		slog.Info("Dropping redelivered Slack event", "event_id", envelope.EventID)
		metrics.AdapterMessages.WithLabelValues(s.Name(), "duplicate").Inc()
		return true
	}
	return false
}

func (s *SlackAdapter) inbound(inner slackevents.EventsAPIInnerEvent) (Inbound, string, bool) {
	switch ev := inner.Data.(type) {
	case *slackevents.MessageEvent:
		// Bot posts (our own replies included) and edits or joins are ignored.
		if ev.BotID != "" || ev.SubType != "" {
			return Inbound{}, "", false
		}
		return s.message(ev.Channel, ev.User, ev.Text), ev.ThreadTimeStamp, true
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" {
			return Inbound{}, "", false
		}
		threadTS := ev.ThreadTimeStamp
		if threadTS == "" {
			threadTS = ev.TimeStamp
		}
		return s.message(ev.Channel, ev.User, ev.Text), threadTS, true
	default:
		return Inbound{}, "", false
	}
}

func (s *SlackAdapter) message(channel, user, text string) Inbound {
	return Inbound{
		Source:    s.Name(),
		SessionID: channel,
		UserID:    user,
		Text:      strings.TrimSpace(mentionPattern.ReplaceAllString(text, "")),
	}
}

func (s *SlackAdapter) dispatch(in Inbound, threadTS string) {
	if in.Text == "" || s.eventHandler == nil {
		return
	}
	metrics.AdapterMessages.WithLabelValues(s.Name(), "received").Inc()

	concurrency.Go(&s.pending, "slack-reply", func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.replyTimeout)
		defer cancel()

		reply, err := s.eventHandler(ctx, in)
		if err != nil {
			slog.Error("Failed to handle Slack event", "channel", in.SessionID, "error", err)
			return
		}
		if err := s.send(ctx, in.SessionID, threadTS, reply); err != nil {
			slog.Error("Failed to reply on Slack", "channel", in.SessionID, "error", err)
			metrics.AdapterMessages.WithLabelValues(s.Name(), "send_failed").Inc()
			return
		}
		metrics.AdapterMessages.WithLabelValues(s.Name(), "replied").Inc()
	})
}

// wait blocks until replies dispatched so far are sent.
func (s *SlackAdapter) wait() {
	s.pending.Wait()
}
