package conversation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	stdatomic "sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/harunnryd/tabi/internal/config"
	tabiErrors "github.com/harunnryd/tabi/internal/errors"

	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"
)

// ErrClosed is returned for requests submitted after Stop.
var ErrClosed = errors.New("conversation store is closed")

const maxTitleRunes = 60

type Operation int

const (
	OpCreate Operation = iota
	OpAppend
	OpGet
	OpHistory
	OpList
	OpDelete
	OpPrune
)

type request struct {
	op      Operation
	payload any
	result  chan response
}

type response struct {
	value any
	err   error
}

type createPayload struct {
	id    string
	title string
}

type appendPayload struct {
	id       string
	messages []Message
}

type historyPayload struct {
	id    string
	limit int
}

// Transcript is a conversation with its messages in append order.
type Transcript struct {
	Meta     Meta      `json:"conversation"`
	Messages []Message `json:"messages"`
}

type RuntimeConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
	InboxSize    int
}

// Store is the append-only conversation store. A single worker goroutine
// owns the index and all transcript files; every operation, reads
// included, is a request on its inbox.
type Store struct {
	basePath string
	inbox    chan request
	fileLock *FileLock
	index    *Index
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  stdatomic.Bool

	// Now stamps messages and index entries.
	Now func() time.Time
}

func Open(basePath string, runtimeCfg RuntimeConfig) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, tabiErrors.InvalidInput("store path is empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dir %s: %w", basePath, err)
	}

	if runtimeCfg.LockTimeout <= 0 {
		runtimeCfg.LockTimeout = config.MustDuration("", config.DefaultStoreLockTimeout)
	}
	if runtimeCfg.LockRetry <= 0 {
		runtimeCfg.LockRetry = config.MustDuration("", config.DefaultStoreLockRetry)
	}
	if runtimeCfg.LockMaxRetry <= 0 {
		runtimeCfg.LockMaxRetry = config.DefaultStoreLockMaxRetry
	}
	if runtimeCfg.InboxSize <= 0 {
		runtimeCfg.InboxSize = config.DefaultStoreInboxSize
	}

	fileLock, err := NewFileLock(basePath, &FileLockConfig{
		LockTimeout:  runtimeCfg.LockTimeout,
		LockRetry:    runtimeCfg.LockRetry,
		LockMaxRetry: runtimeCfg.LockMaxRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	index := &Index{Conversations: make(map[string]Meta)}
	if data, err := os.ReadFile(indexPath(basePath)); err == nil {
		if err := json.Unmarshal(data, index); err != nil {
			slog.Warn("Failed to parse conversation index, starting fresh", "error", err)
			index = &Index{Conversations: make(map[string]Meta)}
		}
		if index.Conversations == nil {
			index.Conversations = make(map[string]Meta)
		}
	}

	return &Store{
		basePath: basePath,
		inbox:    make(chan request, runtimeCfg.InboxSize),
		fileLock: fileLock,
		index:    index,
		quit:     make(chan struct{}),
		Now:      time.Now,
	}, nil
}

func (s *Store) Start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *Store) loop() {
	slog.Info("Conversation store started", "path", s.basePath, "conversations", len(s.index.Conversations))
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()

	for {
		select {
		case req := <-s.inbox:
			value, err := s.handle(req)
			req.result <- response{value: value, err: err}
		case <-s.quit:
			slog.Info("Conversation store stopping")
			return
		}
	}
}

func (s *Store) handle(req request) (any, error) {
	switch req.op {
	case OpCreate:
		p := req.payload.(createPayload)
		return s.create(p.id, p.title)
	case OpAppend:
		p := req.payload.(appendPayload)
		return s.appendMessages(p.id, p.messages)
	case OpGet:
		return s.get(req.payload.(string))
	case OpHistory:
		p := req.payload.(historyPayload)
		if _, ok := s.index.Conversations[p.id]; !ok {
			return []Message{}, nil
		}
		return s.readTranscript(p.id, p.limit)
	case OpList:
		return s.list(), nil
	case OpDelete:
		return nil, s.delete(req.payload.(string))
	case OpPrune:
		return s.prune(req.payload.(time.Time))
	default:
		return nil, fmt.Errorf("unknown operation: %d", req.op)
	}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Store) create(id, title string) (Meta, error) {
	if id == "" {
		id = ulid.Make().String()
	}
	if err := ValidateID(id); err != nil {
		return Meta{}, err
	}
	if _, exists := s.index.Conversations[id]; exists {
		return Meta{}, tabiErrors.Conflict(fmt.Sprintf("conversation %s already exists", id))
	}

	now := s.now()
	meta := Meta{ID: id, Title: strings.TrimSpace(title), CreatedAt: now, UpdatedAt: now}
	s.index.Conversations[id] = meta
	if err := s.saveIndex(); err != nil {
		delete(s.index.Conversations, id)
		return Meta{}, err
	}
	return meta, nil
}

// appendMessages creates the conversation on first write so adapter
// conversations ("telegram:42") need no explicit create.
func (s *Store) appendMessages(id string, messages []Message) (Meta, error) {
	if err := ValidateID(id); err != nil {
		return Meta{}, err
	}

	now := s.now()
	meta, exists := s.index.Conversations[id]
	if !exists {
		meta = Meta{ID: id, CreatedAt: now}
	}

	var buf bytes.Buffer
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = ulid.Make().String()
		}
		if messages[i].CreatedAt.IsZero() {
			messages[i].CreatedAt = now
		}
		line, err := json.Marshal(messages[i])
		if err != nil {
			return Meta{}, err
		}
		buf.Write(line)
		buf.WriteByte('\n')

		if meta.Title == "" && messages[i].Role == RoleUser {
			meta.Title = titleFrom(messages[i].Content)
		}
	}

	if err := s.appendTranscript(id, buf.Bytes()); err != nil {
		return Meta{}, err
	}

	meta.UpdatedAt = now
	meta.MessageCount += len(messages)
	s.index.Conversations[id] = meta
	return meta, s.saveIndex()
}

func (s *Store) get(id string) (Transcript, error) {
	meta, ok := s.index.Conversations[id]
	if !ok {
		return Transcript{}, tabiErrors.NotFound(fmt.Sprintf("conversation %s not found", id))
	}
	messages, err := s.readTranscript(id, 0)
	if err != nil {
		return Transcript{}, err
	}
	return Transcript{Meta: meta, Messages: messages}, nil
}

func (s *Store) list() []Meta {
	metas := make([]Meta, 0, len(s.index.Conversations))
	for _, m := range s.index.Conversations {
		metas = append(metas, m)
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].ID > metas[j].ID
		}
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

func (s *Store) delete(id string) error {
	if _, ok := s.index.Conversations[id]; !ok {
		return tabiErrors.NotFound(fmt.Sprintf("conversation %s not found", id))
	}
	if err := os.Remove(transcriptPath(s.basePath, id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	delete(s.index.Conversations, id)
	return s.saveIndex()
}

func (s *Store) prune(cutoff time.Time) ([]string, error) {
	var removed []string
	for id, meta := range s.index.Conversations {
		if !meta.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(transcriptPath(s.basePath, id)); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove transcript", "conversation_id", id, "error", err)
			continue
		}
		delete(s.index.Conversations, id)
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return removed, nil
	}
	sort.Strings(removed)
	return removed, s.saveIndex()
}

func (s *Store) readTranscript(id string, limit int) ([]Message, error) {
	f, err := os.Open(transcriptPath(s.basePath, id))
	if err != nil {
		if os.IsNotExist(err) {
			return []Message{}, nil
		}
		return nil, err
	}
	defer f.Close()

	messages := []Message{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			slog.Warn("Skipping corrupt transcript line", "conversation_id", id, "error", err)
			continue
		}
		messages = append(messages, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(messages) > limit {
		return messages[len(messages)-limit:], nil
	}
	return messages, nil
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(indexPath(s.basePath), bytes.NewReader(data))
}

func (s *Store) appendTranscript(id string, data []byte) error {
	f, err := os.OpenFile(transcriptPath(s.basePath, id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func titleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	r := []rune(title)
	return strings.TrimSpace(string(r[:maxTitleRunes])) + "…"
}

func (s *Store) submit(ctx context.Context, op Operation, payload any) (any, error) {
	req := request{op: op, payload: payload, result: make(chan response, 1)}
	select {
	case s.inbox <- req:
	case <-s.quit:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.result:
		return res.value, res.err
	case <-s.quit:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Public API

// Create registers an empty conversation. An empty id generates a ULID.
func (s *Store) Create(ctx context.Context, id, title string) (Meta, error) {
	v, err := s.submit(ctx, OpCreate, createPayload{id: id, title: title})
	if err != nil {
		return Meta{}, err
	}
	return v.(Meta), nil
}

// Append adds messages to the end of a conversation, creating it if needed.
func (s *Store) Append(ctx context.Context, id string, messages ...Message) (Meta, error) {
	cp := make([]Message, len(messages))
	copy(cp, messages)
	v, err := s.submit(ctx, OpAppend, appendPayload{id: id, messages: cp})
	if err != nil {
		return Meta{}, err
	}
	return v.(Meta), nil
}

func (s *Store) Get(ctx context.Context, id string) (Transcript, error) {
	v, err := s.submit(ctx, OpGet, id)
	if err != nil {
		return Transcript{}, err
	}
	return v.(Transcript), nil
}

// History returns the last limit messages (all when limit <= 0). An
// unknown conversation has an empty history.
func (s *Store) History(ctx context.Context, id string, limit int) ([]Message, error) {
	v, err := s.submit(ctx, OpHistory, historyPayload{id: id, limit: limit})
	if err != nil {
		return nil, err
	}
	return v.([]Message), nil
}

// List returns every conversation, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	v, err := s.submit(ctx, OpList, nil)
	if err != nil {
		return nil, err
	}
	return v.([]Meta), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.submit(ctx, OpDelete, id)
	return err
}

// Prune deletes conversations not updated since cutoff and returns their ids.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) ([]string, error) {
	v, err := s.submit(ctx, OpPrune, cutoff)
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
		s.fileLock.Unlock()
	})
}

func (s *Store) IsRunning() bool {
	return s.fileLock.IsLocked() && s.running.Load()
}

func (s *Store) Path() string {
	return s.basePath
}
