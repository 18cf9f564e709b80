package conversation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tabiErrors "github.com/harunnryd/tabi/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir, RuntimeConfig{LockTimeout: 200 * time.Millisecond, LockRetry: 10 * time.Millisecond, LockMaxRetry: 5})
	require.NoError(t, err)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	meta, err := s.Create(ctx, "", "Trip to Tokyo")
	require.NoError(t, err)
	assert.Len(t, meta.ID, 26)
	assert.Equal(t, "Trip to Tokyo", meta.Title)

	tr, err := s.Get(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, tr.Meta.ID)
	assert.Empty(t, tr.Messages)

	_, err = s.Create(ctx, meta.ID, "again")
	assert.True(t, tabiErrors.IsCategory(err, tabiErrors.ErrConflict))
}

func TestAppendKeepsOrderAndCreatesImplicitly(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	meta, err := s.Append(ctx, "telegram:42",
		Message{Role: RoleUser, Content: "  weather   in Paris  "},
		Message{Role: RoleAssistant, Content: "[WEATHER_WIDGET]{}[/WEATHER_WIDGET]"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.MessageCount)
	assert.Equal(t, "weather in Paris", meta.Title)

	_, err = s.Append(ctx, "telegram:42", Message{Role: RoleUser, Content: "thanks"})
	require.NoError(t, err)

	tr, err := s.Get(ctx, "telegram:42")
	require.NoError(t, err)
	require.Len(t, tr.Messages, 3)
	assert.Equal(t, RoleUser, tr.Messages[0].Role)
	assert.Equal(t, RoleAssistant, tr.Messages[1].Role)
	assert.Equal(t, "thanks", tr.Messages[2].Content)
	assert.NotEmpty(t, tr.Messages[0].ID)
	assert.Equal(t, 3, tr.Meta.MessageCount)
}

func TestHistoryLimit(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c", "d"} {
		_, err := s.Append(ctx, "conv-1", Message{Role: RoleUser, Content: c})
		require.NoError(t, err)
	}

	history, err := s.History(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].Content)
	assert.Equal(t, "d", history[1].Content)

	history, err = s.History(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return clock }

	_, err := s.Append(ctx, "old", Message{Role: RoleUser, Content: "first"})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	_, err = s.Append(ctx, "new", Message{Role: RoleUser, Content: "second"})
	require.NoError(t, err)

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "new", metas[0].ID)
	assert.Equal(t, "old", metas[1].ID)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()

	_, err := s.Append(ctx, "gone", Message{Role: RoleUser, Content: "hi"})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "gone.jsonl"))

	require.NoError(t, s.Delete(ctx, "gone"))
	assert.NoFileExists(t, filepath.Join(dir, "gone.jsonl"))

	_, err = s.Get(ctx, "gone")
	assert.True(t, tabiErrors.IsCategory(err, tabiErrors.ErrNotFound))
	assert.True(t, tabiErrors.IsCategory(s.Delete(ctx, "gone"), tabiErrors.ErrNotFound))
}

func TestPrune(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return clock }
	_, err := s.Append(ctx, "stale", Message{Role: RoleUser, Content: "x"})
	require.NoError(t, err)

	clock = clock.AddDate(0, 2, 0)
	_, err = s.Append(ctx, "fresh", Message{Role: RoleUser, Content: "y"})
	require.NoError(t, err)

	removed, err := s.Prune(ctx, clock.AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, removed)

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "fresh", metas[0].ID)
}

func TestInvalidIDsRejected(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"../etc/passwd", "a/b", " spaced", strings.Repeat("x", 200)} {
		_, err := s.Append(ctx, id, Message{Role: RoleUser, Content: "x"})
		assert.True(t, tabiErrors.IsCategory(err, tabiErrors.ErrInvalidInput), id)
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, RuntimeConfig{})
	require.NoError(t, err)
	s.Start()
	_, err = s.Append(ctx, "persist", Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, err)
	s.Stop()

	raw, err := os.ReadFile(filepath.Join(dir, "index.json"))
	require.NoError(t, err)
	var idx Index
	require.NoError(t, json.Unmarshal(raw, &idx))
	assert.Contains(t, idx.Conversations, "persist")

	s2 := openStore(t, dir)
	tr, err := s2.Get(ctx, "persist")
	require.NoError(t, err)
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, "hello", tr.Messages[0].Content)
}

func TestCorruptLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	ctx := context.Background()

	_, err := s.Append(ctx, "c1", Message{Role: RoleUser, Content: "ok"})
	require.NoError(t, err)

	f, err := os.OpenFile(filepath.Join(dir, "c1.jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	history, err := s.History(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, "busy", Message{Role: RoleUser, Content: "m"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tr, err := s.Get(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, tr.Messages, 20)
	assert.Equal(t, 20, tr.Meta.MessageCount)
}

func TestStoppedStoreRejectsRequests(t *testing.T) {
	s, err := Open(t.TempDir(), RuntimeConfig{InboxSize: 1})
	require.NoError(t, err)
	s.Start()
	s.Stop()

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.IsRunning())
}
