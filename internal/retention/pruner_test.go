package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/tabi/internal/config"
	"github.com/harunnryd/tabi/internal/conversation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakeStore) Prune(ctx context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return []string{"a"}, f.err
}

func TestNewPruner_Validation(t *testing.T) {
	_, err := NewPruner(&fakeStore{}, config.RetentionConfig{Schedule: "every tuesday"})
	assert.ErrorContains(t, err, "retention.schedule")

	_, err = NewPruner(&fakeStore{}, config.RetentionConfig{MaxAge: "-1h"})
	assert.Error(t, err)

	p, err := NewPruner(&fakeStore{}, config.RetentionConfig{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRetentionSchedule, p.expr)
}

func TestPruner_Next(t *testing.T) {
	p, err := NewPruner(&fakeStore{}, config.RetentionConfig{Schedule: "0 3 * * *", MaxAge: "24h"})
	require.NoError(t, err)

	from := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 16, 3, 0, 0, 0, time.UTC), p.Next(from))
}

func TestPruner_RunOnceUsesMaxAge(t *testing.T) {
	store := &fakeStore{}
	p, err := NewPruner(store, config.RetentionConfig{MaxAge: "48h"})
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }

	removed, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, removed)
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, now.Add(-48*time.Hour), store.cutoffs[0])
}

func TestPruner_HealthReflectsLastRun(t *testing.T) {
	store := &fakeStore{err: errors.New("disk gone")}
	p, err := NewPruner(store, config.RetentionConfig{})
	require.NoError(t, err)

	assert.Error(t, p.Health(context.Background()), "not running")

	require.NoError(t, p.Start(context.Background()))
	assert.NoError(t, p.Health(context.Background()))

	_, err = p.RunOnce(context.Background())
	assert.Error(t, err)
	assert.ErrorContains(t, p.Health(context.Background()), "disk gone")

	require.NoError(t, p.Stop(context.Background()))
	assert.False(t, p.IsRunning())
	require.NoError(t, p.Stop(context.Background()), "stop is idempotent")
}

func TestPruner_PrunesRealStore(t *testing.T) {
	store, err := conversation.Open(t.TempDir(), conversation.RuntimeConfig{})
	require.NoError(t, err)
	store.Start()
	defer store.Stop()

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return old }
	_, err = store.Create(context.Background(), "old", "")
	require.NoError(t, err)

	fresh := old.Add(60 * 24 * time.Hour)
	store.Now = func() time.Time { return fresh }
	_, err = store.Create(context.Background(), "fresh", "")
	require.NoError(t, err)

	p, err := NewPruner(store, config.RetentionConfig{MaxAge: "720h"})
	require.NoError(t, err)
	p.Now = func() time.Time { return fresh }

	removed, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, removed)

	metas, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "fresh", metas[0].ID)
}
