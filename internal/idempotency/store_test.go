package idempotency

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAndMark(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	s.Now = func() time.Time { return now }

	assert.False(t, s.CheckAndMark("Ev1", time.Minute))
	assert.True(t, s.CheckAndMark("Ev1", time.Minute))
	assert.False(t, s.CheckAndMark("Ev2", time.Minute))

	now = now.Add(2 * time.Minute)
	assert.False(t, s.CheckAndMark("Ev1", time.Minute), "expired keys count as new")
}

func TestPrune(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	s.Now = func() time.Time { return now }

	s.CheckAndMark("short", time.Second)
	s.CheckAndMark("long", time.Hour)
	now = now.Add(time.Minute)

	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "slack_events.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	assert.False(t, s.CheckAndMark("Ev1", time.Hour))

	reopened, err := NewStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.CheckAndMark("Ev1", time.Hour))
}
