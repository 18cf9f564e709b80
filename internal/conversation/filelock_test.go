package conversation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortLockConfig(timeout time.Duration) *FileLockConfig {
	retry := 10 * time.Millisecond
	return &FileLockConfig{
		LockTimeout:  timeout,
		LockRetry:    retry,
		LockMaxRetry: max(int(timeout/retry), 1),
	}
}

func TestFileLockExclusive(t *testing.T) {
	dir := t.TempDir()

	lock1, err := NewFileLock(dir, shortLockConfig(100*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, lock1.IsLocked())

	_, err = NewFileLock(dir, shortLockConfig(50*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another instance")

	lock1.Unlock()
	assert.False(t, lock1.IsLocked())
	lock1.Unlock()

	lock2, err := NewFileLock(dir, shortLockConfig(100*time.Millisecond))
	require.NoError(t, err)
	lock2.Unlock()
}

func TestSecondStoreOnSamePathFails(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, RuntimeConfig{})
	require.NoError(t, err)
	defer s.Stop()

	_, err = Open(dir, RuntimeConfig{LockTimeout: 50 * time.Millisecond, LockRetry: 10 * time.Millisecond, LockMaxRetry: 3})
	assert.Error(t, err)
}

func TestCleanupStaleLocks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, lockFile)
	require.NoError(t, os.WriteFile(path, nil, 0644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, CleanupStaleLocks(dir, time.Hour, false))
	assert.FileExists(t, path)

	require.NoError(t, CleanupStaleLocks(dir, time.Hour, true))
	assert.NoFileExists(t, path)

	require.NoError(t, CleanupStaleLocks(dir, time.Hour, true))
}
