package filelock

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")
	lock := NewFileLock(lockPath)
	assert.Equal(t, lockPath, lock.Path())

	require.NoError(t, lock.Lock())
	require.NoError(t, lock.Unlock())
}

func TestLockDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "report")

	first, err := LockDir(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, LockFileName))

	_, err = LockDir(dir)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())

	again, err := LockDir(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "summary.csv")

	require.NoError(t, AtomicWrite(path, []byte("first")))
	require.NoError(t, AtomicWrite(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestAtomicWriteFuncFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, AtomicWrite(path, []byte("original")))

	boom := errors.New("render failed")
	err := AtomicWriteFunc(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")
}
