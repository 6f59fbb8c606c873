package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomically_CreatesParentsAndReplaces(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "dir", "data.json")

	require.NoError(t, WriteFileAtomically(target, []byte("first"), 0644))
	require.NoError(t, WriteFileAtomically(target, []byte("second"), 0644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWithFileLock_RunsCallback(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "data.json.lock")

	for _, exclusive := range []bool{true, false} {
		called := false
		err := WithFileLock(lockPath, exclusive, func() error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
	}
}

func TestLock_TryOnlyReportsContention(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("LockFileEx does not conflict across handles of one process the same way")
	}
	lockPath := filepath.Join(t.TempDir(), "omf.pid.lock")

	first, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer first.Close()
	second, err := os.OpenFile(lockPath, os.O_RDWR, 0644)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, Lock(first, LockExclusive, true))
	assert.ErrorIs(t, Lock(second, LockShared, true), ErrLocked)

	require.NoError(t, Unlock(first))
	require.NoError(t, Lock(second, LockShared, true))
	require.NoError(t, Lock(first, LockShared, true), "shared locks coexist")
}
