package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LockMode selects a shared or an exclusive advisory lock.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// ErrLocked is returned by a try-only Lock on a file locked elsewhere.
var ErrLocked = errors.New("file is locked by another process")

// EnsureParentDir creates parent directories for the given path if they do not exist.
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}

// ReplaceFileAtomically renames tempPath to targetPath. On systems where
// cross-device rename fails, it falls back to remove-then-rename.
func ReplaceFileAtomically(tempPath, targetPath string) error {
	if err := os.Rename(tempPath, targetPath); err == nil {
		return nil
	}

	if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Rename(tempPath, targetPath)
}

// WriteFileAtomically writes data next to targetPath in a temp file, syncs it
// and renames it over targetPath. Parent directories are created as needed.
// Readers never observe a partially written file.
func WriteFileAtomically(targetPath string, data []byte, perm os.FileMode) error {
	if err := EnsureParentDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(targetPath), filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	cleanupTemp := true
	defer func() {
		if cleanupTemp {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := ReplaceFileAtomically(tmpPath, targetPath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	cleanupTemp = false

	return nil
}

// WithFileLock runs fn while holding an advisory lock on lockPath. A shared
// lock is taken unless exclusive is set. If the lock file cannot be created
// or locked, fn still runs unlocked; the lock only guards against a second
// process touching the same data directory.
func WithFileLock(lockPath string, exclusive bool, fn func() error) error {
	if err := EnsureParentDir(lockPath); err != nil {
		return fn()
	}

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fn()
	}
	defer lockFile.Close()

	mode := LockShared
	if exclusive {
		mode = LockExclusive
	}
	if err := Lock(lockFile, mode, false); err != nil {
		return fn()
	}
	defer func() {
		_ = Unlock(lockFile)
	}()

	return fn()
}
