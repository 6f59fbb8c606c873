// Package platform holds the operating-system collaborators of omf.
//
// It resolves the per-user data and log directories, guards the data
// directory with a single-instance PID file, launches files and web pages
// as detached processes, discovers the default browser and registers the
// application to start with the user session.
//
// # Data Directory
//
// Groups and settings live in a per-user application data directory:
//   - Windows: %LOCALAPPDATA%\OpenMyFiles
//   - macOS:   ~/Library/Application Support/OpenMyFiles
//   - Linux:   $XDG_DATA_HOME/OpenMyFiles or ~/.local/share/OpenMyFiles
//
// # PID File Format
//
// The PID file contains a single line with the process ID as a decimal
// integer. It is written next to a lock file that the owning process keeps
// locked for its lifetime, so a crashed instance never blocks the next one.
//
// # Platform Support
//
// Platform-specific behavior is implemented in platform_unix.go and
// platform_windows.go.
package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/internal/fileutil"
)

const (
	AppName = "OpenMyFiles"

	// ProjectURL is shown on the help screen.
	ProjectURL = "https://github.com/ioan45/open-my-files"
)

// DefaultDataDir returns the OS-specific per-user application data directory.
// The directory may not exist yet.
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", AppName), nil
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, AppName), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", AppName), nil
	default: // Linux and other Unix-like systems
		if base := os.Getenv("XDG_DATA_HOME"); base != "" {
			return filepath.Join(base, AppName), nil
		}
		return filepath.Join(homeDir, ".local", "share", AppName), nil
	}
}

// DefaultLogDir returns the OS-specific default log directory.
//
// Platform-specific defaults:
//   - Linux:   $XDG_STATE_HOME/OpenMyFiles/logs or ~/.local/state/OpenMyFiles/logs
//   - macOS:   ~/Library/Logs/OpenMyFiles
//   - Windows: %LOCALAPPDATA%\OpenMyFiles\logs
func DefaultLogDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Logs", AppName), nil
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, AppName, "logs"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", AppName, "logs"), nil
	default:
		if base := os.Getenv("XDG_STATE_HOME"); base != "" {
			return filepath.Join(base, AppName, "logs"), nil
		}
		return filepath.Join(homeDir, ".local", "state", AppName, "logs"), nil
	}
}

// Instance is the single-instance guard of a data directory.
type Instance struct {
	pidPath string
	lockFh  *os.File
}

// AcquireInstance takes the instance lock next to pidPath and records the
// current PID. If another live process holds the lock, an ALREADY_RUNNING
// error carrying its PID is returned.
func AcquireInstance(pidPath string) (*Instance, error) {
	if err := os.MkdirAll(filepath.Dir(pidPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lockPath := pidPath + ".lock"
	lockFh, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	// Non-blocking: a second instance fails fast instead of waiting
	if err := fileutil.Lock(lockFh, fileutil.LockExclusive, true); err != nil {
		lockFh.Close()
		pid, _ := ReadPIDFile(pidPath)
		return nil, apperrors.AlreadyRunning(pid)
	}

	// Write PID atomically using temp file + rename
	content := fmt.Sprintf("%d\n", os.Getpid())
	tmpPath := pidPath + ".tmp"

	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		lockFh.Close()
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	if err := os.Rename(tmpPath, pidPath); err != nil {
		os.Remove(tmpPath)
		lockFh.Close()
		return nil, fmt.Errorf("failed to rename PID file: %w", err)
	}

	return &Instance{pidPath: pidPath, lockFh: lockFh}, nil
}

// Release removes the PID file and drops the lock. Safe to call twice.
func (i *Instance) Release() error {
	if i == nil || i.lockFh == nil {
		return nil
	}
	err := os.Remove(i.pidPath)
	_ = fileutil.Unlock(i.lockFh)
	_ = i.lockFh.Close()
	i.lockFh = nil
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// ReadPIDFile reads the process ID from pidPath.
//
// Return values:
//   - (0, nil):     No PID file exists
//   - (pid, nil):   PID file exists and contains a valid process ID
//   - (0, error):   PID file exists but is corrupt or unreadable
func ReadPIDFile(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}

// GetRunningPID returns the PID of the running instance, or 0 if none.
// Stale PID files (process gone) are removed.
func GetRunningPID(pidPath string) (int, error) {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		return 0, nil
	}

	if !IsProcessRunning(pid) {
		_ = os.Remove(pidPath)
		return 0, nil
	}

	return pid, nil
}

// Launcher opens entries through the operating system. The zero value is
// ready to use.
type Launcher struct{}

// OpenFile opens path with the application associated to it.
func (Launcher) OpenFile(path string) error {
	name, args := openCommand(path)
	return startDetached(path, name, args...)
}

// OpenURL opens url in browserPath, or with the system URL handler when
// browserPath is empty. The browser is invoked directly because the system
// handler refuses addresses typed without a scheme on some platforms.
func (Launcher) OpenURL(url, browserPath string) error {
	if browserPath != "" {
		return startDetached(url, browserPath, url)
	}
	name, args := openCommand(url)
	return startDetached(url, name, args...)
}

// SetLaunchAtStartup registers or unregisters the running executable to
// start with the user session. Unregistering an absent entry succeeds.
func (Launcher) SetLaunchAtStartup(enabled bool) error {
	if !enabled {
		return removeStartupEntry()
	}
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return writeStartupEntry(executable)
}

// startDetached starts the command without waiting for it. The child is
// reaped in the background so it never lingers as a zombie.
func startDetached(target, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return apperrors.LaunchFailed(target, err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
