//go:build !windows

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
)

// IsProcessRunning checks if a process with the given PID is running on Unix systems.
// Uses signal(0) which returns an error if the process doesn't exist or we don't have permission.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, Signal(0) checks if the process exists without actually sending a signal
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// sysProcAttr returns platform-specific process attributes for launched entries.
// On Unix, sets Setpgid to detach the child from the parent's process group,
// so closing omf does not take opened applications down with it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// openCommand returns the system opener invocation for a file or URL.
func openCommand(target string) (string, []string) {
	if runtime.GOOS == "darwin" {
		return "open", []string{target}
	}
	return "xdg-open", []string{target}
}

// DefaultBrowserPath returns $BROWSER when set. An empty result means URLs
// go through the system opener, which already honours the desktop default.
func DefaultBrowserPath() (string, error) {
	return os.Getenv("BROWSER"), nil
}

const (
	desktopFileName = "OpenMyFiles.desktop"
	launchAgentName = "io.github.ioan45.openmyfiles.plist"
)

func startupEntryPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "LaunchAgents", launchAgentName), nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "autostart", desktopFileName), nil
}

func writeStartupEntry(executable string) error {
	path, err := startupEntryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}

	var content string
	if runtime.GOOS == "darwin" {
		content = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>io.github.ioan45.openmyfiles</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
</dict>
</plist>
`, executable)
	} else {
		content = fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=Open My Files
Exec=%q
Terminal=true
X-GNOME-Autostart-enabled=true
`, executable)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write startup entry: %w", err)
	}
	return nil
}

func removeStartupEntry() error {
	path, err := startupEntryPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove startup entry: %w", err)
	}
	return nil
}
