//go:build windows

package platform

import (
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	detachedProcess = 0x00000008

	runKeyPath       = `Software\Microsoft\Windows\CurrentVersion\Run`
	htmlUserChoice   = `Software\Microsoft\Windows\CurrentVersion\Explorer\FileExts\.html\UserChoice`
	startupValueName = AppName
)

// IsProcessRunning reports whether a process with the given PID exists.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	_ = windows.CloseHandle(h)
	return true
}

// sysProcAttr detaches launched entries from the omf console.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: detachedProcess,
	}
}

// openCommand returns the shell invocation equivalent to double-clicking
// the file or URL in Explorer.
func openCommand(target string) (string, []string) {
	return "rundll32", []string{"url.dll,FileProtocolHandler", target}
}

// DefaultBrowserPath returns the executable of the browser registered for
// .html files in the user's Explorer settings.
func DefaultBrowserPath() (string, error) {
	choiceKey, err := registry.OpenKey(registry.CURRENT_USER, htmlUserChoice, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("failed to open browser choice key: %w", err)
	}
	defer choiceKey.Close()

	progID, _, err := choiceKey.GetStringValue("ProgId")
	if err != nil {
		return "", fmt.Errorf("failed to read browser ProgId: %w", err)
	}

	commandKey, err := registry.OpenKey(registry.CLASSES_ROOT, progID+`\shell\open\command`, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("failed to open browser command key: %w", err)
	}
	defer commandKey.Close()

	command, _, err := commandKey.GetStringValue("")
	if err != nil {
		return "", fmt.Errorf("failed to read browser command: %w", err)
	}

	// The command looks like: "C:\...\firefox.exe" -osint -url "%1"
	parts := strings.Split(command, `"`)
	if len(parts) < 2 {
		return "", fmt.Errorf("unexpected browser command: %s", command)
	}
	return parts[1], nil
}

func writeStartupEntry(executable string) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open run key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(startupValueName, executable); err != nil {
		return fmt.Errorf("failed to write startup entry: %w", err)
	}
	return nil
}

func removeStartupEntry() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return nil
		}
		return fmt.Errorf("failed to open run key: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(startupValueName); err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("failed to remove startup entry: %w", err)
	}
	return nil
}
