package watcher

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional file inside a watched directory with extra
// gitignore-style patterns for that directory only.
const IgnoreFileName = ".omfignore"

// IgnoreMatcher decides which file names of a watched directory produce no
// events. Patterns use gitignore syntax and are matched against the base
// name. A nil matcher ignores nothing.
type IgnoreMatcher struct {
	matcher *ignore.GitIgnore
}

// NewIgnoreMatcher compiles patterns. When dir contains an IgnoreFileName
// its lines are appended.
func NewIgnoreMatcher(dir string, patterns []string) (*IgnoreMatcher, error) {
	lines := append([]string(nil), patterns...)
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, IgnoreFileName))
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			lines = append(lines, strings.Split(string(data), "\n")...)
		}
	}

	// go-gitignore leaves '$' unescaped in the regexp it builds; Office lock
	// files (~$name) need it literal.
	for i, line := range lines {
		lines[i] = strings.ReplaceAll(line, "$", `\$`)
	}
	return &IgnoreMatcher{matcher: ignore.CompileIgnoreLines(lines...)}, nil
}

// ShouldIgnore reports whether events for path are dropped.
func (m *IgnoreMatcher) ShouldIgnore(path string) bool {
	name := filepath.Base(path)
	if name == IgnoreFileName {
		return true
	}
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.MatchesPath(name)
}
