// Package logging provides component loggers backed by a single logrus
// logger that Setup points at a dated log file or stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LevelEnvVar overrides the configured level when set.
const LevelEnvVar = "OMF_LOG_LEVEL"

var (
	root      = newRoot()
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&TextFormatter{})
	return l
}

// Options configures the shared logger.
type Options struct {
	Level string
	// Dir receives omf-YYYY-MM-DD.log. Empty means log to Stderr.
	Dir    string
	Stderr io.Writer
}

// NewLogger returns the logger for a component. Loggers are cached per
// component and follow later Setup calls.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}
	entry := root.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Setup configures level, formatter and output of every component logger.
// The returned closer releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	levelStr := "info"
	if env := os.Getenv(LevelEnvVar); env != "" {
		levelStr = env
	} else if opts.Level != "" {
		levelStr = opts.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	root.SetLevel(level)

	if opts.Dir == "" {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		root.SetFormatter(&TextFormatter{Colorize: isTerminal(out)})
		root.SetOutput(out)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", opts.Dir, err)
	}
	path := FilePath(opts.Dir, time.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	root.SetFormatter(&TextFormatter{})
	root.SetOutput(file)
	return file, nil
}

// FilePath returns the dated log file inside dir.
func FilePath(dir string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("omf-%s.log", day.Format("2006-01-02")))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

// TextFormatter renders "2006-01-02 15:04:05 [LEVEL] [component] message k=v".
type TextFormatter struct {
	Colorize bool
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" ")

	levelStr := entry.Level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	b.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(levelStr)))

	if component, ok := entry.Data["component"]; ok {
		componentStr := fmt.Sprintf("%v", component)
		if f.Colorize {
			componentStr = componentStyle.Render(componentStr)
		}
		b.WriteString(fmt.Sprintf(" [%s]", componentStr))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	for key, value := range entry.Data {
		if key != "component" {
			b.WriteString(fmt.Sprintf(" %s=%v", key, value))
		}
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}
