package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ioan45/open-my-files/app"
	"github.com/ioan45/open-my-files/config"
	"github.com/ioan45/open-my-files/logging"
	"github.com/ioan45/open-my-files/platform"
)

var log = logging.NewLogger("cli")

var (
	configPath  string
	dataDirFlag string
	logLevel    string
)

var (
	newLauncher = func() app.Launcher { return platform.Launcher{} }
	// detectBrowser is consulted when launch.browser_path is unset.
	detectBrowser         = platform.DefaultBrowserPath
	isInteractiveTerminal = stdioIsTerminal
)

var rootCmd = &cobra.Command{
	Use:   "omf",
	Short: "Open groups of files and web pages in one go",
	Long: `omf keeps named groups of files, programs and web pages and opens a
whole group with one action.

Run without arguments to manage groups in the terminal UI. A group can
listen to a directory: files created, deleted or moved there are mirrored
into the group while omf runs (see "omf watch" for a headless session).

The subcommands below edit the same data for scripting. They refuse to run
while an interactive or headless session holds the data directory.`,
	SilenceUsage: true,
	RunE:         runUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: config.yaml in the data directory)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory holding groups.json and settings.json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func stdioIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// loadConfig resolves the config file from the flags. --data-dir alone
// looks for config.yaml inside that directory.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" && dataDirFlag != "" {
		path = filepath.Join(dataDirFlag, config.ConfigFileName)
	}
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		dir, err := filepath.Abs(dataDirFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		cfg.DataDir = dir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

type sessionMode int

const (
	// sessionReadOnly loads the saved document and takes no lock.
	sessionReadOnly sessionMode = iota
	// sessionOneShot holds the instance lock for a single mutation.
	sessionOneShot
	// sessionInteractive runs the terminal UI; logs must stay off the screen.
	sessionInteractive
	// sessionHeadless runs "omf watch" and logs to stderr.
	sessionHeadless
)

// session bundles an App with the resources that outlive a single call.
type session struct {
	cfg       *config.Config
	app       *app.App
	instance  *platform.Instance
	logCloser io.Closer
}

func openSession(ctx context.Context, mode sessionMode) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCloser, err := setupLogging(cfg, mode)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logCloser: logCloser}

	if mode != sessionReadOnly {
		s.instance, err = platform.AcquireInstance(cfg.PIDPath())
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	s.app = app.New(cfg, newLauncher(), browserPath(cfg))
	if mode == sessionReadOnly {
		err = s.app.Load(ctx)
	} else {
		err = s.app.Start(ctx)
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close stops the App without saving and releases the instance lock.
func (s *session) Close() {
	if s.app != nil {
		s.app.Close()
	}
	if s.instance != nil {
		if err := s.instance.Release(); err != nil {
			log.WithError(err).Warn("Failed to release instance lock")
		}
	}
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
}

func setupLogging(cfg *config.Config, mode sessionMode) (io.Closer, error) {
	opts := logging.Options{Level: cfg.Logging.Level}
	switch {
	case mode == sessionHeadless:
	case cfg.Logging.File:
		dir, err := cfg.LogDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve log directory: %w", err)
		}
		opts.Dir = dir
	case mode == sessionInteractive:
		opts.Stderr = io.Discard
	}
	return logging.Setup(opts)
}

func browserPath(cfg *config.Config) string {
	if cfg.Launch.BrowserPath != "" {
		return cfg.Launch.BrowserPath
	}
	path, err := detectBrowser()
	if err != nil {
		log.WithError(err).Debug("No default browser found, using the system URL handler")
		return ""
	}
	return path
}

// runMutation applies fn in a one-shot session and saves when it changed
// anything.
func runMutation(cmd *cobra.Command, fn func(a *app.App) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, sessionOneShot)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s.app); err != nil {
		return err
	}
	if !s.app.Dirty() {
		return nil
	}
	if _, err := s.app.Save(ctx, false); err != nil {
		return fmt.Errorf("failed to save changes: %w", err)
	}
	return nil
}

// withDocument loads the saved document for a read-only command.
func withDocument(cmd *cobra.Command, fn func(a *app.App) error) error {
	s, err := openSession(cmd.Context(), sessionReadOnly)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s.app)
}
