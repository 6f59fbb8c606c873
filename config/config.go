package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ioan45/open-my-files/platform"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName   = "config.yaml"
	GroupsFileName   = "groups.json"
	SettingsFileName = "settings.json"
	PIDFileName      = "omf.pid"
)

type Config struct {
	Version  int            `yaml:"version"`
	DataDir  string         `yaml:"data_dir,omitempty"`
	AutoSave AutoSaveConfig `yaml:"auto_save"`
	Launch   LaunchConfig   `yaml:"launch"`
	Watch    WatchConfig    `yaml:"watch"`
	Entries  EntriesConfig  `yaml:"entries"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AutoSaveConfig controls the periodic save trigger. Whether auto-save is
// enabled at all is a user setting stored with the document, not here.
type AutoSaveConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type LaunchConfig struct {
	// FirstTabDelayMs is the pause between the first and the second web page
	// of a group, giving a cold browser time to start.
	FirstTabDelayMs int    `yaml:"first_tab_delay_ms"`
	BrowserPath     string `yaml:"browser_path,omitempty"` // overrides the detected default browser
}

type WatchConfig struct {
	PairingWindowMs int      `yaml:"pairing_window_ms"` // how long a rename waits for its create
	Ignore          []string `yaml:"ignore"`            // gitignore-style file name patterns
}

type EntriesConfig struct {
	ExecutableExtensions []string `yaml:"executable_extensions"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	File  bool   `yaml:"file"`  // write to the log directory instead of stderr
	Dir   string `yaml:"dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		AutoSave: AutoSaveConfig{
			IntervalSeconds: 60,
		},
		Launch: LaunchConfig{
			FirstTabDelayMs: 1500,
		},
		Watch: WatchConfig{
			PairingWindowMs: 100,
			Ignore: []string{
				"*.tmp",
				"*.crdownload",
				"*.part",
				"~$*",
			},
		},
		Entries: EntriesConfig{
			ExecutableExtensions: []string{".exe"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  true,
		},
	}
}

// DefaultConfigPath returns the config file location inside the default
// per-user data directory.
func DefaultConfigPath() (string, error) {
	dataDir, err := platform.DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, ConfigFileName), nil
}

// Load reads the config at configPath. A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return cfg, cfg.resolveDataDir(configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for missing values
	cfg.applyDefaults()

	if err := cfg.resolveDataDir(configPath); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration values with sensible defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == 0 {
		c.Version = defaults.Version
	}

	if c.AutoSave.IntervalSeconds <= 0 {
		c.AutoSave.IntervalSeconds = defaults.AutoSave.IntervalSeconds
	}

	if c.Launch.FirstTabDelayMs < 0 {
		c.Launch.FirstTabDelayMs = 0
	} else if c.Launch.FirstTabDelayMs == 0 {
		c.Launch.FirstTabDelayMs = defaults.Launch.FirstTabDelayMs
	}

	if c.Watch.PairingWindowMs <= 0 {
		c.Watch.PairingWindowMs = defaults.Watch.PairingWindowMs
	}
	if c.Watch.Ignore == nil {
		c.Watch.Ignore = defaults.Watch.Ignore
	}

	if len(c.Entries.ExecutableExtensions) == 0 {
		c.Entries.ExecutableExtensions = defaults.Entries.ExecutableExtensions
	}
	for i, ext := range c.Entries.ExecutableExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Entries.ExecutableExtensions[i] = ext
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// resolveDataDir falls back to the directory holding the config file when
// data_dir is unset, and expands a leading ~.
func (c *Config) resolveDataDir(configPath string) error {
	if c.DataDir == "" {
		c.DataDir = filepath.Dir(configPath)
		return nil
	}
	dir, err := expandTilde(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir
	return nil
}

func (c *Config) Save(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) GroupsPath() string {
	return filepath.Join(c.DataDir, GroupsFileName)
}

func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, SettingsFileName)
}

func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir, PIDFileName)
}

func (c *Config) AutoSaveInterval() time.Duration {
	return time.Duration(c.AutoSave.IntervalSeconds) * time.Second
}

func (c *Config) FirstTabDelay() time.Duration {
	return time.Duration(c.Launch.FirstTabDelayMs) * time.Millisecond
}

func (c *Config) PairingWindow() time.Duration {
	return time.Duration(c.Watch.PairingWindowMs) * time.Millisecond
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// LogDir returns logging.dir, or the platform log directory when unset.
func (c *Config) LogDir() (string, error) {
	if c.Logging.Dir != "" {
		return expandTilde(c.Logging.Dir)
	}
	return platform.DefaultLogDir()
}
