package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ioan45/open-my-files/logging"
	"github.com/ioan45/open-my-files/platform"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where omf keeps its data and whether it is running",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Stale PID files are cleaned up by GetRunningPID.
	pid, err := platform.GetRunningPID(cfg.PIDPath())
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}
	if pid == 0 {
		fmt.Fprintln(out, "Status: not running")
	} else {
		fmt.Fprintln(out, "Status: running")
		fmt.Fprintf(out, "PID: %d\n", pid)
	}

	fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
	fmt.Fprintf(out, "Groups file: %s\n", cfg.GroupsPath())
	fmt.Fprintf(out, "Settings file: %s\n", cfg.SettingsPath())
	if cfg.Logging.File {
		logDir, err := cfg.LogDir()
		if err != nil {
			return fmt.Errorf("failed to resolve log directory: %w", err)
		}
		fmt.Fprintf(out, "Log directory: %s\n", logDir)
	}
	fmt.Fprintf(out, "Log level: %s (override with %s)\n", cfg.Logging.Level, logging.LevelEnvVar)
	return nil
}
