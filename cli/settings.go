package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ioan45/open-my-files/app"
	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/store"
)

var settingsFormat formatFlags

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show user settings",
	Long: `Show the user settings stored next to the groups:

  auto_save           save unsaved edits periodically while omf runs
  start_with_windows  start omf with the user session`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <true|false>",
	Short: "Change a user setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	settingsFormat.register(settingsCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	return withDocument(cmd, func(a *app.App) error {
		settings := a.Settings()
		if settings == nil {
			settings = store.Settings{}
		}
		for _, key := range []string{store.SettingAutoSave, store.SettingStartWithWindows} {
			if _, ok := settings[key]; !ok {
				settings[key] = false
			}
		}

		out := cmd.OutOrStdout()
		if written, err := settingsFormat.write(out, map[string]bool(settings)); written {
			return err
		}

		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(out, "%s = %t\n", key, settings[key])
		}
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseBool(args[1])
	if err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("invalid boolean %q", args[1]))
	}
	return runMutation(cmd, func(a *app.App) error {
		return a.SetSetting(args[0], value)
	})
}
