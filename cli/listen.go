package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ioan45/open-my-files/app"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Attach a group to a directory or detach it",
}

var listenStartCmd = &cobra.Command{
	Use:   "start <group-id> <dir>",
	Short: "Mirror a directory into a group",
	Long: `Attach a group to a directory. While omf runs (the terminal UI or
"omf watch"), files created in the directory are appended to the group,
deleted files are removed and moved files follow their new path.

The directory's current contents are not imported.`,
	Args: cobra.ExactArgs(2),
	RunE: runListenStart,
}

var listenStopCmd = &cobra.Command{
	Use:   "stop <group-id>",
	Short: "Detach a group from its directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runListenStop,
}

func init() {
	listenCmd.AddCommand(listenStartCmd, listenStopCmd)
	rootCmd.AddCommand(listenCmd)
}

func runListenStart(cmd *cobra.Command, args []string) error {
	groupID, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	return runMutation(cmd, func(a *app.App) error {
		if err := a.StartListening(groupID, args[1]); err != nil {
			return err
		}
		g, err := a.Group(groupID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Group %d now listens to %s\n", groupID, g.ListeningDir)
		return nil
	})
}

func runListenStop(cmd *cobra.Command, args []string) error {
	groupID, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	return runMutation(cmd, func(a *app.App) error {
		return a.StopListening(groupID)
	})
}
