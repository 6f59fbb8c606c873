package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ioan45/open-my-files/app"
)

var (
	entryWeb     bool
	entryDetails string
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Add, delete or annotate the entries of a group",
}

var entryAddCmd = &cobra.Command{
	Use:   "add <group-id> <path-or-url>...",
	Short: "Add files, programs or web pages to a group",
	Long: `Add entries to the end of a group.

Paths are stored as absolute paths. Files whose extension is listed in
entries.executable_extensions are added as executables, anything else as
other files. With --web every argument is added as a web page.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEntryAdd,
}

var entryRmCmd = &cobra.Command{
	Use:   "rm <group-id> <entry-id>...",
	Short: "Delete entries from a group",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runEntryRm,
}

var entryDetailsCmd = &cobra.Command{
	Use:   "details <group-id> <entry-id>...",
	Short: "Set the details text of entries",
	Long: `Set the free-form details text of one or more entries. An empty
--text clears it.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEntryDetails,
}

func init() {
	entryAddCmd.Flags().BoolVar(&entryWeb, "web", false, "Add the arguments as web pages")
	entryDetailsCmd.Flags().StringVar(&entryDetails, "text", "", "Details text")
	_ = entryDetailsCmd.MarkFlagRequired("text")

	entryCmd.AddCommand(entryAddCmd, entryRmCmd, entryDetailsCmd)
	rootCmd.AddCommand(entryCmd)
}

func runEntryAdd(cmd *cobra.Command, args []string) error {
	groupID, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	targets := args[1:]

	return runMutation(cmd, func(a *app.App) error {
		added := 0
		if entryWeb {
			for _, url := range targets {
				ok, err := a.AddWebEntry(groupID, url)
				if err != nil {
					return err
				}
				if ok {
					added++
				}
			}
		} else {
			paths := make([]string, 0, len(targets))
			for _, p := range targets {
				abs, err := filepath.Abs(p)
				if err != nil {
					return fmt.Errorf("failed to resolve %s: %w", p, err)
				}
				paths = append(paths, abs)
			}
			added, err = a.AddFileEntries(groupID, paths)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d entr%s to group %d\n", added, plural(added, "y", "ies"), groupID)
		return nil
	})
}

func runEntryRm(cmd *cobra.Command, args []string) error {
	groupID, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	ids, err := parseIDs("entry", args[1:])
	if err != nil {
		return err
	}
	return runMutation(cmd, func(a *app.App) error {
		return a.DeleteEntries(groupID, ids)
	})
}

func runEntryDetails(cmd *cobra.Command, args []string) error {
	groupID, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	ids, err := parseIDs("entry", args[1:])
	if err != nil {
		return err
	}
	text := entryDetails
	return runMutation(cmd, func(a *app.App) error {
		return a.EditDetails(groupID, ids, &text)
	})
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
