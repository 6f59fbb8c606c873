package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ioan45/open-my-files/app"
	apperrors "github.com/ioan45/open-my-files/errors"
)

var (
	groupsFormat formatFlags
	showFormat   formatFlags
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runGroups,
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Create, delete, open or inspect a group",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an empty group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupAdd,
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <group-id> <name>",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroupRename,
}

var groupRmCmd = &cobra.Command{
	Use:   "rm <group-id>...",
	Short: "Delete groups",
	Long: `Delete one or more groups. Groups listening to a directory stop
listening first. The remaining groups are renumbered.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGroupRm,
}

var groupOpenCmd = &cobra.Command{
	Use:   "open <group-id>",
	Short: "Open every entry of a group",
	Long: `Open every entry of a group in order. Files and programs open with
their associated application, web pages in the default browser. Files that
no longer exist are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runGroupOpen,
}

var groupShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Show the entries of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupShow,
}

func init() {
	groupsFormat.register(groupsCmd)
	showFormat.register(groupShowCmd)

	groupCmd.AddCommand(groupAddCmd, groupRenameCmd, groupRmCmd, groupOpenCmd, groupShowCmd)
	rootCmd.AddCommand(groupsCmd, groupCmd)
}

func runGroups(cmd *cobra.Command, args []string) error {
	return withDocument(cmd, func(a *app.App) error {
		groups := a.Groups()
		out := cmd.OutOrStdout()

		listing := make([]GroupJSON, len(groups))
		for i, g := range groups {
			listing[i] = toGroupJSON(g)
		}
		if written, err := groupsFormat.write(out, listing); written {
			return err
		}

		if len(groups) == 0 {
			fmt.Fprintln(out, "No groups yet. Create one with: omf group add <name>")
			return nil
		}
		rows := make([][]string, len(listing))
		for i, g := range listing {
			rows[i] = []string{strconv.Itoa(g.ID), g.Name, strconv.Itoa(g.Entries), g.ListeningDir}
		}
		return renderTable(out, []string{"ID", "NAME", "ENTRIES", "LISTENING"}, rows)
	})
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	return runMutation(cmd, func(a *app.App) error {
		id, ok := a.CreateGroup(args[0])
		if !ok {
			return apperrors.InvalidInput("group name must not be blank")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created group %d %q\n", id, strings.TrimSpace(args[0]))
		return nil
	})
}

func runGroupRename(cmd *cobra.Command, args []string) error {
	id, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	if strings.TrimSpace(args[1]) == "" {
		return apperrors.InvalidInput("group name must not be blank")
	}
	return runMutation(cmd, func(a *app.App) error {
		return a.RenameGroup(id, args[1])
	})
}

func runGroupRm(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs("group", args)
	if err != nil {
		return err
	}
	return runMutation(cmd, func(a *app.App) error {
		for _, id := range ids {
			if _, err := a.Group(id); err != nil {
				return err
			}
		}
		a.DeleteGroups(ids)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d group(s)\n", len(ids))
		return nil
	})
}

func runGroupOpen(cmd *cobra.Command, args []string) error {
	id, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	return withDocument(cmd, func(a *app.App) error {
		done, err := a.OpenGroup(id)
		if err != nil {
			return err
		}
		select {
		case <-done:
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.Status())
		return nil
	})
}

func runGroupShow(cmd *cobra.Command, args []string) error {
	id, err := parseID("group", args[0])
	if err != nil {
		return err
	}
	return withDocument(cmd, func(a *app.App) error {
		g, err := a.Group(id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		detail := toGroupDetailJSON(g)
		if written, err := showFormat.write(out, detail); written {
			return err
		}

		fmt.Fprintf(out, "Group %d: %s\n", g.ID, g.Name)
		if g.ListeningDir != "" {
			fmt.Fprintf(out, "Listening to: %s\n", g.ListeningDir)
		}
		if len(g.Entries) == 0 {
			fmt.Fprintln(out, "No entries.")
			return nil
		}
		rows := make([][]string, len(detail.Entries))
		for i, e := range detail.Entries {
			rows[i] = []string{strconv.Itoa(e.ID), e.Type, e.Path, e.Details}
		}
		return renderTable(out, []string{"ID", "TYPE", "PATH", "DETAILS"}, rows)
	})
}
