package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ioan45/open-my-files/app"
)

var watchSaveOnExit bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror listening directories into their groups without the UI",
	Long: `Run omf headless: every group listening to a directory keeps
receiving the files created, deleted or moved there until interrupted.

Edits are saved periodically when the auto_save setting is on, and once more
on shutdown unless --save-on-exit=false. Logs go to stderr.

Stop with Ctrl+C or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSaveOnExit, "save-on-exit", true, "Save unsaved edits on shutdown")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, sessionHeadless)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	watched := s.app.Watched()
	if len(watched) == 0 {
		fmt.Fprintln(out, "No group is listening to a directory.")
	}
	dirs := make([]string, 0, len(watched))
	for dir := range watched {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		fmt.Fprintf(out, "Listening to %s (%d group(s))\n", dir, watched[dir])
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to stop)")
	return runWithAutoSave(ctx, s.app, func(ctx context.Context) error {
		return runWatchLoop(ctx, s.app, out, sigChan, watchSaveOnExit)
	})
}

// runWatchLoop reports entry changes until a signal arrives or ctx ends,
// then saves pending edits when saveOnExit is set.
func runWatchLoop(ctx context.Context, a *app.App, out io.Writer, stop <-chan os.Signal, saveOnExit bool) error {
	events, cancel := a.Subscribe()
	defer cancel()

	// saveAndExit stops the watches, then persists pending edits. Nothing
	// can change the document once they are stopped.
	saveAndExit := func() error {
		a.StopWatching()
		if !saveOnExit || !a.Dirty() {
			return nil
		}
		if err := a.Flush(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("failed to save on shutdown: %w", err)
		}
		fmt.Fprintln(out, a.Status())
		return nil
	}

	for {
		select {
		case <-stop:
			fmt.Fprintln(out, "\nShutting down...")
			return saveAndExit()

		case <-ctx.Done():
			return saveAndExit()

		case e, ok := <-events:
			if !ok {
				return nil
			}
			switch e.Kind {
			case app.EventEntriesChanged:
				g, err := a.Group(e.GroupID)
				if err != nil {
					continue
				}
				fmt.Fprintf(out, "Group %d %q: %d entr%s\n", g.ID, g.Name, len(g.Entries), plural(len(g.Entries), "y", "ies"))
			case app.EventStatus:
				fmt.Fprintln(out, e.Message)
			}
		}
	}
}

// runWithAutoSave runs fn next to the auto-saver. The auto-saver stops
// when fn returns.
func runWithAutoSave(ctx context.Context, a *app.App, fn func(ctx context.Context) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	loopCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return fn(loopCtx)
	})
	g.Go(func() error {
		return app.NewAutoSaver(a, 0).Run(loopCtx)
	})
	return g.Wait()
}
