package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/ioan45/open-my-files/errors"
	"github.com/ioan45/open-my-files/ui"
)

var uiRunner = ui.Run

func runUI(cmd *cobra.Command, args []string) error {
	if !isInteractiveTerminal() {
		return apperrors.InvalidInput("the terminal UI needs an interactive terminal; see \"omf --help\" for scripting commands or run \"omf watch\"")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, sessionInteractive)
	if err != nil {
		return err
	}
	defer s.Close()

	return runWithAutoSave(ctx, s.app, func(ctx context.Context) error {
		return uiRunner(ctx, s.app)
	})
}
