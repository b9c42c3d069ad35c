package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/appshelf/internal/tui"
)

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("browse needs an interactive terminal; use `appshelf list` instead")
			}

			filter, err := opts.filter()
			if err != nil {
				return err
			}
			if !ctx.catalog.Native() {
				filter.FilterPackage = false
			}

			// A nil *StatusTracker must not become a non-nil interface
			var tracker tui.StatusSource
			if ctx.tracker != nil {
				tracker = ctx.tracker
			}
			model := tui.NewModel(ctx.catalog, tracker, filter)

			p := tea.NewProgram(model, tea.WithAltScreen())
			ctx.logger.Info("starting TUI")
			final, err := p.Run()
			if fm, ok := final.(tui.Model); ok {
				fm.Close()
			}
			if err != nil {
				ctx.logger.Error("TUI error", "error", err)
				return fmt.Errorf("TUI error: %w", err)
			}
			ctx.logger.Info("shutting down")
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}
