package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmcdole/appshelf/internal/domain"
)

func newOperationCommands(ctx *commandContext) []*cobra.Command {
	install := &cobra.Command{
		Use:   "install <name>...",
		Short: "Queue installation of one or more entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := resolveEntries(cmd.Context(), ctx, args)
			if err != nil {
				return err
			}
			if err := ctx.catalog.Install(cmd.Context(), items...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installing %d app(s); follow with `appshelf watch <name>`\n", len(items))
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <name>...",
		Short: "Queue removal of one or more entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := resolveEntries(cmd.Context(), ctx, args)
			if err != nil {
				return err
			}
			if err := ctx.catalog.Remove(cmd.Context(), items...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removing %d app(s)\n", len(items))
			return nil
		},
	}

	open := &cobra.Command{
		Use:   "open <name>",
		Short: "Launch an installed entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := resolveEntries(cmd.Context(), ctx, args)
			if err != nil {
				return err
			}
			return ctx.catalog.Open(cmd.Context(), items[0])
		},
	}

	return []*cobra.Command{install, remove, open}
}

// resolveEntries fetches every named entry, failing on the first unknown name
func resolveEntries(cmdCtx context.Context, ctx *commandContext, names []string) ([]domain.Software, error) {
	if err := ctx.requireNative(); err != nil {
		return nil, err
	}
	items := make([]domain.Software, 0, len(names))
	for _, name := range names {
		sw, err := ctx.catalog.Get(cmdCtx, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		items = append(items, sw)
	}
	return items, nil
}
