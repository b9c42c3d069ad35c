package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client and store daemon versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "appshelf %s\n", Version)

			if ctx.bridge == nil {
				fmt.Fprintln(out, "appshelfd: disabled")
				return nil
			}

			statusCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			status, err := ctx.bridge.Status(statusCtx)
			if err != nil {
				fmt.Fprintf(out, "appshelfd: unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "appshelfd %s (pid %d, %d active jobs)\n", status.Version, status.PID, len(status.Jobs))
			return nil
		},
	}
}
