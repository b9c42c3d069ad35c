package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmcdole/appshelf/internal/adapter"
	"github.com/mmcdole/appshelf/internal/locale"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage the appshelf configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	var (
		metadataURL  string
		operationURL string
		localeFlag   string
		native       bool
		overwrite    bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath()
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("config file %s already exists (use --overwrite to replace)", path)
			}

			cfg := adapter.DefaultConfig()
			cfg.Server.MetadataURL = metadataURL
			cfg.Server.OperationURL = operationURL
			if localeFlag != "" {
				cfg.Display.Locale = localeFlag
			}
			cfg.Native.Enabled = native

			if err := adapter.SaveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			if !cfg.IsConfigured() {
				fmt.Fprintln(cmd.OutOrStdout(), "Set server.metadata_url and server.operation_url before listing apps")
			}
			return nil
		},
	}
	initCmd.Flags().StringVar(&metadataURL, "metadata-url", "", "Metadata server URL")
	initCmd.Flags().StringVar(&operationURL, "operation-url", "", "Operation (stats) server URL")
	initCmd.Flags().StringVar(&localeFlag, "locale", "", "Catalog locale (defaults to $LANG)")
	initCmd.Flags().BoolVar(&native, "native", false, "Talk to a local appshelfd")
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), ctx.configPath())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	configCmd.AddCommand(initCmd, pathCmd, showCmd)
	return configCmd
}

func printConfig(out io.Writer, cfg *adapter.Config) {
	resolver := locale.New(cfg.Display.Locale)
	var fallback []string
	for _, l := range resolver.Chain() {
		if !slices.Contains(fallback, l) {
			fallback = append(fallback, l)
		}
	}

	line := func(label, value string) {
		fmt.Fprintf(out, "%-14s %s\n", label+":", value)
	}
	line("Metadata", cfg.Server.MetadataURL)
	line("Operation", cfg.Server.OperationURL)
	line("Media", cfg.Server.MediaBase())
	line("Locale", resolver.Target())
	line("Fallback", strings.Join(fallback, " > "))
	line("Pixel ratio", fmt.Sprintf("%g", cfg.Display.PixelRatio))
	line("Native", yesNo(cfg.Native.Enabled))
	if cfg.Native.Enabled {
		line("Socket", cfg.Native.Socket)
		line("Poll interval", cfg.Status.PollInterval.String())
	}
	line("Configured", yesNo(cfg.IsConfigured()))
}
