package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmcdole/appshelf/internal/adapter"
	"github.com/mmcdole/appshelf/internal/bridge"
	"github.com/mmcdole/appshelf/internal/daemon"
	"github.com/mmcdole/appshelf/internal/store"
)

// Version is set at build time
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type daemonOptions struct {
	config string
	socket string
	dbPath string
}

func newRootCommand() *cobra.Command {
	var opts daemonOptions

	cmd := &cobra.Command{
		Use:           "appshelfd",
		Short:         "Local package store daemon for appshelf",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&opts.socket, "socket", "", "Override daemon.socket")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Override daemon.db_path")
	return cmd
}

func loadConfig(opts daemonOptions) (*adapter.Config, error) {
	var (
		cfg *adapter.Config
		err error
	)
	if opts.config != "" {
		cfg, err = adapter.LoadConfigFrom(opts.config)
	} else {
		cfg, err = adapter.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.socket != "" {
		cfg.Daemon.Socket = opts.socket
	}
	if opts.dbPath != "" {
		cfg.Daemon.DBPath = opts.dbPath
	}
	return cfg, nil
}

func run(ctx context.Context, opts daemonOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Daemon.DBPath)
	if err != nil {
		return fmt.Errorf("open package store: %w", err)
	}
	defer st.Close()
	if !st.Persistent() {
		logger.Warn("no daemon.db_path set; package state is kept in memory")
	}

	runner := adapter.NewExecRunner(cfg.Daemon.Commands, logger)
	d, err := daemon.New(daemon.Config{Schemes: cfg.Daemon.Schemes, Version: Version}, st, runner, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	server, err := bridge.NewServer(ctx, cfg.Daemon.Socket, d, logger)
	if err != nil {
		return fmt.Errorf("start bridge server: %w", err)
	}
	defer server.Close()
	server.Serve()

	logger.Info("appshelfd started", "version", Version, "socket", server.Path(), "pid", os.Getpid())
	<-ctx.Done()
	logger.Info("appshelfd shutting down")
	return nil
}
