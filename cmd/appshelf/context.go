package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mmcdole/appshelf/internal/adapter"
	"github.com/mmcdole/appshelf/internal/bridge"
	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/images"
	"github.com/mmcdole/appshelf/internal/locale"
	"github.com/mmcdole/appshelf/internal/metaserver"
	"github.com/mmcdole/appshelf/internal/service"
)

var errNotConfigured = errors.New("store servers are not configured; run `appshelf config init`")

// commandContext builds the services shared by every command once
type commandContext struct {
	configFlag *string

	once    sync.Once
	err     error
	config  *adapter.Config
	logger  *slog.Logger
	catalog *service.CatalogService
	meta    *metaserver.Client
	bridge  *bridge.Client          // nil without a store daemon
	tracker *service.StatusTracker // nil without a store daemon
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) loadConfig() (*adapter.Config, error) {
	path := ""
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	if path != "" {
		return adapter.LoadConfigFrom(path)
	}
	return adapter.LoadConfig()
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		return strings.TrimSpace(*c.configFlag)
	}
	return adapter.DefaultConfigFile()
}

func (c *commandContext) ensure() (*commandContext, error) {
	c.once.Do(func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.err = fmt.Errorf("failed to load config: %w", err)
			return
		}

		logger, err := adapter.SetupLogger(&cfg.Logging)
		if err != nil {
			// Fall back to null logger if file logging fails
			logger = adapter.NullLogger()
		}
		slog.SetDefault(logger)
		logger.Debug("starting appshelf", "version", Version)

		if !cfg.IsConfigured() {
			c.err = errNotConfigured
			return
		}

		resolver := locale.New(cfg.Display.Locale)
		selector := images.New(cfg.Server.MediaBase(), cfg.Display.PixelRatio, resolver)
		meta := metaserver.NewClient(metaserver.Config{
			MetadataURL:  cfg.Server.MetadataURL,
			OperationURL: cfg.Server.OperationURL,
			Timeout:      cfg.Server.Timeout,
		}, metaserver.NewNormalizer(resolver, selector), logger)

		c.config = cfg
		c.logger = logger
		c.meta = meta
		if cfg.Native.Enabled {
			c.bridge = bridge.NewClient(cfg.Native.Socket, logger)
			c.catalog = service.NewCatalogService(meta, meta, c.bridge, logger)
			c.tracker = service.NewStatusTracker(c.bridge, c.bridge,
				service.WithInterval(cfg.Status.PollInterval),
				service.WithLogger(logger))
		} else {
			c.catalog = service.NewCatalogService(meta, meta, nil, logger)
		}
	})
	return c, c.err
}

func (c *commandContext) close() {
	if c.tracker != nil {
		c.tracker.Close()
	}
	if c.bridge != nil {
		_ = c.bridge.Close()
	}
}

func (c *commandContext) requireNative() error {
	if c.bridge == nil {
		return fmt.Errorf("%w: set native.enabled in %s", domain.ErrNativeUnavailable, c.configPath())
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
