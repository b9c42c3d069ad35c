package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/appshelf/internal/locale"
)

const appName = "appshelf"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Display DisplayConfig `mapstructure:"display"`
	Native  NativeConfig  `mapstructure:"native"`
	Status  StatusConfig  `mapstructure:"status"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds store server endpoints
type ServerConfig struct {
	MetadataURL  string        `mapstructure:"metadata_url"`  // Descriptive metadata server
	OperationURL string        `mapstructure:"operation_url"` // Popularity stats server
	MediaPath    string        `mapstructure:"media_path"`    // Image path on the metadata server
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DisplayConfig holds device properties used for localization and artwork
type DisplayConfig struct {
	Locale     string  `mapstructure:"locale"`      // e.g. "zh_CN"
	PixelRatio float64 `mapstructure:"pixel_ratio"` // 1 for standard density displays
}

// NativeConfig selects whether the catalog talks to a local store daemon
type NativeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Socket  string `mapstructure:"socket"`
}

// StatusConfig holds install status polling settings
type StatusConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DaemonConfig holds store daemon settings
type DaemonConfig struct {
	Socket   string         `mapstructure:"socket"`
	DBPath   string         `mapstructure:"db_path"` // Empty keeps state in memory only
	Commands CommandsConfig `mapstructure:"commands"`
	Schemes  []string       `mapstructure:"schemes"` // Installable package URI schemes
}

// CommandsConfig holds package manager command templates.
// {package} and {app} are replaced before running.
type CommandsConfig struct {
	Install string `mapstructure:"install"`
	Remove  string `mapstructure:"remove"`
	Open    string `mapstructure:"open"`
	Show    string `mapstructure:"show"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // Empty logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MediaPath: "/images",
			Timeout:   30 * time.Second,
		},
		Display: DisplayConfig{
			Locale:     defaultLocale(),
			PixelRatio: 1,
		},
		Native: NativeConfig{
			Enabled: false,
			Socket:  defaultSocketPath(),
		},
		Status: StatusConfig{
			PollInterval: time.Second,
		},
		Daemon: DaemonConfig{
			Socket: defaultSocketPath(),
			DBPath: defaultDataPath(),
			Commands: CommandsConfig{
				Install: "apt-get install -y {package}",
				Remove:  "apt-get remove -y {package}",
				Open:    "gtk-launch {package}",
				Show:    "apt-cache show {package}",
			},
			Schemes: []string{"deb"},
		},
		Logging: LoggingConfig{
			File:  "",
			Level: "INFO",
		},
	}
}

// defaultLocale derives the catalog locale from the environment
func defaultLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if l := locale.Normalize(os.Getenv(key)); l != "" {
			return l
		}
	}
	return locale.English
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// defaultDataPath returns the default daemon state directory
func defaultDataPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

// defaultSocketPath returns the default daemon socket path
func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "appshelfd.sock")
	}
	return filepath.Join(defaultDataPath(), "appshelfd.sock")
}

// DefaultConfigFile returns the path LoadConfig reads first
func DefaultConfigFile() string {
	return filepath.Join(defaultConfigPath(), "config.yaml")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable overrides, e.g. APPSHELF_SERVER_METADATA_URL
	v.SetEnvPrefix("APPSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key so environment overrides apply to it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.metadata_url", cfg.Server.MetadataURL)
	v.SetDefault("server.operation_url", cfg.Server.OperationURL)
	v.SetDefault("server.media_path", cfg.Server.MediaPath)
	v.SetDefault("server.timeout", cfg.Server.Timeout)

	v.SetDefault("display.locale", cfg.Display.Locale)
	v.SetDefault("display.pixel_ratio", cfg.Display.PixelRatio)

	v.SetDefault("native.enabled", cfg.Native.Enabled)
	v.SetDefault("native.socket", cfg.Native.Socket)

	v.SetDefault("status.poll_interval", cfg.Status.PollInterval)

	v.SetDefault("daemon.socket", cfg.Daemon.Socket)
	v.SetDefault("daemon.db_path", cfg.Daemon.DBPath)
	v.SetDefault("daemon.commands.install", cfg.Daemon.Commands.Install)
	v.SetDefault("daemon.commands.remove", cfg.Daemon.Commands.Remove)
	v.SetDefault("daemon.commands.open", cfg.Daemon.Commands.Open)
	v.SetDefault("daemon.commands.show", cfg.Daemon.Commands.Show)
	v.SetDefault("daemon.schemes", cfg.Daemon.Schemes)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(defaultConfigPath())
	v.AddConfigPath(".")

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}
	return decode(v)
}

// LoadConfigFrom loads configuration from an explicit file and environment
func LoadConfigFrom(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if l := locale.Normalize(cfg.Display.Locale); l != "" {
		cfg.Display.Locale = l
	}
	if cfg.Display.PixelRatio <= 0 {
		cfg.Display.PixelRatio = 1
	}
	return cfg, nil
}

// SaveConfig writes the configuration as YAML to path
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server.metadata_url", cfg.Server.MetadataURL)
	v.Set("server.operation_url", cfg.Server.OperationURL)
	v.Set("server.media_path", cfg.Server.MediaPath)
	v.Set("server.timeout", cfg.Server.Timeout.String())

	v.Set("display.locale", cfg.Display.Locale)
	v.Set("display.pixel_ratio", cfg.Display.PixelRatio)

	v.Set("native.enabled", cfg.Native.Enabled)
	v.Set("native.socket", cfg.Native.Socket)

	v.Set("status.poll_interval", cfg.Status.PollInterval.String())

	v.Set("daemon.socket", cfg.Daemon.Socket)
	v.Set("daemon.db_path", cfg.Daemon.DBPath)
	v.Set("daemon.commands.install", cfg.Daemon.Commands.Install)
	v.Set("daemon.commands.remove", cfg.Daemon.Commands.Remove)
	v.Set("daemon.commands.open", cfg.Daemon.Commands.Open)
	v.Set("daemon.commands.show", cfg.Daemon.Commands.Show)
	v.Set("daemon.schemes", cfg.Daemon.Schemes)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if both store servers are set
func (c *Config) IsConfigured() bool {
	return c.Server.MetadataURL != "" && c.Server.OperationURL != ""
}

// MediaBase returns the URL images are resolved against
func (c *ServerConfig) MediaBase() string {
	return strings.TrimRight(c.MetadataURL, "/") + "/" + strings.Trim(c.MediaPath, "/")
}
