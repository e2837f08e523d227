package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

const (
	// ConfigName is the base name of the configuration file.
	ConfigName = "elements"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "ELEMENTS"

	// DefaultAddr is the default inspection server address.
	DefaultAddr = ":8080"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "elements"
)

// Config is the complete configuration.
type Config struct {
	// Sources are the declaration document sources: files, directories,
	// or s3://bucket/prefix URIs.
	Sources []string `mapstructure:"sources" json:"sources,omitempty"`

	Platform PlatformConfig `mapstructure:"platform" json:"platform"`
	Ledger   LedgerConfig   `mapstructure:"ledger" json:"ledger"`
	Sheets   SheetsConfig   `mapstructure:"sheets" json:"sheets"`
	Loader   LoaderConfig   `mapstructure:"loader" json:"loader"`
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing" json:"tracing"`
	Watch    WatchConfig    `mapstructure:"watch" json:"watch"`
	Log      LogConfig      `mapstructure:"log" json:"log"`

	configPath string
}

// PlatformConfig configures the native platform.
type PlatformConfig struct {
	// Tags are intrinsic tags known in addition to the defaults.
	Tags []string `mapstructure:"tags" json:"tags,omitempty"`
}

// LedgerConfig configures the wait ledger.
type LedgerConfig struct {
	// Lossy keeps a single definition waiter per name.
	Lossy bool `mapstructure:"lossy" json:"lossy"`
}

// SheetsConfig configures external stylesheet loading.
type SheetsConfig struct {
	// Root resolves relative stylesheet paths.
	Root string `mapstructure:"root" json:"root,omitempty"`

	// CacheTTL is how long fetched stylesheets are cached.
	CacheTTL time.Duration `mapstructure:"cacheTTL" json:"cacheTTL"`
}

// LoaderConfig configures document loading.
type LoaderConfig struct {
	// Concurrency bounds concurrent document fetches.
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`

	// Region is the AWS region for s3:// sources; empty uses the SDK
	// default chain.
	Region string `mapstructure:"region" json:"region,omitempty"`
}

// ServerConfig configures the inspection server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`

	// RateLimit is the sustained rate of mutating requests per second.
	RateLimit float64 `mapstructure:"rateLimit" json:"rateLimit"`

	// Burst is the mutating request burst size.
	Burst int `mapstructure:"burst" json:"burst"`

	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" json:"shutdownTimeout"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Exporter is "stdout" or "none".
	Exporter string `mapstructure:"exporter" json:"exporter"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce delays reloading a changed document.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Sheets: SheetsConfig{
			CacheTTL: 10 * time.Minute,
		},
		Loader: LoaderConfig{
			Concurrency: 8,
		},
		Server: ServerConfig{
			Addr:            DefaultAddr,
			RateLimit:       20,
			Burst:           40,
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			Exporter: "stdout",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// SetDefaults registers the default values on v so that environment
// variables and bound flags are honored for every key.
func SetDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("sources", d.Sources)
	v.SetDefault("platform.tags", d.Platform.Tags)
	v.SetDefault("ledger.lossy", d.Ledger.Lossy)
	v.SetDefault("sheets.root", d.Sheets.Root)
	v.SetDefault("sheets.cacheTTL", d.Sheets.CacheTTL)
	v.SetDefault("loader.concurrency", d.Loader.Concurrency)
	v.SetDefault("loader.region", d.Loader.Region)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rateLimit", d.Server.RateLimit)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the configuration through v. When path is empty the
// working directory is searched for an elements config file; a missing
// file is not an error. Environment variables override file values.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		switch {
		case missing && path == "":
		case missing:
			return nil, elerrors.New("E226").
				WithDetail("No config file at " + path).
				Wrap(err)
		default:
			return nil, elerrors.New("E226").
				WithDetail(fmt.Sprintf("Failed to parse %s", v.ConfigFileUsed())).
				WithSuggestion("Check the file's syntax").
				Wrap(err)
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, elerrors.New("E225").Wrap(err)
	}
	cfg.configPath = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was read from, if any.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file, or "".
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// SheetsRoot returns the directory relative stylesheet paths resolve
// against: Sheets.Root, relative to the config file when it is relative.
func (c *Config) SheetsRoot() string {
	root := c.Sheets.Root
	if root == "" || filepath.IsAbs(root) || c.configPath == "" {
		return root
	}
	return filepath.Join(c.Dir(), root)
}

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"json", "text"}
	exporters  = []string{"stdout", "none"}
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return elerrors.New("E225").WithDetail(detail)
	}
	switch {
	case c.Loader.Concurrency < 1:
		return invalid("loader.concurrency must be at least 1")
	case c.Server.RateLimit <= 0:
		return invalid("server.rateLimit must be positive")
	case c.Server.Burst < 1:
		return invalid("server.burst must be at least 1")
	case c.Sheets.CacheTTL < 0:
		return invalid("sheets.cacheTTL must not be negative")
	case c.Watch.Debounce < 0:
		return invalid("watch.debounce must not be negative")
	case !slices.Contains(logLevels, strings.ToLower(c.Log.Level)):
		return invalid(fmt.Sprintf("log.level %q is not one of %v", c.Log.Level, logLevels))
	case !slices.Contains(logFormats, strings.ToLower(c.Log.Format)):
		return invalid(fmt.Sprintf("log.format %q is not one of %v", c.Log.Format, logFormats))
	case !slices.Contains(exporters, c.Tracing.Exporter):
		return invalid(fmt.Sprintf("tracing.exporter %q is not one of %v", c.Tracing.Exporter, exporters))
	}
	for _, src := range c.Sources {
		if strings.TrimSpace(src) == "" {
			return invalid("sources must not contain empty entries")
		}
	}
	return nil
}
