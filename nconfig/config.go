// Package nconfig loads the configuration of the notes service.
package nconfig

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvFileVar names the dotenv file Load reads before consulting the
// environment.  The default is .env in the working directory.
const EnvFileVar = "NOTES_ENV_FILE"

// Config is the root application configuration.
type Config struct {
	// Addr is where the server listens
	Addr string `mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Honeycomb HoneycombConfig `mapstructure:"honeycomb"`
	Client    ClientConfig    `mapstructure:"client"`
}

// StorageConfig picks the notes repository.
type StorageConfig struct {
	// Driver: memory, sqlite, or postgres
	Driver string `mapstructure:"driver"`
	// DSN is a file name for sqlite and a connection string for postgres
	DSN string `mapstructure:"dsn"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// HoneycombConfig configures trace and metric export.  Both are
// no-ops unless APIKey and ServiceName are set.
type HoneycombConfig struct {
	APIKey      string `mapstructure:"api_key"`
	ServiceName string `mapstructure:"service_name"`
	// Endpoint is a host[:port], which gets the standard OTLP paths,
	// or the full URL spans are posted to
	Endpoint string `mapstructure:"endpoint"`
	// MetricsEndpoint is the full URL metrics are posted to.  When
	// empty, metrics go to /v1/metrics on the Endpoint host.
	MetricsEndpoint string        `mapstructure:"metrics_endpoint"`
	BatchDelay      time.Duration `mapstructure:"batch_delay"`
	// MetricInterval is how often metrics are exported
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// Enabled reports whether traces and metrics should be exported.
func (h HoneycombConfig) Enabled() bool {
	return strings.TrimSpace(h.APIKey) != "" && strings.TrimSpace(h.ServiceName) != ""
}

// ClientConfig is used by the client commands.
type ClientConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	ContentType string        `mapstructure:"content_type"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Addr:            ":1337",
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "notes.db",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/notes.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Honeycomb: HoneycombConfig{
			Endpoint:       "api.honeycomb.io",
			BatchDelay:     time.Second,
			MetricInterval: 5 * time.Second,
		},
		Client: ClientConfig{
			BaseURL:     "http://localhost:1337",
			ContentType: "application/json",
			Timeout:     30 * time.Second,
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix NOTES and `.`/`-` are replaced with `_`.
// Example: NOTES_LOG_LEVEL=debug.  The Honeycomb settings are also read
// from HONEYCOMB_API_KEY and HONEYCOMB_SERVICE_NAME.  Variables in a
// dotenv file (see EnvFileVar) are added to the environment first;
// they never replace variables that are already set.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("max_body_bytes", cfg.MaxBodyBytes)
	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("honeycomb.api_key", cfg.Honeycomb.APIKey)
	v.SetDefault("honeycomb.service_name", cfg.Honeycomb.ServiceName)
	v.SetDefault("honeycomb.endpoint", cfg.Honeycomb.Endpoint)
	v.SetDefault("honeycomb.metrics_endpoint", cfg.Honeycomb.MetricsEndpoint)
	v.SetDefault("honeycomb.batch_delay", cfg.Honeycomb.BatchDelay)
	v.SetDefault("honeycomb.metric_interval", cfg.Honeycomb.MetricInterval)
	v.SetDefault("client.base_url", cfg.Client.BaseURL)
	v.SetDefault("client.content_type", cfg.Client.ContentType)
	v.SetDefault("client.timeout", cfg.Client.Timeout)

	for key, env := range map[string]string{
		"honeycomb.api_key":      "HONEYCOMB_API_KEY",
		"honeycomb.service_name": "HONEYCOMB_SERVICE_NAME",
	} {
		if err := v.BindEnv(key, "NOTES_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
	}

	// Choose config file
	if path == "" {
		// Allow override via env var
		if envPath := os.Getenv("NOTES_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `notes`
		v.SetConfigName("notes")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".notes"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile skips a missing default file, but a file named by
// EnvFileVar must exist.
func loadEnvFile() error {
	path := os.Getenv(EnvFileVar)
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return errors.Errorf("invalid log.level: %q", c.Log.Level)
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.Errorf("storage.dsn is required for %s", c.Storage.Driver)
		}
	default:
		return errors.Errorf("invalid storage.driver: %q", c.Storage.Driver)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if c.Honeycomb.BatchDelay <= 0 {
		c.Honeycomb.BatchDelay = time.Second
	}
	if c.Honeycomb.MetricInterval <= 0 {
		c.Honeycomb.MetricInterval = 5 * time.Second
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":1337"
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
