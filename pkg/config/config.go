// Package config loads runtime settings with viper. Values come from an
// optional YAML file and FORMWIZARD_* environment variables, e.g.
// FORMWIZARD_STORE_DRIVER=redis overrides store.driver.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goliatone/go-formwizard/pkg/metrics"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "FORMWIZARD"

// Config is the full runtime configuration.
type Config struct {
	Server      ServerConfig `mapstructure:"server"`
	Store       StoreConfig  `mapstructure:"store"`
	API         APIConfig    `mapstructure:"api"`
	Definitions []string     `mapstructure:"definitions"`
	// SchemaRoot is the directory schema sources are read from. Empty means
	// the working directory.
	SchemaRoot string        `mapstructure:"schema_root"`
	Log        LogConfig     `mapstructure:"log"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	BasePath      string        `mapstructure:"base_path"`
	Fallback      string        `mapstructure:"fallback"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver string        `mapstructure:"driver"`
	DSN    string        `mapstructure:"dsn"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

// APIConfig points at the external record service.
type APIConfig struct {
	BaseURL    string            `mapstructure:"base_url"`
	SchemaPath string            `mapstructure:"schema_path"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	SchemaTTL  time.Duration     `mapstructure:"schema_ttl"`
	Headers    map[string]string `mapstructure:"headers"`
	// Search maps reference fields to the collection searched for them,
	// e.g. new_duty_station: /duty_stations.
	Search map[string]string `mapstructure:"search"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	metrics.Config `mapstructure:",squash"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_path", "/wizards")
	v.SetDefault("server.fallback", "/")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("store.driver", store.DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.ttl", store.DefaultTTL)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", store.DefaultRedisPrefix)

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.schema_path", "/schemas")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.schema_ttl", 5*time.Minute)

	v.SetDefault("definitions", []string{"definitions"})
	v.SetDefault("schema_root", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	defaults := metrics.DefaultConfig()
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", defaults.Namespace)
	v.SetDefault("metrics.subsystem", defaults.Subsystem)
	v.SetDefault("metrics.path", defaults.Path)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads file, when set, and decodes v into a Config. Without a file the
// working directory is searched for formwizard.yaml; its absence is not an
// error.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = New()
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("formwizard")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverMemory, store.DriverSQLite, store.DriverRedis:
	default:
		return fmt.Errorf("config: store.driver %q must be one of memory, sqlite, redis", c.Store.Driver)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format %q must be text or json", c.Log.Format)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("config: store.ttl must not be negative")
	}
	return nil
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() store.Config {
	return store.Config{
		Driver:    strings.ToLower(c.Store.Driver),
		DSN:       c.Store.DSN,
		RedisAddr: c.Store.Redis.Addr,
		RedisDB:   c.Store.Redis.DB,
		Prefix:    c.Store.Redis.Prefix,
		TTL:       c.Store.TTL,
	}
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log.level %q", level)
	}
}

// Logger builds the slog logger described by the log section.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
