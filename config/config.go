// Package config loads the object cache configuration and builds a ready
// to use cache.Manager from it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/agentuity/go-objectcache/cache"
	"github.com/agentuity/go-objectcache/logger"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OBJECTCACHE_"

// Duration is a time.Duration that reads from YAML as a string such as
// "90s", "2m" or "1d".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return str2duration.String(time.Duration(d)), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (time.Duration, error) {
	v, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", s)
	}
	return v, nil
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// BreakerConfig guards the persistent tier. MaxFailures of zero disables it.
type BreakerConfig struct {
	MaxFailures  int      `yaml:"max_failures"`
	ResetTimeout Duration `yaml:"reset_timeout"`
}

// TelemetryConfig enables OTLP export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Token        string `yaml:"token"`
	SharedSecret string `yaml:"shared_secret"`
	ServiceName  string `yaml:"service_name"`
}

// Config is the full object cache configuration.
type Config struct {
	// Store is a comma separated list of persistent backends, consulted in
	// order: memory, sqlite, redis or postgres.
	Store        string          `yaml:"store"`
	Serializer   string          `yaml:"serializer"`
	RushWindow   Duration        `yaml:"rush_window"`
	Shards       int             `yaml:"shards"`
	ExpiryCheck  Duration        `yaml:"expiry_check"`
	QueryTimeout Duration        `yaml:"query_timeout"`
	Table        string          `yaml:"table"`
	LogLevel     string          `yaml:"log_level"`
	LogFormat    string          `yaml:"log_format"`
	SQLite       SQLiteConfig    `yaml:"sqlite"`
	Redis        RedisConfig     `yaml:"redis"`
	Postgres     PostgresConfig  `yaml:"postgres"`
	Server       ServerConfig    `yaml:"server"`
	Breaker      BreakerConfig   `yaml:"breaker"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store:        "sqlite",
		Serializer:   "json",
		RushWindow:   Duration(cache.DefaultRushWindow),
		Shards:       cache.DefaultShards,
		ExpiryCheck:  Duration(time.Minute),
		QueryTimeout: Duration(cache.DefaultQueryTimeout),
		Table:        "objectcache",
		LogLevel:     "info",
		LogFormat:    "console",
		SQLite:       SQLiteConfig{Path: "objectcache.db"},
		Redis:        RedisConfig{URL: "redis://localhost:6379/0", Prefix: "objectcache"},
		Server:       ServerConfig{Addr: ":8080"},
		Breaker:      BreakerConfig{MaxFailures: 5, ResetTimeout: Duration(30 * time.Second)},
		Telemetry:    TelemetryConfig{ServiceName: "objectcache"},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// OBJECTCACHE_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		of, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open config file: %s", path)
		}
		defer of.Close()
		dec := yaml.NewDecoder(of)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to decode YAML config file: %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment. Files
// that do not exist are skipped and variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, fn := range files {
		if _, err := os.Stat(fn); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(fn); err != nil {
			return errors.Wrapf(err, "failed to load env file: %s", fn)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	for name, dst := range map[string]*string{
		"STORE":        &c.Store,
		"SERIALIZER":   &c.Serializer,
		"TABLE":        &c.Table,
		"LOG_FORMAT":   &c.LogFormat,
		"SQLITE_PATH":  &c.SQLite.Path,
		"REDIS_URL":    &c.Redis.URL,
		"REDIS_PREFIX": &c.Redis.Prefix,
		"POSTGRES_DSN": &c.Postgres.DSN,
		"ADDR":         &c.Server.Addr,
		"OTLP_URL":     &c.Telemetry.Endpoint,
		"OTLP_TOKEN":   &c.Telemetry.Token,
		"OTLP_SECRET":  &c.Telemetry.SharedSecret,
	} {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = val
		}
	}
	if val, ok := os.LookupEnv(logger.EnvLogLevel); ok {
		c.LogLevel = val
	}
	for name, dst := range map[string]*Duration{
		"RUSH_WINDOW":   &c.RushWindow,
		"EXPIRY_CHECK":  &c.ExpiryCheck,
		"QUERY_TIMEOUT": &c.QueryTimeout,
		"BREAKER_RESET": &c.Breaker.ResetTimeout,
	} {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			v, err := parseDuration(val)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, name)
			}
			*dst = Duration(v)
		}
	}
	for name, dst := range map[string]*int{
		"SHARDS":               &c.Shards,
		"BREAKER_MAX_FAILURES": &c.Breaker.MaxFailures,
	} {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, name)
			}
			*dst = n
		}
	}
	return nil
}

// Stores returns the configured backend names in lookup order.
func (c *Config) Stores() []string {
	var names []string
	for _, name := range strings.Split(c.Store, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Validate checks the configuration for values Build cannot use.
func (c *Config) Validate() error {
	names := c.Stores()
	if len(names) == 0 {
		return errors.New("at least one store is required")
	}
	for _, name := range names {
		switch name {
		case "memory":
		case "sqlite":
			if c.SQLite.Path == "" {
				return errors.New("sqlite.path is required for the sqlite store")
			}
		case "redis":
			if c.Redis.URL == "" {
				return errors.New("redis.url is required for the redis store")
			}
		case "postgres":
			if c.Postgres.DSN == "" {
				return errors.New("postgres.dsn is required for the postgres store")
			}
		default:
			return errors.Newf("unknown store %q", name)
		}
	}
	if _, err := cache.SerializerByName(c.Serializer); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return errors.Newf("unknown log format %q", c.LogFormat)
	}
	if c.RushWindow <= 0 {
		return errors.Newf("rush_window must be positive, got %s", c.RushWindow.Duration())
	}
	if c.ExpiryCheck < 0 || c.QueryTimeout < 0 || c.Breaker.ResetTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Shards < 0 {
		return errors.Newf("shards must not be negative, got %d", c.Shards)
	}
	if c.Breaker.MaxFailures < 0 {
		return errors.Newf("breaker.max_failures must not be negative, got %d", c.Breaker.MaxFailures)
	}
	return nil
}
