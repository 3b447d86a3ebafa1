// Package config loads service settings from the environment and an
// optional config file.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

type Config struct {
	Port           string
	StoreDriver    string
	PostgresURL    string
	SQLitePath     string
	KafkaBrokers   []string
	ConsumerGroup  string
	LogLevel       slog.Level
	AuthTokens     []string
	OTelEnabled    bool
	OTLPEndpoint   string
	TraceRatio     float64
	ServiceName    string
	ServiceVersion string
	MigrationsPath string
}

// New returns a viper instance with defaults that reads settings from
// environment variables named after the upper-cased keys (PORT,
// STORE_DRIVER, POSTGRES_URL, ...).
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("store_driver", StorePostgres)
	v.SetDefault("sqlite_path", "textile-shop.db")
	v.SetDefault("consumer_group", "order-notifications")
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4317")
	v.SetDefault("otel_trace_sample_ratio", 1.0)
	v.SetDefault("service_name", "textile-shop")
	v.SetDefault("service_version", "dev")
	v.SetDefault("migrations_path", "file://migrations")

	for _, key := range []string{"postgres_url", "kafka_brokers", "auth_tokens", "config_file"} {
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file named by config_file and returns the
// validated settings.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		StoreDriver:    strings.ToLower(v.GetString("store_driver")),
		PostgresURL:    v.GetString("postgres_url"),
		SQLitePath:     v.GetString("sqlite_path"),
		KafkaBrokers:   list(v, "kafka_brokers"),
		ConsumerGroup:  v.GetString("consumer_group"),
		AuthTokens:     list(v, "auth_tokens"),
		OTelEnabled:    v.GetBool("otel_enabled"),
		OTLPEndpoint:   v.GetString("otel_exporter_otlp_endpoint"),
		TraceRatio:     v.GetFloat64("otel_trace_sample_ratio"),
		ServiceName:    v.GetString("service_name"),
		ServiceVersion: v.GetString("service_version"),
		MigrationsPath: v.GetString("migrations_path"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when STORE_DRIVER is %s", StorePostgres)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %s", StoreSQLite)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: must be postgres, sqlite or memory", c.StoreDriver)
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.TraceRatio < 0 || c.TraceRatio > 1 {
		return fmt.Errorf("OTEL_TRACE_SAMPLE_RATIO must be between 0 and 1, got %v", c.TraceRatio)
	}
	return nil
}

// list accepts either a real list (from a config file) or a comma
// separated string (from the environment).
func list(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
