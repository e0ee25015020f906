// Package config loads the orchestrator's runtime configuration from
// an optional TOML file, layered under environment variable overrides,
// into a typed Config struct.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const envPrefix = "EVENTSCHED"

// Config is the fully-resolved runtime configuration, matching the
// recognized options table of the external interfaces.
type Config struct {
	PollIntervalMs       int    `mapstructure:"poll_interval_ms"`
	BatchSize            int    `mapstructure:"batch_size"`
	LeaseDurationMin     int    `mapstructure:"lease_duration_min"`
	MaxRetriesDefault    uint32 `mapstructure:"max_retries_default"`
	RetentionDays        int    `mapstructure:"retention_days"`
	CleanupBatchSize     int    `mapstructure:"cleanup_batch_size"`
	CleanupCron          string `mapstructure:"cleanup_cron"`
	IngestionPartitions  int32  `mapstructure:"ingestion_partitions"`
	ConsumerConcurrency  int    `mapstructure:"consumer_concurrency"`
	HTTPConnectTimeoutMs int    `mapstructure:"http_connect_timeout_ms"`
	HTTPReadTimeoutMs    int    `mapstructure:"http_read_timeout_ms"`
	DedupLRUSize         int    `mapstructure:"dedup_lru_size"`

	DatabaseDSN   string   `mapstructure:"database_dsn"`
	BrokerAddrs   []string `mapstructure:"broker_addrs"`
	IngestTopic   string   `mapstructure:"ingest_topic"`
	IngestDLQ     string   `mapstructure:"ingest_dlq_topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	ListenAddr    string   `mapstructure:"listen_addr"`
	AdminToken    string   `mapstructure:"admin_token"`
}

func defaults() map[string]any {
	return map[string]any{
		"poll_interval_ms":        1000,
		"batch_size":              100,
		"lease_duration_min":      5,
		"max_retries_default":     3,
		"retention_days":          7,
		"cleanup_batch_size":      10000,
		"cleanup_cron":            "0 2 * * *",
		"ingestion_partitions":    24,
		"consumer_concurrency":    10,
		"http_connect_timeout_ms": 5000,
		"http_read_timeout_ms":    30000,
		"dedup_lru_size":          100000,
		"ingest_topic":            "eventsched.ingest",
		"ingest_dlq_topic":        "eventsched.ingest.dlq",
		"consumer_group":          "eventsched-persister",
		"listen_addr":             ":8080",
	}
}

// Load reads path (if non-empty and present) as a TOML document, then
// layers EVENTSCHED_-prefixed environment variables on top, and
// decodes the result into a Config.
//
// A missing path is not an error — defaults and environment variables
// alone are a valid configuration for local development.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var fileValues map[string]any
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			if err := toml.Unmarshal(data, &fileValues); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if err := v.MergeConfigMap(fileValues); err != nil {
				return nil, fmt.Errorf("config: merge %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configuration combinations that would make the
// orchestrator start in a broken state.
func (c *Config) Validate() error {
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("config: poll_interval_ms must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive")
	}
	if c.LeaseDurationMin <= 0 {
		return fmt.Errorf("config: lease_duration_min must be positive")
	}
	if c.MaxRetriesDefault > 10 {
		return fmt.Errorf("config: max_retries_default must be between 0 and 10")
	}
	if c.CleanupCron == "" {
		return fmt.Errorf("config: cleanup_cron must not be empty")
	}
	return nil
}

// PollInterval returns PollIntervalMs as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// LeaseDuration returns LeaseDurationMin as a time.Duration.
func (c *Config) LeaseDuration() time.Duration {
	return time.Duration(c.LeaseDurationMin) * time.Minute
}

// RetentionDuration returns RetentionDays as a time.Duration.
func (c *Config) RetentionDuration() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// HTTPConnectTimeout returns HTTPConnectTimeoutMs as a time.Duration.
func (c *Config) HTTPConnectTimeout() time.Duration {
	return time.Duration(c.HTTPConnectTimeoutMs) * time.Millisecond
}

// HTTPReadTimeout returns HTTPReadTimeoutMs as a time.Duration.
func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.HTTPReadTimeoutMs) * time.Millisecond
}
