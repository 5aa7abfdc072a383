package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent minutes configuration stored as config.toml
// in the .minutes/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Summarizer  SummarizerConfig  `toml:"summarizer"`
	LLM         LLMConfig         `toml:"llm"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite", or "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// SummarizerConfig holds summary loop settings. Durations use Go duration
// syntax ("15s", "1m").
type SummarizerConfig struct {
	Interval          string `toml:"interval,omitempty"`
	PollInterval      string `toml:"poll_interval,omitempty"`
	ErrorCooldown     string `toml:"error_cooldown,omitempty"`
	BacklogWarn       int    `toml:"backlog_warn,omitempty"`
	RetainFailedBatch bool   `toml:"retain_failed_batch,omitempty"`
	PromptFile        string `toml:"prompt_file,omitempty"`
	Meeting           string `toml:"meeting,omitempty"`
}

// LLMConfig selects the summarization provider.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
}

// EventStreamConfig configures the optional Kafka sink. An empty broker list
// disables publishing.
type EventStreamConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// minutes server (e.g. minutes watch, minutes tail, minutes ingest).
// Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func durationKey(key string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if d <= 0 {
				return fmt.Errorf("invalid value for %s: must be positive", key)
			}
			*field(c) = v
			return nil
		},
	}
}

func boolKey(key string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case StorageMemory, StorageSQLite, StoragePostgres:
				c.Storage.Driver = v
				return nil
			}
			return fmt.Errorf("invalid value for storage.driver: %q (available: %s, %s, %s)",
				v, StorageMemory, StorageSQLite, StoragePostgres)
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"summarizer.interval":       durationKey("summarizer.interval", func(c *Config) *string { return &c.Summarizer.Interval }),
	"summarizer.poll_interval":  durationKey("summarizer.poll_interval", func(c *Config) *string { return &c.Summarizer.PollInterval }),
	"summarizer.error_cooldown": durationKey("summarizer.error_cooldown", func(c *Config) *string { return &c.Summarizer.ErrorCooldown }),
	"summarizer.backlog_warn": {
		get: func(c *Config) string {
			if c.Summarizer.BacklogWarn == 0 {
				return ""
			}
			return strconv.Itoa(c.Summarizer.BacklogWarn)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for summarizer.backlog_warn: %w", err)
			}
			c.Summarizer.BacklogWarn = n
			return nil
		},
	},
	"summarizer.retain_failed_batch": boolKey("summarizer.retain_failed_batch", func(c *Config) *bool { return &c.Summarizer.RetainFailedBatch }),
	"summarizer.prompt_file": {
		get: func(c *Config) string { return c.Summarizer.PromptFile },
		set: func(c *Config, v string) error { c.Summarizer.PromptFile = v; return nil },
	},
	"summarizer.meeting": {
		get: func(c *Config) string { return c.Summarizer.Meeting },
		set: func(c *Config, v string) error { c.Summarizer.Meeting = v; return nil },
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.base_url": {
		get: func(c *Config) string { return c.LLM.BaseURL },
		set: func(c *Config, v string) error { c.LLM.BaseURL = v; return nil },
	},
	"llm.timeout": durationKey("llm.timeout", func(c *Config) *string { return &c.LLM.Timeout }),
	"eventstream.kafka_brokers": {
		get: func(c *Config) string { return c.EventStream.KafkaBrokers },
		set: func(c *Config, v string) error { c.EventStream.KafkaBrokers = v; return nil },
	},
	"eventstream.kafka_topic": {
		get: func(c *Config) string { return c.EventStream.KafkaTopic },
		set: func(c *Config, v string) error { c.EventStream.KafkaTopic = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}
