package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/minutes/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "MINUTES"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MINUTES_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MINUTES_API_LISTEN, MINUTES_LLM_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MINUTES_API_LISTEN, MINUTES_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Summarizer
	v.SetDefault("summarizer.interval", d.Summarizer.Interval)
	v.SetDefault("summarizer.poll_interval", d.Summarizer.PollInterval)
	v.SetDefault("summarizer.error_cooldown", d.Summarizer.ErrorCooldown)
	v.SetDefault("summarizer.backlog_warn", d.Summarizer.BacklogWarn)
	v.SetDefault("summarizer.retain_failed_batch", d.Summarizer.RetainFailedBatch)
	v.SetDefault("summarizer.prompt_file", d.Summarizer.PromptFile)
	v.SetDefault("summarizer.meeting", d.Summarizer.Meeting)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	// Event stream
	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)
}
