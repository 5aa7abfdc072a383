package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on "minutes watch", "minutes tail" and "minutes ingest").
type Flag struct {
	// Name is the long flag name (e.g. "provider").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "llm.provider").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddDurationFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen        = "listen"
	FlagStorageDriver = "storage"
	FlagSQLite        = "sqlite"
	FlagPostgres      = "postgres"
	FlagInterval      = "interval"
	FlagBacklogWarn   = "backlog-warn"
	FlagPromptFile    = "prompts"
	FlagMeeting       = "meeting"
	FlagProvider      = "provider"
	FlagModel         = "model"
	FlagBaseURL       = "base-url"
	FlagLLMTimeout    = "llm-timeout"
	FlagKafkaBrokers  = "kafka-brokers"
	FlagKafkaTopic    = "kafka-topic"
	FlagAPITarget     = "api-target"
)

// Flags is the registry shared by every minutes command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagStorageDriver: {
		Name:        "storage",
		ViperKey:    "storage.driver",
		Description: "Storage driver (memory, sqlite, postgres)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database (implies --storage sqlite)",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string (implies --storage postgres)",
	},
	FlagInterval: {
		Name:        "interval",
		Shorthand:   "i",
		ViperKey:    "summarizer.interval",
		Description: "Minimum time between summaries",
	},
	FlagBacklogWarn: {
		Name:        "backlog-warn",
		ViperKey:    "summarizer.backlog_warn",
		Description: "Warn when this many fragments are waiting on the bus (0 disables)",
	},
	FlagPromptFile: {
		Name:        "prompts",
		ViperKey:    "summarizer.prompt_file",
		Description: "YAML file with prompt templates, reloaded on change",
	},
	FlagMeeting: {
		Name:        "meeting",
		Shorthand:   "m",
		ViperKey:    "summarizer.meeting",
		Description: "Meeting identifier stamped on published events",
	},
	FlagProvider: {
		Name:        "provider",
		Shorthand:   "p",
		ViperKey:    "llm.provider",
		Description: "LLM provider (openai, anthropic, gemini, ollama, static)",
	},
	FlagModel: {
		Name:        "model",
		ViperKey:    "llm.model",
		Description: "LLM model (provider default when empty)",
	},
	FlagBaseURL: {
		Name:        "base-url",
		ViperKey:    "llm.base_url",
		Description: "Override the provider API base URL",
	},
	FlagLLMTimeout: {
		Name:        "llm-timeout",
		ViperKey:    "llm.timeout",
		Description: "Timeout for a single summarization request",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "eventstream.kafka_brokers",
		Description: "Comma-separated Kafka brokers for summary events (empty disables)",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "eventstream.kafka_topic",
		Description: "Kafka topic for summary events",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "URL of the running minutes server",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *time.Duration) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaults().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	return defaults().GetString(viperKey)
}

func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// InitCommandViper initializes viper for cmd using its --config-dir flag and
// binds the given registry flags, so flag > env > config file > default
// holds for every key a command reads.
func InitCommandViper(cmd *cobra.Command, registryKeys ...string) (*viper.Viper, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, Flags, registryKeys)
	return v, nil
}

// ExplicitlySet reports whether the registry flag's value came from the
// command line, the environment, or the config file rather than a default.
func ExplicitlySet(v *viper.Viper, cmd *cobra.Command, registryKey string) bool {
	def, ok := Flags[registryKey]
	if !ok {
		return false
	}

	if f := cmd.Flags().Lookup(def.Name); f != nil && f.Changed {
		return true
	}
	if v.InConfig(def.ViperKey) {
		return true
	}

	env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(def.ViperKey, ".", "_"))
	_, ok = os.LookupEnv(env)
	return ok
}
