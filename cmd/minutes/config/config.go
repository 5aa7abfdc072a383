// Package configcmder provides the config command for managing persistent
// minutes configuration stored in the .minutes/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent minutes configuration.

Configuration is stored as config.toml in the .minutes/ directory and provides
default values for command flags. Environment variables (MINUTES_LLM_PROVIDER,
MINUTES_API_LISTEN, ...) and CLI flags take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  api.listen, llm.provider, llm.model, llm.base_url, llm.timeout,
  summarizer.interval, summarizer.meeting, summarizer.prompt_file, ...
  eventstream.kafka_brokers, eventstream.kafka_topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  minutes config set <key> <value>    Set a configuration value
  minutes config get <key>            Get a configuration value
  minutes config list                 List all configuration values

Examples:
  minutes config set llm.provider anthropic
  minutes config set summarizer.interval 30s
  minutes config get llm.provider
  minutes config list`

const configShortDesc string = "Manage persistent minutes configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
