// Package configcmder provides the config command for managing persistent
// retina configuration stored in the .retina/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent retina configuration.

Configuration is stored as config.toml in the .retina/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_url,
  api.listen,
  engine.target_len, engine.metric, engine.max_concurrent_embeds,
  embedding.provider, embedding.target, embedding.model,
  answer.provider, answer.target, answer.model,
  splitter.target,
  events.brokers, events.topic,
  watch.dir, watch.namespace

Use subcommands to get, set, or list configuration values:
  retina config set <key> <value>    Set a configuration value
  retina config get <key>            Get a configuration value
  retina config list                 List all configuration values

Examples:
  retina config set storage.driver postgres
  retina config set embedding.model vidore/colqwen2-v0.1
  retina config get engine.target_len
  retina config list`

const configShortDesc string = "Manage persistent retina configuration"

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
