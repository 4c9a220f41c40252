// Package configcmder provides the config command for managing persistent
// kbase configuration stored in the .kbase/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/kbase/pkg/cliui"
	"github.com/papercomputeco/kbase/pkg/config"
)

const configLongDesc string = `Manage persistent kbase configuration.

Configuration is stored as config.toml in the .kbase/ directory and provides
default values for command flags. CLI flags and KBASE_ environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  server.listen, client.api_target,
  chroma.host, chroma.port, chroma.collection,
  embedding.provider, embedding.model, chat.provider, chat.model,
  events.provider, archive.provider, watch.dir

Use subcommands to get, set, or list configuration values:
  kbase config set <key> <value>    Set a configuration value
  kbase config get <key>            Get a configuration value
  kbase config list                 List all configuration values

Examples:
  kbase config set chat.provider ollama
  kbase config set chroma.port 8001
  kbase config get embedding.model
  kbase config list`

const configShortDesc string = "Manage persistent kbase configuration"

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

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

// openConfig resolves the config file and reports which one is in use.
func openConfig(w io.Writer, configDir string) (*config.Configer, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
	return cfger, nil
}
