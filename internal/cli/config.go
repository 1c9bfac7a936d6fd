package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configPath(cmd.OutOrStdout(), Config())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config (file, defaults and VIGIL_* env)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShow(cmd.OutOrStdout(), Config())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one config value, keeping comments intact",
	Long: `Set a dotted config key in the config file. The value is parsed as YAML
and the result must still pass validation.

Examples:
  vigil config set cpu.threshold 85
  vigil config set battery.enabled false
  vigil config set temperature.labels "[k10temp, coretemp]"`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.KnownKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSet(cmd.OutOrStdout(), Config(), args[0], args[1])
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath(w io.Writer, explicit string) error {
	path, err := config.Find(explicit)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintf(w, "%s (not created yet, using defaults)\n", config.DefaultPath())
		return nil
	}
	fmt.Fprintln(w, path)
	return nil
}

func configShow(w io.Writer, explicit string) error {
	cfg, _, err := config.LoadOrDefault(explicit)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to render config", "")
	}
	_, err = w.Write(data)
	return err
}

func configSet(w io.Writer, explicit, key, value string) error {
	path, err := config.Find(explicit)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"No config file to edit",
			"Run 'vigil init' first, or pass --config")
	}

	if err := config.UpdateFile(path, key, value); err != nil {
		if errors.SuggestionOf(err) != "" {
			return err
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't set %s", key),
			"Run 'vigil config show' to see the available keys")
	}

	fmt.Fprintf(w, "%s %s = %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), key, value)
	return nil
}
