package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

var (
	initForce bool
	initPath  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write vigil's default configuration to $XDG_CONFIG_HOME/vigil/config.yaml
(or ~/.config/vigil/config.yaml), ready to edit.

Examples:
  vigil init
  vigil init --force
  vigil init --path ./vigil.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initPath
		if path == "" {
			path = Config()
		}
		return Init(InitOptions{Path: path, Overwrite: initForce, Out: cmd.OutOrStdout()})
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().StringVar(&initPath, "path", "", "where to write the config (default: first search path)")
	rootCmd.AddCommand(initCmd)
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Path      string // Target file; empty means config.DefaultPath()
	Overwrite bool   // Overwrite existing config
	Out       io.Writer
}

// Init writes the default config file.
func Init(opts InitOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	path := config.ExpandTilde(opts.Path)
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", path),
			"Use --force to overwrite, or 'vigil config set' to change one value")
	}

	if err := config.WriteFile(path, config.DefaultConfig(), true); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", path),
			"Check directory permissions")
	}

	fmt.Fprintf(opts.Out, "%s Created %s\n\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
	fmt.Fprintln(opts.Out, "Next steps:")
	fmt.Fprintln(opts.Out, "  vigil doctor   - Check which sources work here")
	fmt.Fprintln(opts.Out, "  vigil check    - Compare current readings to thresholds")
	fmt.Fprintln(opts.Out, "  vigil run      - Start monitoring")

	return nil
}
