package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile     string
	verboseFlag bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Desktop alerts for CPU, memory, temperature and battery",
	Long: `vigil samples CPU usage, available memory, CPU temperature and battery
charge on independent schedules and raises a desktop notification when a
configured threshold is crossed.

Get started:
  vigil init      Write a default config
  vigil doctor    See which sources work on this machine
  vigil run       Start monitoring`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.ConfigureColors(noColorFlag, os.Stdout)
		if verboseFlag {
			logger.SetDebug(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/vigil/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug logs")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

// Execute runs the root command and exits with the command's status.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "%s\n\n  Run 'vigil --help' to see the available commands.\n",
			ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()))
		os.Exit(2)
	}

	fmt.Fprint(os.Stderr, renderError(err))
	os.Exit(1)
}

// renderError styles structured errors the same way everywhere: the first
// line in red, cause and suggestion muted underneath.
func renderError(err error) string {
	text := err.Error()
	if !strings.HasPrefix(text, ui.SymbolFail) {
		text = ui.SymbolFail + " " + text
	}
	lines := strings.SplitN(strings.TrimRight(text, "\n"), "\n", 2)
	out := ui.ErrorStyle().Render(lines[0]) + "\n"
	if len(lines) > 1 {
		out += ui.MutedStyle().Render(lines[1]) + "\n"
	}
	return out
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}
