package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/doctor"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

var (
	doctorJSON bool
	doctorFix  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, notification and metric source issues",
	Long: `Run diagnostic checks to find out why vigil might stay quiet.

Checks:
  - Config file present and valid
  - Session bus reachable and a notification server answering
  - Each enabled metric source readable
  - A temperature sensor matching temperature.labels

Examples:
  vigil doctor
  vigil doctor --fix
  vigil doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Doctor(cmd.Context(), DoctorOptions{
			ConfigPath: Config(),
			JSON:       doctorJSON,
			Fix:        doctorFix,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	ConfigPath string
	JSON       bool
	Fix        bool
	Out        io.Writer

	// Checks overrides the suite built from config; used by tests.
	Checks []doctor.Check
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// categoryOrder is the order categories appear in the text report.
var categoryOrder = []string{doctor.CategoryConfig, doctor.CategoryNotify, doctor.CategorySources}

// Doctor runs the diagnostic checks and prints the report. It returns an
// ExitError when any check fails.
func Doctor(ctx context.Context, opts DoctorOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if ctx == nil {
		ctx = context.Background()
	}

	checks := opts.Checks
	if checks == nil {
		// A broken config still gets checked; the schema check reports it.
		cfg, _, err := config.LoadOrDefault(opts.ConfigPath)
		if err != nil {
			cfg = config.DefaultConfig()
		}
		checks = doctor.NewChecks(cfg, opts.ConfigPath)
	}

	results := doctor.RunAllParallel(ctx, checks)

	if opts.Fix {
		results = attemptFixes(ctx, checks, results)
	}

	var err error
	if opts.JSON {
		err = outputDoctorJSON(opts.Out, results)
	} else {
		outputDoctorText(opts.Out, results, opts.Fix)
	}
	if err != nil {
		return err
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// attemptFixes tries to fix issues where possible.
func attemptFixes(ctx context.Context, checks []doctor.Check, results []doctor.CheckResult) []doctor.CheckResult {
	for i, result := range results {
		if result.Fixable && (result.Status == doctor.StatusFail || result.Status == doctor.StatusWarn) {
			if err := checks[i].Fix(); err == nil {
				// Re-run the check to see if it's fixed
				results[i] = doctor.RunAll(ctx, checks[i:i+1])[0]
			}
		}
	}
	return results
}

// groupResults buckets results by category, keeping check order inside each.
func groupResults(results []doctor.CheckResult) map[string][]doctor.CheckResult {
	grouped := make(map[string][]doctor.CheckResult)
	for _, r := range results {
		grouped[r.Category] = append(grouped[r.Category], r)
	}
	return grouped
}

func outputDoctorJSON(w io.Writer, results []doctor.CheckResult) error {
	grouped := groupResults(results)

	output := DoctorOutput{
		Categories: make([]CategoryOutput, 0, len(categoryOrder)),
	}
	for _, cat := range categoryOrder {
		if len(grouped[cat]) == 0 {
			continue
		}
		output.Categories = append(output.Categories, CategoryOutput{
			Name:    cat,
			Results: grouped[cat],
		})
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}

	return WriteJSONSuccess(w, output)
}

func outputDoctorText(w io.Writer, results []doctor.CheckResult, fixed bool) {
	successStyle := ui.SuccessStyle()
	errorStyle := ui.ErrorStyle()
	warnStyle := ui.WarningStyle()
	mutedStyle := ui.MutedStyle()
	headerStyle := ui.HeaderStyle()

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("vigil diagnostic report"))
	fmt.Fprintln(w)

	grouped := groupResults(results)
	for _, category := range categoryOrder {
		if len(grouped[category]) == 0 {
			continue
		}

		fmt.Fprintln(w, headerStyle.Render(category))
		for _, result := range grouped[category] {
			renderCheckResult(w, result, successStyle, errorStyle, warnStyle, mutedStyle)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	counts := doctor.CountByStatus(results)
	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", successStyle.Render(ui.SymbolSuccess), "Everything looks good")
	} else {
		total := counts[doctor.StatusFail] + counts[doctor.StatusWarn]
		symbol := errorStyle.Render(ui.SymbolFail)
		if counts[doctor.StatusFail] == 0 {
			symbol = warnStyle.Render(ui.SymbolWarning)
		}
		fmt.Fprintf(w, "%s %d issue%s found\n", symbol, total, pluralSuffix(total))

		fixable := doctor.FixableCount(results)
		if fixable > 0 && !fixed {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  Run with %s to attempt automatic fixes where possible.\n",
				mutedStyle.Render("--fix"))
		}
	}

	fmt.Fprintln(w)
}

// renderCheckResult renders a single check result.
func renderCheckResult(w io.Writer, result doctor.CheckResult, successStyle, errorStyle, warnStyle, mutedStyle lipgloss.Style) {
	var symbol string
	var style lipgloss.Style

	switch result.Status {
	case doctor.StatusPass:
		symbol = ui.SymbolComplete
		style = successStyle
	case doctor.StatusWarn:
		symbol = ui.SymbolComplete // Still shows as done, but with warning styling
		style = warnStyle
	default:
		symbol = ui.SymbolFail
		style = errorStyle
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), result.Message)

	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(line))
		}
	}
}

// pluralSuffix returns "s" if n != 1.
func pluralSuffix(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
