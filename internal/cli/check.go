package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/event"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/monitor"
	"github.com/rileyhilliard/vigil/internal/notify"
	"github.com/rileyhilliard/vigil/internal/source"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

// DefaultCPUWindow is the gap between the two CPU samples 'check' takes.
const DefaultCPUWindow = time.Second

var (
	checkJSON      bool
	checkNotify    bool
	checkCPUWindow time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Read every metric once and compare it to its threshold",
	Long: `Take a single reading of each enabled metric and show it next to the
configured threshold. CPU usage needs two samples, taken --cpu-window apart.

Exits 1 when any metric is past its threshold, so it can be used from scripts.

Examples:
  vigil check
  vigil check --json
  vigil check --notify     # also send the alerts that 'run' would send`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Check(cmd.Context(), CheckOptions{
			ConfigPath: Config(),
			JSON:       checkJSON,
			Notify:     checkNotify,
			CPUWindow:  checkCPUWindow,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output in JSON format")
	checkCmd.Flags().BoolVar(&checkNotify, "notify", false, "send a notification for every breached threshold")
	checkCmd.Flags().DurationVar(&checkCPUWindow, "cpu-window", DefaultCPUWindow, "time between the two CPU samples")
	rootCmd.AddCommand(checkCmd)
}

// CheckOptions holds options for the check command.
type CheckOptions struct {
	ConfigPath string
	JSON       bool
	Notify     bool
	CPUWindow  time.Duration
	Out        io.Writer

	// Sources and Notifier override the configured ones; used by tests.
	Sources  *monitor.Sources
	Notifier notify.Notifier
}

// Reading is one metric's result in 'vigil check'.
type Reading struct {
	Metric    event.Kind `json:"metric"`
	Value     *float64   `json:"value,omitempty"`
	Display   string     `json:"display,omitempty"`
	Threshold string     `json:"threshold"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	Notified  bool       `json:"notified,omitempty"`

	event event.Event
}

// Check reads each enabled metric once and reports it.
func Check(ctx context.Context, opts CheckOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfg, _, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	sources := opts.Sources
	if sources == nil {
		var warnings []error
		sources, warnings = monitor.OpenSources(cfg)
		for _, w := range warnings {
			if !opts.JSON {
				ui.PrintWarning(errors.Summarize(w))
			}
		}
	}
	defer sources.Close()

	readings := takeReadings(ctx, cfg, sources, opts.CPUWindow)

	if opts.Notify {
		if err := notifyAlerts(ctx, cfg, opts.Notifier, readings); err != nil {
			return err
		}
	}

	if opts.JSON {
		if err := WriteJSONSuccess(opts.Out, readings); err != nil {
			return err
		}
	} else {
		rows := make([]ui.ReadingRow, len(readings))
		for i, r := range readings {
			value := r.Display
			if r.Error != "" {
				value = r.Error
			} else if value == "" {
				value = "-"
			}
			rows[i] = ui.ReadingRow{Metric: string(r.Metric), Value: value, Threshold: r.Threshold, Status: r.Status}
		}
		fmt.Fprintln(opts.Out, ui.RenderReadings(rows))
	}

	for _, r := range readings {
		if r.Status == ui.ReadingAlert {
			return errors.NewExitError(1)
		}
	}
	return nil
}

func takeReadings(ctx context.Context, cfg *config.Config, s *monitor.Sources, window time.Duration) []Reading {
	th := monitor.ThresholdsFromConfig(cfg)
	var readings []Reading

	if cfg.CPU.Enabled {
		readings = append(readings, readCPU(ctx, s.CPU, th.CPU, window))
	}
	if cfg.Memory.Enabled {
		readings = append(readings, readOnce(ctx, s.Memory, th.Memory,
			func(v uint64) event.Event { return event.MemoryLow{Available: v} }))
	}
	if cfg.Temperature.Enabled {
		readings = append(readings, readOnce(ctx, s.Temperature, th.Temperature,
			func(v float64) event.Event { return event.TemperatureHigh{Celsius: v} }))
	}
	if cfg.Battery.Enabled {
		readings = append(readings, readOnce(ctx, s.Battery, th.Battery,
			func(v uint32) event.Event { return event.BatteryLow{Percent: v} }))
	}
	return readings
}

// readCPU takes two samples window apart; usage is the delta between them.
// A failed first sample is reported without waiting for the second.
func readCPU(ctx context.Context, src source.Source[float64], th monitor.Threshold[float64], window time.Duration) Reading {
	if src != nil {
		if _, _, err := src.Read(ctx); err != nil {
			return Reading{
				Metric:    th.Metric,
				Threshold: formatThreshold(th),
				Status:    ui.ReadingError,
				Error:     errors.Summarize(err),
			}
		}
		select {
		case <-ctx.Done():
		case <-time.After(window):
		}
	}
	return readOnce(ctx, src, th, func(v float64) event.Event { return event.CPUHigh{Usage: v} })
}

func readOnce[T monitor.Number](ctx context.Context, src source.Source[T], th monitor.Threshold[T], emit func(T) event.Event) Reading {
	r := Reading{
		Metric:    th.Metric,
		Threshold: formatThreshold(th),
	}
	if src == nil {
		r.Status = ui.ReadingError
		r.Error = "source unavailable"
		return r
	}

	v, ok, err := src.Read(ctx)
	switch {
	case err != nil:
		r.Status = ui.ReadingError
		r.Error = errors.Summarize(err)
	case !ok:
		r.Status = ui.ReadingAbsent
	default:
		f := float64(v)
		r.Value = &f
		r.Display = monitor.FormatValue(th.Metric, f)
		r.Status = ui.ReadingOK
		if th.Breached(v) {
			r.Status = ui.ReadingAlert
			r.event = emit(v)
		}
	}
	return r
}

func formatThreshold[T monitor.Number](th monitor.Threshold[T]) string {
	op := ">"
	if th.Comparison == monitor.Below {
		op = "<"
	}
	return op + " " + monitor.FormatValue(th.Metric, float64(th.Limit))
}

func notifyAlerts(ctx context.Context, cfg *config.Config, n notify.Notifier, readings []Reading) error {
	if n == nil {
		var err error
		n, err = notify.New(cfg.Notify, logger.WithPrefix(logger.Default(), "[notify]"))
		if err != nil {
			return err
		}
		if c, ok := n.(io.Closer); ok {
			defer c.Close()
		}
	}

	th := monitor.ThresholdsFromConfig(cfg)
	for i := range readings {
		if readings[i].event == nil {
			continue
		}
		summary, body := monitor.Render(readings[i].event, th)
		nctx, cancel := context.WithTimeout(ctx, cfg.Notify.Timeout)
		err := n.Notify(nctx, summary, body)
		cancel()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrNotify,
				fmt.Sprintf("Failed to send the %s alert", readings[i].Metric),
				"Run 'vigil doctor' to check the notification service.")
		}
		readings[i].Notified = true
	}
	return nil
}
