package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/lock"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/metrics"
	"github.com/rileyhilliard/vigil/internal/monitor"
	"github.com/rileyhilliard/vigil/internal/notify"
	"github.com/spf13/cobra"
)

var runTestNotify bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start monitoring",
	Long: `Start sampling every enabled metric and send a desktop notification
whenever a threshold is crossed. Runs until interrupted (Ctrl+C or SIGTERM),
then delivers any alerts still queued before exiting.

Examples:
  vigil run
  vigil run --test-notify
  VIGIL_CPU_THRESHOLD=75 vigil run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return Run(ctx, RunOptions{
			ConfigPath: Config(),
			TestNotify: runTestNotify,
		})
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTestNotify, "test-notify", false, "send a notification at startup to confirm delivery works")
	rootCmd.AddCommand(runCmd)
}

// RunOptions holds options for the run command.
type RunOptions struct {
	ConfigPath string
	TestNotify bool // Send the startup notification even if notify.startup is off
	LockDir    string // Where the single-instance lock lives; empty uses lock.DefaultDir()
	Log        logger.Logger

	// Notifier and Sources override the configured ones; used by tests.
	Notifier notify.Notifier
	Sources  *monitor.Sources
}

// Run loads config, starts the monitor and blocks until ctx is cancelled.
// Any error returned happened during startup.
func Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Log
	if log == nil {
		log = logger.Default()
	}

	cfg, path, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if path == "" {
		log.Info("no config file found, using defaults")
	} else {
		log.Debug("loaded config from %s", path)
	}

	lockDir := opts.LockDir
	if lockDir == "" {
		lockDir = lock.DefaultDir()
	}
	l, err := lock.Acquire(ctx, lockDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			log.Warn("releasing lock: %v", err)
		}
	}()

	n := opts.Notifier
	if n == nil {
		n, err = notify.New(cfg.Notify, logger.WithPrefix(log, "[notify]"))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrStartup,
				"Failed to initialize the notifier",
				"Run 'vigil doctor' to check the notification service, or set notify.backend: log.")
		}
		if c, ok := n.(io.Closer); ok {
			defer c.Close()
		}
	}

	var rec metrics.Recorder = metrics.Noop{}
	var prom *metrics.Prom
	if cfg.Metrics.Listen != "" {
		prom = metrics.NewProm()
		rec = prom
	}

	m, err := monitor.New(cfg, n, monitor.Options{
		Log:     log,
		Metrics: rec,
		Sources: opts.Sources,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if prom != nil {
		prom.ObserveBus(m.Bus().Len, m.Bus().Cap)
		srv, err := metrics.Listen(cfg.Metrics.Listen, prom, logger.WithPrefix(log, "[metrics]"))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrStartup,
				"Can't serve metrics on "+cfg.Metrics.Listen,
				"Pick a free address for metrics.listen, or leave it empty to disable metrics.")
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error("metrics server stopped: %v", err)
			}
		}()
		log.Info("serving metrics on http://%s/metrics", srv.Addr())
	}

	if cfg.Notify.Startup || opts.TestNotify {
		if err := m.SendStartupNotification(ctx); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(m.Kinds()))
	for _, k := range m.Kinds() {
		names = append(names, string(k))
	}
	log.Info("monitoring %s via %s notifications", strings.Join(names, ", "), cfg.Notify.Backend)

	return m.Run(ctx)
}
