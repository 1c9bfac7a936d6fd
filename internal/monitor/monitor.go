package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/vigil/internal/bus"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/event"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/metrics"
	"github.com/rileyhilliard/vigil/internal/notify"
	"github.com/rileyhilliard/vigil/internal/source"
)

// DefaultDrainTimeout caps how long shutdown waits for queued notifications.
const DefaultDrainTimeout = 10 * time.Second

// Sources are the metric handles, one per sampler. A nil field disables
// that sampler.
type Sources struct {
	CPU         source.Source[float64]
	Memory      source.Source[uint64]
	Temperature source.Source[float64]
	Battery     source.Source[uint32]

	closers []io.Closer
}

// Close releases any connections held by the sources.
func (s *Sources) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// OpenSources builds the handles for every enabled metric. A source that
// fails to initialize is left nil and reported in the returned warnings;
// the rest still start.
func OpenSources(cfg *config.Config) (*Sources, []error) {
	s := &Sources{}
	var warnings []error

	if cfg.CPU.Enabled {
		s.CPU = source.NewCPU()
	}
	if cfg.Memory.Enabled {
		s.Memory = source.NewMemory()
	}
	if cfg.Temperature.Enabled {
		s.Temperature = source.NewTemperature(cfg.Temperature.Labels)
	}
	if cfg.Battery.Enabled {
		switch cfg.Battery.Provider {
		case config.BatteryUPower:
			b, err := source.NewUPowerBattery()
			if err != nil {
				warnings = append(warnings, err)
			} else {
				s.Battery = b
				s.closers = append(s.closers, b)
			}
		default:
			s.Battery = source.NewSysfsBattery(cfg.Battery.SysfsRoot, cfg.Battery.Device)
		}
	}

	return s, warnings
}

// Options configure a Monitor.
type Options struct {
	Log     logger.Logger
	Metrics metrics.Recorder
	// Sources overrides OpenSources; tests use it to inject fakes.
	Sources *Sources
	// DrainTimeout caps shutdown; zero uses DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// runner is a started sampler, independent of its value type.
type runner interface {
	Kind() event.Kind
	Run(ctx context.Context) error
}

// Monitor wires samplers, the bus and the dispatcher together and owns their
// lifecycle.
type Monitor struct {
	cfg        *config.Config
	bus        *bus.Bus
	sources    *Sources
	samplers   []runner
	dispatcher *Dispatcher
	notifier   notify.Notifier
	log        logger.Logger
	drain      time.Duration
}

// New builds a Monitor from cfg. It fails only when nothing can run: no
// sampler could be created or the bus is misconfigured. Individual sampler
// failures are logged and that sampler is skipped.
func New(cfg *config.Config, n notify.Notifier, opts Options) (*Monitor, error) {
	log := opts.Log
	if log == nil {
		log = logger.Default()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Noop{}
	}
	if n == nil {
		return nil, errors.New(errors.ErrStartup, "No notifier configured", "This is a bug - please report it.")
	}

	b, err := bus.New(cfg.Bus.Capacity)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStartup,
			"Can't create the event bus",
			"Check bus.capacity in your config.")
	}

	sources := opts.Sources
	if sources == nil {
		var warnings []error
		sources, warnings = OpenSources(cfg)
		for _, w := range warnings {
			log.Warn("sampler disabled: %s", errors.Summarize(w))
		}
	}

	th := ThresholdsFromConfig(cfg)
	sopts := SamplerOptions{Backoff: cfg.Sampler.Backoff, Metrics: rec}
	m := &Monitor{
		cfg:      cfg,
		bus:      b,
		sources:  sources,
		notifier: n,
		log:      log,
		drain:    opts.DrainTimeout,
	}
	if m.drain <= 0 {
		m.drain = DefaultDrainTimeout
	}

	add := func(r runner, err error) {
		if err != nil {
			log.Warn("sampler disabled: %v", err)
			return
		}
		m.samplers = append(m.samplers, r)
	}

	if cfg.CPU.Enabled && sources.CPU != nil {
		sopts.Log = logger.WithPrefix(log, "[cpu]")
		add(NewSampler[float64](sources.CPU, th.CPU, cfg.CPU.Interval,
			func(v float64) event.Event { return event.CPUHigh{Usage: v} }, b, sopts))
	}
	if cfg.Memory.Enabled && sources.Memory != nil {
		sopts.Log = logger.WithPrefix(log, "[memory]")
		add(NewSampler[uint64](sources.Memory, th.Memory, cfg.Memory.Interval,
			func(v uint64) event.Event { return event.MemoryLow{Available: v} }, b, sopts))
	}
	if cfg.Temperature.Enabled && sources.Temperature != nil {
		sopts.Log = logger.WithPrefix(log, "[temperature]")
		add(NewSampler[float64](sources.Temperature, th.Temperature, cfg.Temperature.Interval,
			func(v float64) event.Event { return event.TemperatureHigh{Celsius: v} }, b, sopts))
	}
	if cfg.Battery.Enabled && sources.Battery != nil {
		sopts.Log = logger.WithPrefix(log, "[battery]")
		add(NewSampler[uint32](sources.Battery, th.Battery, cfg.Battery.Interval,
			func(v uint32) event.Event { return event.BatteryLow{Percent: v} }, b, sopts))
	}

	if len(m.samplers) == 0 {
		_ = sources.Close()
		return nil, errors.New(errors.ErrStartup,
			"No samplers could be started",
			"Enable at least one metric and run 'vigil doctor' to see which sources work on this machine.")
	}

	m.dispatcher = NewDispatcher(b.Events(), n, th, DispatcherOptions{
		Timeout:  cfg.Notify.Timeout,
		Cooldown: cfg.Dispatch.Cooldown,
		Log:      logger.WithPrefix(log, "[dispatch]"),
		Metrics:  rec,
	})

	return m, nil
}

// Bus exposes the event bus, e.g. for metrics.
func (m *Monitor) Bus() *bus.Bus {
	return m.bus
}

// Close releases the source handles. Run does this on exit, so Close is
// only needed when Run is never called.
func (m *Monitor) Close() error {
	return m.sources.Close()
}

// Kinds lists the metrics that have a running sampler.
func (m *Monitor) Kinds() []event.Kind {
	kinds := make([]event.Kind, len(m.samplers))
	for i, s := range m.samplers {
		kinds[i] = s.Kind()
	}
	return kinds
}

// SendStartupNotification tells the user monitoring has begun. A failure
// here means alerts would not reach the desktop either.
func (m *Monitor) SendStartupNotification(ctx context.Context) error {
	names := make([]string, 0, len(m.samplers))
	for _, k := range m.Kinds() {
		names = append(names, string(k))
	}

	nctx, cancel := context.WithTimeout(ctx, m.cfg.Notify.Timeout)
	defer cancel()
	err := m.notifier.Notify(nctx, "vigil", fmt.Sprintf("Monitoring %s", strings.Join(names, ", ")))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStartup,
			"Test notification failed",
			"Run 'vigil doctor' to check the notification service, or set notify.backend: log.")
	}
	return nil
}

// Run starts every sampler and the dispatcher, then blocks until ctx is
// cancelled. Shutdown stops the samplers, closes the bus and lets the
// dispatcher deliver whatever is still queued.
func (m *Monitor) Run(ctx context.Context) error {
	defer func() {
		if err := m.sources.Close(); err != nil {
			m.log.Warn("closing sources: %v", err)
		}
	}()

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		m.dispatcher.Run(dispatchCtx)
	}()

	sampleCtx, stopSampling := context.WithCancel(ctx)
	defer stopSampling()

	var wg sync.WaitGroup
	for _, s := range m.samplers {
		wg.Add(1)
		go func(s runner) {
			defer wg.Done()
			if err := s.Run(sampleCtx); err != nil {
				m.log.Error("%s sampler stopped: %v", s.Kind(), err)
			}
		}(s)
	}
	m.log.Info("watching %d metric(s)", len(m.samplers))

	<-ctx.Done()
	m.log.Debug("shutting down")

	stopSampling()
	m.bus.Close()
	wg.Wait()

	select {
	case <-dispatched:
	case <-time.After(m.drain):
		m.log.Warn("gave up waiting for %d queued notification(s)", m.bus.Len())
		stopDispatch()
		<-dispatched
	}
	return nil
}
