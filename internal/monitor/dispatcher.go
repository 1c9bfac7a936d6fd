package monitor

import (
	"context"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/event"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/metrics"
	"github.com/rileyhilliard/vigil/internal/notify"
)

// DefaultNotifyTimeout bounds one delivery when no timeout is configured.
const DefaultNotifyTimeout = 5 * time.Second

// DispatcherOptions are the optional knobs of a Dispatcher.
type DispatcherOptions struct {
	// Timeout bounds each Notify call.
	Timeout time.Duration
	// Cooldown suppresses repeats of the same kind within the window.
	// Zero delivers every event.
	Cooldown time.Duration
	Log      logger.Logger
	Metrics  metrics.Recorder
	// Now is the clock used for cooldown; tests replace it.
	Now func() time.Time
}

// Dispatcher is the single consumer of the event bus. It renders each event
// and hands it to the notifier, in arrival order.
type Dispatcher struct {
	events   <-chan event.Event
	notifier notify.Notifier
	th       Thresholds

	timeout  time.Duration
	cooldown time.Duration
	log      logger.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	lastSent map[event.Kind]time.Time
}

// NewDispatcher creates a dispatcher reading from events.
func NewDispatcher(events <-chan event.Event, n notify.Notifier, th Thresholds, opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		events:   events,
		notifier: n,
		th:       th,
		timeout:  opts.Timeout,
		cooldown: opts.Cooldown,
		log:      opts.Log,
		metrics:  opts.Metrics,
		now:      opts.Now,
		lastSent: make(map[event.Kind]time.Time),
	}
	if d.timeout <= 0 {
		d.timeout = DefaultNotifyTimeout
	}
	if d.log == nil {
		d.log = logger.Noop()
	}
	if d.metrics == nil {
		d.metrics = metrics.Noop{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Run delivers events until the bus is closed and drained, or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-d.events:
			if !ok {
				return
			}
			d.handle(ctx, e)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, e event.Event) {
	kind := e.Kind()

	if d.cooldown > 0 {
		if last, seen := d.lastSent[kind]; seen && d.now().Sub(last) < d.cooldown {
			d.metrics.Suppressed(kind)
			d.log.Debug("suppressing %s, last %s notification was %s ago", e, kind, d.now().Sub(last).Round(time.Second))
			return
		}
	}

	summary, body := Render(e, d.th)

	nctx, cancel := context.WithTimeout(ctx, d.timeout)
	err := d.notifier.Notify(nctx, summary, body)
	cancel()

	if err != nil {
		d.metrics.DeliveryFailed(kind)
		d.log.Error("notification for %s not delivered: %s", e, errors.Summarize(err))
		return
	}

	d.lastSent[kind] = d.now()
	d.metrics.Delivered(kind)
	d.log.Info("%s: %s", summary, body)
}
