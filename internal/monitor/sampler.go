package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rileyhilliard/vigil/internal/bus"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/event"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/metrics"
	"github.com/rileyhilliard/vigil/internal/source"
)

// Sender is the producer side of the event bus.
type Sender interface {
	Send(ctx context.Context, e event.Event) error
}

// SamplerOptions are the optional knobs of a Sampler.
type SamplerOptions struct {
	// Backoff is the pause after a failed read. Zero waits for the next tick.
	Backoff time.Duration
	Log     logger.Logger
	Metrics metrics.Recorder
}

// Sampler reads one metric on a fixed schedule and sends an event to the
// bus each time the reading breaches its threshold. It owns its source
// handle; nothing else reads from it.
type Sampler[T Number] struct {
	src       source.Source[T]
	threshold Threshold[T]
	interval  time.Duration
	emit      func(T) event.Event
	out       Sender

	backoff time.Duration
	log     logger.Logger
	metrics metrics.Recorder
}

// NewSampler creates a sampler. emit converts a breaching reading into its
// event.
func NewSampler[T Number](src source.Source[T], threshold Threshold[T], interval time.Duration,
	emit func(T) event.Event, out Sender, opts SamplerOptions) (*Sampler[T], error) {
	if src == nil || emit == nil || out == nil {
		return nil, fmt.Errorf("sampler for %s: source, emit and sender are required", threshold.Metric)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sampler for %s: interval must be positive, got %s", threshold.Metric, interval)
	}
	if opts.Backoff < 0 {
		return nil, fmt.Errorf("sampler for %s: backoff can't be negative", threshold.Metric)
	}

	s := &Sampler[T]{
		src:       src,
		threshold: threshold,
		interval:  interval,
		emit:      emit,
		out:       out,
		backoff:   opts.Backoff,
		log:       opts.Log,
		metrics:   opts.Metrics,
	}
	if s.log == nil {
		s.log = logger.Noop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	return s, nil
}

// Kind is the metric this sampler watches.
func (s *Sampler[T]) Kind() event.Kind {
	return s.threshold.Metric
}

// Run samples immediately, then once per interval, until ctx is cancelled or
// the bus is closed. Either way it returns nil.
func (s *Sampler[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		stop, failed := s.step(ctx)
		if stop {
			return nil
		}

		if failed && s.backoff > 0 {
			if !sleep(ctx, s.backoff) {
				return nil
			}
			ticker.Reset(s.interval)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// step does one read and, on a breach, one send. stop means the sampler
// should exit; failed means the read errored and backoff applies.
func (s *Sampler[T]) step(ctx context.Context) (stop, failed bool) {
	kind := s.threshold.Metric

	v, ok, err := s.src.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true, false
		}
		s.metrics.ReadFailed(kind)
		s.log.Warn("%s read failed, retrying in %s: %s", kind, s.backoff, errors.Summarize(err))
		return false, true
	}

	if !ok {
		s.metrics.Absent(kind)
		s.log.Debug("%s not available", kind)
		return false, false
	}

	s.metrics.Sampled(kind)
	if !s.threshold.Breached(v) {
		s.log.Debug("%s %v within limit %v", kind, v, s.threshold.Limit)
		return false, false
	}

	e := s.emit(v)
	if err := s.out.Send(ctx, e); err != nil {
		if stderrors.Is(err, bus.ErrClosed) || ctx.Err() != nil {
			return true, false
		}
		s.log.Warn("%s: dropping %s: %v", kind, e, err)
		return false, false
	}

	s.metrics.Emitted(kind)
	s.log.Debug("%s breached %s %v: sent %s", kind, s.threshold.Comparison, s.threshold.Limit, e)
	return false, false
}

// sleep waits for d or until ctx is done. It returns false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
