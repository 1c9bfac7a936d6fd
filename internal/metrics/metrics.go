// Package metrics exposes vigil's own counters to Prometheus.
//
// Only daemon health is exported (samples taken, read failures, events,
// deliveries, bus depth). Host metric values never leave the machine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rileyhilliard/vigil/internal/event"
)

// Recorder receives pipeline counters. Monitor code calls it unconditionally;
// use Noop when the endpoint is disabled.
type Recorder interface {
	Sampled(kind event.Kind)
	ReadFailed(kind event.Kind)
	Absent(kind event.Kind)
	Emitted(kind event.Kind)
	Delivered(kind event.Kind)
	DeliveryFailed(kind event.Kind)
	Suppressed(kind event.Kind)
}

// Noop discards everything.
type Noop struct{}

func (Noop) Sampled(event.Kind)        {}
func (Noop) ReadFailed(event.Kind)     {}
func (Noop) Absent(event.Kind)         {}
func (Noop) Emitted(event.Kind)        {}
func (Noop) Delivered(event.Kind)      {}
func (Noop) DeliveryFailed(event.Kind) {}
func (Noop) Suppressed(event.Kind)     {}

// Prom is a Recorder backed by a private Prometheus registry.
type Prom struct {
	registry *prometheus.Registry

	samples       *prometheus.CounterVec
	readErrors    *prometheus.CounterVec
	absent        *prometheus.CounterVec
	events        *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

const namespace = "vigil"

// NewProm registers vigil's collectors on a fresh registry, along with the
// standard Go and process collectors.
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Successful metric reads, by metric.",
		}, []string{"metric"}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Failed metric reads, by metric.",
		}, []string{"metric"}),
		absent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "absent_total",
			Help:      "Reads where the metric was not available, by metric.",
		}, []string{"metric"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Threshold breaches sent to the event bus, by metric.",
		}, []string{"metric"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification outcomes, by metric and result (sent, failed, suppressed).",
		}, []string{"metric", "result"}),
	}

	p.registry.MustRegister(
		p.samples, p.readErrors, p.absent, p.events, p.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveBus publishes queue depth and capacity as gauges read at scrape time.
func (p *Prom) ObserveBus(length, capacity func() int) {
	p.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_depth",
			Help:      "Events waiting for the dispatcher.",
		}, func() float64 { return float64(length()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_capacity",
			Help:      "Maximum events the bus holds before samplers block.",
		}, func() float64 { return float64(capacity()) }),
	)
}

func (p *Prom) Sampled(kind event.Kind)    { p.samples.WithLabelValues(string(kind)).Inc() }
func (p *Prom) ReadFailed(kind event.Kind) { p.readErrors.WithLabelValues(string(kind)).Inc() }
func (p *Prom) Absent(kind event.Kind)     { p.absent.WithLabelValues(string(kind)).Inc() }
func (p *Prom) Emitted(kind event.Kind)    { p.events.WithLabelValues(string(kind)).Inc() }

func (p *Prom) Delivered(kind event.Kind) {
	p.notifications.WithLabelValues(string(kind), "sent").Inc()
}

func (p *Prom) DeliveryFailed(kind event.Kind) {
	p.notifications.WithLabelValues(string(kind), "failed").Inc()
}

func (p *Prom) Suppressed(kind event.Kind) {
	p.notifications.WithLabelValues(string(kind), "suppressed").Inc()
}
