package monitor

import (
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/event"
)

// Number is any measured value a sampler can compare against a limit.
type Number interface {
	~float64 | ~uint64 | ~uint32
}

// Comparison is the direction in which a value breaches its limit.
type Comparison int

const (
	// Above breaches when the value is strictly greater than the limit.
	Above Comparison = iota
	// Below breaches when the value is strictly less than the limit.
	Below
)

func (c Comparison) String() string {
	if c == Below {
		return "below"
	}
	return "above"
}

// Threshold is a fixed limit for one metric.
type Threshold[T Number] struct {
	Metric     event.Kind
	Comparison Comparison
	Limit      T
	Unit       string
}

// Breached reports whether v is strictly past the limit. A value equal to
// the limit never breaches.
func (t Threshold[T]) Breached(v T) bool {
	if t.Comparison == Below {
		return v < t.Limit
	}
	return v > t.Limit
}

// Thresholds holds one limit per metric, as loaded from config.
type Thresholds struct {
	CPU         Threshold[float64]
	Memory      Threshold[uint64]
	Temperature Threshold[float64]
	Battery     Threshold[uint32]
}

// ThresholdsFromConfig builds the limits the samplers and renderer share.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		CPU:         Threshold[float64]{Metric: event.KindCPU, Comparison: Above, Limit: cfg.CPU.Threshold, Unit: "%"},
		Memory:      Threshold[uint64]{Metric: event.KindMemory, Comparison: Below, Limit: cfg.Memory.Threshold, Unit: "B"},
		Temperature: Threshold[float64]{Metric: event.KindTemperature, Comparison: Above, Limit: cfg.Temperature.Threshold, Unit: "°C"},
		Battery:     Threshold[uint32]{Metric: event.KindBattery, Comparison: Below, Limit: cfg.Battery.Threshold, Unit: "%"},
	}
}
