// Package source reads host metrics for the samplers.
//
// Each type here is a handle owned by exactly one sampler. A Read returns the
// current value and ok=true, or ok=false when the metric is absent on this
// host (no battery, no matching sensor, battery not discharging). Absent is
// not an error; errors are reserved for reads that should have worked.
package source

import (
	"context"
	"math"
)

// Source is a single metric reader.
type Source[T any] interface {
	Read(ctx context.Context) (T, bool, error)
}

// Func adapts a plain function to Source.
type Func[T any] func(ctx context.Context) (T, bool, error)

// Read calls f.
func (f Func[T]) Read(ctx context.Context) (T, bool, error) {
	return f(ctx)
}

// roundPercent rounds to the nearest whole percent and clamps to 0..100.
func roundPercent(p float64) uint32 {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return uint32(math.Round(p))
}
