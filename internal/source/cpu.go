package source

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/rileyhilliard/vigil/internal/errors"
)

// TimesFunc matches cpu.TimesWithContext.
type TimesFunc func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)

// cpuTicks holds the counters needed for the delta between two reads.
type cpuTicks struct {
	total float64
	idle  float64
}

// CPU reports average CPU usage in percent across all cores since the
// previous Read on the same handle. The first Read only records a baseline
// and reports absent.
type CPU struct {
	times  TimesFunc
	prev   cpuTicks
	primed bool
}

// NewCPU returns a CPU handle backed by gopsutil.
func NewCPU() *CPU {
	return NewCPUWith(cpu.TimesWithContext)
}

// NewCPUWith returns a CPU handle using the given times function.
func NewCPUWith(times TimesFunc) *CPU {
	return &CPU{times: times}
}

// Read implements Source.
func (c *CPU) Read(ctx context.Context) (float64, bool, error) {
	stats, err := c.times(ctx, false)
	if err != nil {
		return 0, false, errors.Wrap(err, "Failed to read CPU times")
	}
	if len(stats) == 0 {
		return 0, false, errors.Wrap(fmt.Errorf("no aggregate cpu line"), "Failed to read CPU times")
	}

	cur := ticksOf(stats[0])
	prev, hadPrev := c.prev, c.primed
	c.prev, c.primed = cur, true

	if !hadPrev || cur.total <= prev.total {
		// No baseline yet, or counters didn't advance (or reset)
		return 0, false, nil
	}

	totalDelta := cur.total - prev.total
	idleDelta := cur.idle - prev.idle
	usage := (totalDelta - idleDelta) / totalDelta * 100

	if usage < 0 {
		usage = 0
	}
	if usage > 100 {
		usage = 100
	}
	return usage, true, nil
}

// ticksOf sums the /proc/stat style counters. Guest time is already part of
// user time on Linux, so it is left out of the total.
func ticksOf(t cpu.TimesStat) cpuTicks {
	idle := t.Idle + t.Iowait
	total := t.User + t.Nice + t.System + t.Irq + t.Softirq + t.Steal + idle
	return cpuTicks{total: total, idle: idle}
}
