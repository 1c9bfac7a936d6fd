package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/source"
)

// DefaultCPUWindow is how long the CPU check samples for.
const DefaultCPUWindow = 500 * time.Millisecond

// CPUCheck verifies CPU times can be read and turned into a usage figure.
type CPUCheck struct {
	Source source.Source[float64]
	Window time.Duration
}

func (c *CPUCheck) Name() string     { return "cpu" }
func (c *CPUCheck) Category() string { return CategorySources }

func (c *CPUCheck) Run(ctx context.Context) CheckResult {
	if _, _, err := c.Source.Read(ctx); err != nil {
		return sourceFailure(c.Name(), err)
	}

	select {
	case <-ctx.Done():
		return CheckResult{Name: c.Name(), Status: StatusFail, Message: "Timed out sampling CPU"}
	case <-time.After(c.Window):
	}

	usage, ok, err := c.Source.Read(ctx)
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	if !ok {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: "CPU counters did not advance between samples",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("CPU usage %.2f%%", usage),
	}
}

func (c *CPUCheck) Fix() error { return nil }

// MemoryCheck verifies available memory can be read.
type MemoryCheck struct {
	Source source.Source[uint64]
}

func (c *MemoryCheck) Name() string     { return "memory" }
func (c *MemoryCheck) Category() string { return CategorySources }

func (c *MemoryCheck) Run(ctx context.Context) CheckResult {
	avail, _, err := c.Source.Read(ctx)
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%.2f GB available", float64(avail)/(1<<30)),
	}
}

func (c *MemoryCheck) Fix() error { return nil }

// TemperatureCheck verifies a sensor matches the configured labels.
type TemperatureCheck struct {
	Source *source.Temperature
	Labels []string
}

func (c *TemperatureCheck) Name() string     { return "temperature" }
func (c *TemperatureCheck) Category() string { return CategorySources }

func (c *TemperatureCheck) Run(ctx context.Context) CheckResult {
	keys, err := c.Source.Sensors(ctx)
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	if len(keys) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No temperature sensors visible",
			Suggestion: "Virtual machines often have none. Disable the temperature section if that's expected.",
		}
	}

	celsius, ok, err := c.Source.Read(ctx)
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	if !ok {
		shown := keys
		if len(shown) > 6 {
			shown = shown[:6]
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("No sensor matches labels [%s]", strings.Join(c.Labels, ", ")),
			Suggestion: fmt.Sprintf("Set temperature.labels to match one of: %s", strings.Join(shown, ", ")),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("CPU sensor reads %.1f°C", celsius),
	}
}

func (c *TemperatureCheck) Fix() error { return nil }

// BatteryCheck verifies the configured battery provider can see a battery.
type BatteryCheck struct {
	Provider string
	Sysfs    *source.SysfsBattery
	// UPower is opened lazily when nil.
	UPower *source.UPowerBattery
}

func (c *BatteryCheck) Name() string     { return "battery" }
func (c *BatteryCheck) Category() string { return CategorySources }

func (c *BatteryCheck) Run(ctx context.Context) CheckResult {
	if c.Provider == config.BatteryUPower {
		return c.runUPower(ctx)
	}

	if !c.Sysfs.Present() {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("No battery at %s", c.Sysfs.Dir()),
			Suggestion: "Desktops have no battery, so disable the battery section. On a laptop, check battery.device (ls /sys/class/power_supply).",
		}
	}

	status, err := c.Sysfs.Status()
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	pct, ok, err := c.Sysfs.Percent()
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	if !ok {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s, charge level unknown", status),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s at %d%%", status, pct),
	}
}

func (c *BatteryCheck) runUPower(ctx context.Context) CheckResult {
	b := c.UPower
	if b == nil {
		opened, err := source.NewUPowerBattery()
		if err != nil {
			return sourceFailure(c.Name(), err)
		}
		defer opened.Close()
		b = opened
	}

	dev, ok, err := b.Battery(ctx)
	if err != nil {
		return sourceFailure(c.Name(), err)
	}
	if !ok {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "UPower reports no rechargeable battery",
			Suggestion: "Disable the battery section on machines without one.",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s at %.0f%% (state %d)", dev.Path, dev.Percentage, dev.State),
	}
}

func (c *BatteryCheck) Fix() error { return nil }

func sourceFailure(name string, err error) CheckResult {
	return CheckResult{
		Name:       name,
		Status:     StatusFail,
		Message:    errors.Summarize(err),
		Suggestion: errors.SuggestionOf(err),
	}
}

// NewSourceChecks creates a check for every enabled metric.
func NewSourceChecks(cfg *config.Config) []Check {
	var checks []Check
	if cfg.CPU.Enabled {
		checks = append(checks, &CPUCheck{Source: source.NewCPU(), Window: DefaultCPUWindow})
	}
	if cfg.Memory.Enabled {
		checks = append(checks, &MemoryCheck{Source: source.NewMemory()})
	}
	if cfg.Temperature.Enabled {
		checks = append(checks, &TemperatureCheck{
			Source: source.NewTemperature(cfg.Temperature.Labels),
			Labels: cfg.Temperature.Labels,
		})
	}
	if cfg.Battery.Enabled {
		checks = append(checks, &BatteryCheck{
			Provider: cfg.Battery.Provider,
			Sysfs:    source.NewSysfsBattery(cfg.Battery.SysfsRoot, cfg.Battery.Device),
		})
	}
	return checks
}

// NewChecks builds the full doctor suite for cfg.
func NewChecks(cfg *config.Config, configPath string) []Check {
	var checks []Check
	checks = append(checks, NewConfigChecks(configPath)...)
	checks = append(checks, NewNotifyChecks(cfg)...)
	checks = append(checks, NewSourceChecks(cfg)...)
	return checks
}
