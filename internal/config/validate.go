package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
)

// MinInterval is the shortest sampling interval accepted from config.
const MinInterval = 500 * time.Millisecond

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but vigil only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade vigil, or regenerate the file with 'vigil init --force'.")
	}

	if cfg.Bus.Capacity < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("bus.capacity must be at least 1, got %d", cfg.Bus.Capacity),
			"The default of 32 is plenty for four samplers.")
	}

	if cfg.Sampler.Backoff < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("sampler.backoff can't be negative (%s)", cfg.Sampler.Backoff),
			"Use a duration like '60s', or '0s' to retry on the next tick.")
	}

	if !cfg.CPU.Enabled && !cfg.Memory.Enabled && !cfg.Temperature.Enabled && !cfg.Battery.Enabled {
		return errors.New(errors.ErrConfig,
			"Every metric is disabled, so there's nothing to watch",
			"Enable at least one of cpu, memory, temperature or battery.")
	}

	if cfg.CPU.Enabled {
		if err := validateInterval("cpu", cfg.CPU.Interval); err != nil {
			return err
		}
		if cfg.CPU.Threshold <= 0 || cfg.CPU.Threshold > 100 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("cpu.threshold must be between 0 and 100, got %g", cfg.CPU.Threshold),
				"It's a percentage of total CPU time, e.g. 90.")
		}
	}

	if cfg.Memory.Enabled {
		if err := validateInterval("memory", cfg.Memory.Interval); err != nil {
			return err
		}
		if cfg.Memory.Threshold == 0 {
			return errors.New(errors.ErrConfig,
				"memory.threshold is 0, so available memory can never drop below it",
				"Set it in bytes, e.g. 2147483648 for 2 GiB.")
		}
	}

	if cfg.Temperature.Enabled {
		if err := validateInterval("temperature", cfg.Temperature.Interval); err != nil {
			return err
		}
		if cfg.Temperature.Threshold <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("temperature.threshold must be above 0°C, got %g", cfg.Temperature.Threshold),
				"Something like 70 or 80 suits most laptops.")
		}
		if err := validateLabels(cfg.Temperature.Labels); err != nil {
			return err
		}
	}

	if cfg.Battery.Enabled {
		if err := validateBattery(cfg.Battery); err != nil {
			return err
		}
	}

	if err := validateNotify(cfg.Notify); err != nil {
		return err
	}

	if cfg.Dispatch.Cooldown < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("dispatch.cooldown can't be negative (%s)", cfg.Dispatch.Cooldown),
			"Use '0s' to notify on every breach, or a window like '10m'.")
	}

	if cfg.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("metrics.listen '%s' isn't a host:port address", cfg.Metrics.Listen),
				"Use something like '127.0.0.1:9273', or leave it empty to disable metrics.")
		}
	}

	return nil
}

func validateInterval(section string, d time.Duration) error {
	if d < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s.interval of %s is too short (minimum %s)", section, d, MinInterval),
			fmt.Sprintf("Use a duration like '30s' in the '%s' section.", section))
	}
	return nil
}

func validateLabels(labels []string) error {
	if len(labels) == 0 {
		return errors.New(errors.ErrConfig,
			"temperature.labels is empty, so no sensor can match",
			"Add at least one label, e.g. [cpu] or [coretemp, k10temp].")
	}
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("temperature.labels has an empty entry at position %d", i),
				"Remove it, an empty label would match every sensor.")
		}
	}
	return nil
}

func validateBattery(b BatteryConfig) error {
	if err := validateInterval("battery", b.Interval); err != nil {
		return err
	}
	if b.Threshold == 0 || b.Threshold > 100 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("battery.threshold must be between 1 and 100, got %d", b.Threshold),
			"It's a charge percentage, e.g. 20.")
	}

	switch b.Provider {
	case BatterySysfs:
		if b.Device == "" {
			return errors.New(errors.ErrConfig,
				"battery.device is empty",
				"Set it to the power_supply entry, usually BAT0 or BAT1.")
		}
		if strings.ContainsAny(b.Device, "/\\") {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("battery.device '%s' contains a path separator", b.Device),
				"Use just the device name, e.g. BAT0. Set battery.sysfs_root to change the directory.")
		}
		if b.SysfsRoot == "" {
			return errors.New(errors.ErrConfig,
				"battery.sysfs_root is empty",
				"The usual value is /sys/class/power_supply.")
		}
	case BatteryUPower:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown battery.provider '%s'", b.Provider),
			fmt.Sprintf("Use '%s' or '%s'.", BatterySysfs, BatteryUPower))
	}
	return nil
}

func validateNotify(n NotifyConfig) error {
	switch n.Backend {
	case NotifyDBus, NotifyLog:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown notify.backend '%s'", n.Backend),
			fmt.Sprintf("Use '%s' for desktop notifications or '%s' to only log alerts.", NotifyDBus, NotifyLog))
	}

	if n.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("notify.timeout must be positive, got %s", n.Timeout),
			"Something like '5s' keeps a stuck notification daemon from stalling alerts.")
	}

	if n.Expire < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("notify.expire can't be negative (%s)", n.Expire),
			"Use '0s' to keep notifications until dismissed, or a duration like '15s'.")
	}
	return nil
}
