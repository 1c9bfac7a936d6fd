package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Battery provider names.
const (
	BatterySysfs  = "sysfs"
	BatteryUPower = "upower"
)

// Notification backend names.
const (
	NotifyDBus = "dbus"
	NotifyLog  = "log"
)

// Config represents the complete vigil configuration file.
type Config struct {
	Version     int               `yaml:"version" mapstructure:"version"`
	Bus         BusConfig         `yaml:"bus" mapstructure:"bus"`
	Sampler     SamplerConfig     `yaml:"sampler" mapstructure:"sampler"`
	CPU         CPUConfig         `yaml:"cpu" mapstructure:"cpu"`
	Memory      MemoryConfig      `yaml:"memory" mapstructure:"memory"`
	Temperature TemperatureConfig `yaml:"temperature" mapstructure:"temperature"`
	Battery     BatteryConfig     `yaml:"battery" mapstructure:"battery"`
	Notify      NotifyConfig      `yaml:"notify" mapstructure:"notify"`
	Dispatch    DispatchConfig    `yaml:"dispatch" mapstructure:"dispatch"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// BusConfig sizes the queue between samplers and the dispatcher.
type BusConfig struct {
	// Capacity is how many events can wait before samplers block.
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// SamplerConfig holds settings shared by every sampler.
type SamplerConfig struct {
	// Backoff is the pause after a failed read before the next tick.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff"`
}

// CPUConfig alerts when average CPU usage rises above Threshold percent.
type CPUConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	Threshold float64       `yaml:"threshold" mapstructure:"threshold"`
}

// MemoryConfig alerts when available memory drops below Threshold bytes.
type MemoryConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	Threshold uint64        `yaml:"threshold" mapstructure:"threshold"`
}

// TemperatureConfig alerts when the CPU sensor rises above Threshold °C.
type TemperatureConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	Threshold float64       `yaml:"threshold" mapstructure:"threshold"`

	// Labels are case-insensitive substrings; the first sensor whose key
	// contains any of them is the CPU sensor.
	Labels []string `yaml:"labels" mapstructure:"labels"`
}

// BatteryConfig alerts when a discharging battery drops below Threshold percent.
type BatteryConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	Threshold uint32        `yaml:"threshold" mapstructure:"threshold"`

	// Provider is "sysfs" (read power_supply files) or "upower" (query D-Bus).
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Device is the power_supply entry used by the sysfs provider.
	Device string `yaml:"device" mapstructure:"device"`

	// SysfsRoot is the power_supply class directory.
	SysfsRoot string `yaml:"sysfs_root" mapstructure:"sysfs_root"`
}

// NotifyConfig controls how alerts reach the user.
type NotifyConfig struct {
	// Backend is "dbus" (desktop notifications) or "log" (log lines only).
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Expire is how long the desktop keeps a notification on screen.
	Expire time.Duration `yaml:"expire" mapstructure:"expire"`

	// Startup sends a test notification when the daemon starts.
	Startup bool `yaml:"startup" mapstructure:"startup"`
}

// DispatchConfig holds the dispatcher's repeat-notification policy.
type DispatchConfig struct {
	// Cooldown suppresses repeats of the same kind inside the window.
	// Zero notifies on every breach.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
}

// MetricsConfig controls the optional Prometheus endpoint for vigil's own counters.
type MetricsConfig struct {
	// Listen is a host:port; empty disables the endpoint.
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// DefaultMemoryThreshold is 2 GiB.
const DefaultMemoryThreshold uint64 = 2 * 1024 * 1024 * 1024

// DefaultConfig returns a Config with the stock thresholds and schedules.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Bus: BusConfig{
			Capacity: 32,
		},
		Sampler: SamplerConfig{
			Backoff: 60 * time.Second,
		},
		CPU: CPUConfig{
			Enabled:   true,
			Interval:  30 * time.Second,
			Threshold: 90,
		},
		Memory: MemoryConfig{
			Enabled:   true,
			Interval:  30 * time.Second,
			Threshold: DefaultMemoryThreshold,
		},
		Temperature: TemperatureConfig{
			Enabled:   true,
			Interval:  60 * time.Second,
			Threshold: 70,
			Labels:    []string{"cpu"},
		},
		Battery: BatteryConfig{
			Enabled:   true,
			Interval:  time.Hour,
			Threshold: 82,
			Provider:  BatterySysfs,
			Device:    "BAT0",
			SysfsRoot: "/sys/class/power_supply",
		},
		Notify: NotifyConfig{
			Backend: NotifyDBus,
			Timeout: 5 * time.Second,
			Expire:  15 * time.Second,
		},
	}
}
