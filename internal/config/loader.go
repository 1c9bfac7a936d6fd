package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigDirName is the directory under the XDG config home.
	ConfigDirName = "vigil"
	// ConfigFileName is the config file name inside ConfigDirName.
	ConfigFileName = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. VIGIL_CPU_THRESHOLD.
	EnvPrefix = "VIGIL"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'vigil init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. $XDG_CONFIG_HOME/vigil/config.yaml
// 3. ~/.config/vigil/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	for _, candidate := range SearchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

// SearchPaths lists the implicit config locations in priority order.
func SearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		p := filepath.Join(home, ".config", ConfigDirName, ConfigFileName)
		if len(paths) == 0 || paths[0] != p {
			paths = append(paths, p)
		}
	}
	return paths
}

// DefaultPath is where 'vigil init' writes when no path is given.
func DefaultPath() string {
	paths := SearchPaths()
	if len(paths) == 0 {
		return ConfigFileName
	}
	return paths[0]
}

// LoadOrDefault loads config from the found path, or returns defaults (with
// environment overrides applied) if no file exists. The returned path is empty
// when defaults were used.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "environment")
		if err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.Battery.SysfsRoot = Expand(cfg.Battery.SysfsRoot)

	return cfg, nil
}

// setDefaults registers every key with viper. AutomaticEnv only consults the
// environment for keys viper already knows about.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("bus.capacity", d.Bus.Capacity)
	v.SetDefault("sampler.backoff", d.Sampler.Backoff.String())

	v.SetDefault("cpu.enabled", d.CPU.Enabled)
	v.SetDefault("cpu.interval", d.CPU.Interval.String())
	v.SetDefault("cpu.threshold", d.CPU.Threshold)

	v.SetDefault("memory.enabled", d.Memory.Enabled)
	v.SetDefault("memory.interval", d.Memory.Interval.String())
	v.SetDefault("memory.threshold", d.Memory.Threshold)

	v.SetDefault("temperature.enabled", d.Temperature.Enabled)
	v.SetDefault("temperature.interval", d.Temperature.Interval.String())
	v.SetDefault("temperature.threshold", d.Temperature.Threshold)
	v.SetDefault("temperature.labels", d.Temperature.Labels)

	v.SetDefault("battery.enabled", d.Battery.Enabled)
	v.SetDefault("battery.interval", d.Battery.Interval.String())
	v.SetDefault("battery.threshold", d.Battery.Threshold)
	v.SetDefault("battery.provider", d.Battery.Provider)
	v.SetDefault("battery.device", d.Battery.Device)
	v.SetDefault("battery.sysfs_root", d.Battery.SysfsRoot)

	v.SetDefault("notify.backend", d.Notify.Backend)
	v.SetDefault("notify.timeout", d.Notify.Timeout.String())
	v.SetDefault("notify.expire", d.Notify.Expire.String())
	v.SetDefault("notify.startup", d.Notify.Startup)

	v.SetDefault("dispatch.cooldown", d.Dispatch.Cooldown.String())
	v.SetDefault("metrics.listen", d.Metrics.Listen)
}

// Parse reads config from YAML bytes, applying defaults and environment
// overrides the same way Load does.
func Parse(data []byte) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to parse config",
			"Check the YAML syntax")
	}
	return parseConfig(v, "config")
}

// KnownKeys returns every dotted config key vigil understands, sorted.
func KnownKeys() []string {
	keys := newViper().AllKeys()
	sort.Strings(keys)
	return keys
}
