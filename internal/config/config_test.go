package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vigil/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, 32, cfg.Bus.Capacity)
	assert.Equal(t, 60*time.Second, cfg.Sampler.Backoff)

	assert.True(t, cfg.CPU.Enabled)
	assert.Equal(t, 30*time.Second, cfg.CPU.Interval)
	assert.Equal(t, 90.0, cfg.CPU.Threshold)

	assert.True(t, cfg.Memory.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Memory.Interval)
	assert.Equal(t, uint64(2147483648), cfg.Memory.Threshold)

	assert.True(t, cfg.Temperature.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Temperature.Interval)
	assert.Equal(t, 70.0, cfg.Temperature.Threshold)
	assert.Equal(t, []string{"cpu"}, cfg.Temperature.Labels)

	assert.True(t, cfg.Battery.Enabled)
	assert.Equal(t, time.Hour, cfg.Battery.Interval)
	assert.Equal(t, uint32(82), cfg.Battery.Threshold)
	assert.Equal(t, BatterySysfs, cfg.Battery.Provider)
	assert.Equal(t, "BAT0", cfg.Battery.Device)
	assert.Equal(t, "/sys/class/power_supply", cfg.Battery.SysfsRoot)

	assert.Equal(t, NotifyDBus, cfg.Notify.Backend)
	assert.Equal(t, 5*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Notify.Expire)
	assert.False(t, cfg.Notify.Startup)

	assert.Zero(t, cfg.Dispatch.Cooldown)
	assert.Empty(t, cfg.Metrics.Listen)

	require.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
version: 1
cpu:
  interval: 10s
  threshold: 85.5
memory:
  enabled: false
temperature:
  labels: [coretemp, k10temp]
battery:
  provider: upower
  threshold: 20
notify:
  backend: log
dispatch:
  cooldown: 10m
metrics:
  listen: 127.0.0.1:9273
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.CPU.Interval)
	assert.Equal(t, 85.5, cfg.CPU.Threshold)
	assert.True(t, cfg.CPU.Enabled, "unset keys keep their defaults")
	assert.False(t, cfg.Memory.Enabled)
	assert.Equal(t, []string{"coretemp", "k10temp"}, cfg.Temperature.Labels)
	assert.Equal(t, BatteryUPower, cfg.Battery.Provider)
	assert.Equal(t, uint32(20), cfg.Battery.Threshold)
	assert.Equal(t, time.Hour, cfg.Battery.Interval)
	assert.Equal(t, NotifyLog, cfg.Notify.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Dispatch.Cooldown)
	assert.Equal(t, "127.0.0.1:9273", cfg.Metrics.Listen)
	assert.Equal(t, 32, cfg.Bus.Capacity)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("cpu: [unclosed"), 0644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VIGIL_CPU_THRESHOLD", "75")
	t.Setenv("VIGIL_NOTIFY_BACKEND", "log")
	t.Setenv("VIGIL_BATTERY_ENABLED", "false")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("cpu:\n  threshold: 95\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 75.0, cfg.CPU.Threshold, "environment beats the file")
	assert.Equal(t, NotifyLog, cfg.Notify.Backend)
	assert.False(t, cfg.Battery.Enabled)
}

func TestLoad_ExpandsSysfsRoot(t *testing.T) {
	home := getHome()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("battery:\n  sysfs_root: ${HOME}/power\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, home+"/power", cfg.Battery.SysfsRoot)
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0644))

		found, err := Find(configPath)
		require.NoError(t, err)
		assert.Equal(t, configPath, found)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("xdg config home", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)
		t.Setenv("HOME", t.TempDir())

		configPath := filepath.Join(xdg, ConfigDirName, ConfigFileName)
		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
		require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0644))

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, configPath, found)
	})

	t.Run("home fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", home)

		configPath := filepath.Join(home, ".config", ConfigDirName, ConfigFileName)
		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
		require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0644))

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, configPath, found)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("HOME", t.TempDir())

		found, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIGIL_MEMORY_THRESHOLD", "1073741824")

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, uint64(1073741824), cfg.Memory.Threshold, "env applies without a file")
	assert.Equal(t, 90.0, cfg.CPU.Threshold)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("battery:\n  device: BAT1\n"))
	require.NoError(t, err)
	assert.Equal(t, "BAT1", cfg.Battery.Device)
	assert.Equal(t, uint32(82), cfg.Battery.Threshold)
}

func TestKnownKeys(t *testing.T) {
	keys := KnownKeys()
	assert.Contains(t, keys, "cpu.threshold")
	assert.Contains(t, keys, "temperature.labels")
	assert.Contains(t, keys, "battery.sysfs_root")
	assert.Contains(t, keys, "metrics.listen")
	assert.IsIncreasing(t, keys)
}
