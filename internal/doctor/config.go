package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
)

// ConfigFileCheck verifies that a config file exists. Running on defaults
// is allowed, so a missing file is only a warning.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(ctx context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Error finding config: %s", errors.Summarize(err)),
			Suggestion: "Check the --config path, or run 'vigil init' to create a config",
		}
	}

	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found, using built-in defaults",
			Suggestion: fmt.Sprintf("Run 'vigil init' to write one to %s", config.DefaultPath()),
			Fixable:    true,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}

// Fix writes the default config when none exists.
func (c *ConfigFileCheck) Fix() error {
	path, err := config.Find(c.ConfigPath)
	if err != nil || path != "" {
		return err
	}
	return config.WriteFile(config.DefaultPath(), config.DefaultConfig(), false)
}

// ConfigSchemaCheck verifies that the effective config (file, defaults and
// VIGIL_* environment) passes validation.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run(ctx context.Context) CheckResult {
	cfg, _, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Failed to load config: %s", errors.Summarize(err)),
			Suggestion: "Check the YAML syntax in your config file",
		}
	}

	if err := config.Validate(cfg); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Schema error: %s", errors.Summarize(err)),
			Suggestion: errors.SuggestionOf(err),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Schema valid, watching %s", enabledMetrics(cfg)),
	}
}

func (c *ConfigSchemaCheck) Fix() error {
	return nil // Schema issues require manual intervention
}

func enabledMetrics(cfg *config.Config) string {
	var names []string
	if cfg.CPU.Enabled {
		names = append(names, "cpu")
	}
	if cfg.Memory.Enabled {
		names = append(names, "memory")
	}
	if cfg.Temperature.Enabled {
		names = append(names, "temperature")
	}
	if cfg.Battery.Enabled {
		names = append(names, "battery")
	}
	if len(names) == 0 {
		return "nothing"
	}
	return strings.Join(names, ", ")
}

// NewConfigChecks creates all config-related checks.
func NewConfigChecks(configPath string) []Check {
	return []Check{
		&ConfigFileCheck{ConfigPath: configPath},
		&ConfigSchemaCheck{ConfigPath: configPath},
	}
}
