package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rileyhilliard/vigil/internal/doctor"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCheck struct {
	name     string
	category string
	result   doctor.CheckResult
	fixed    *doctor.CheckResult
	fixCalls int
}

func (s *stubCheck) Name() string     { return s.name }
func (s *stubCheck) Category() string { return s.category }
func (s *stubCheck) Run(context.Context) doctor.CheckResult {
	if s.fixCalls > 0 && s.fixed != nil {
		return *s.fixed
	}
	return s.result
}
func (s *stubCheck) Fix() error {
	s.fixCalls++
	return nil
}

func TestDoctor_TextReport(t *testing.T) {
	ui.DisableColors()

	checks := []doctor.Check{
		&stubCheck{name: "cpu", category: doctor.CategorySources,
			result: doctor.CheckResult{Status: doctor.StatusPass, Message: "CPU usage 3.00%"}},
		&stubCheck{name: "config_file", category: doctor.CategoryConfig,
			result: doctor.CheckResult{Status: doctor.StatusWarn, Message: "No config file found", Suggestion: "Run 'vigil init'", Fixable: true}},
	}

	var out bytes.Buffer
	err := Doctor(context.Background(), DoctorOptions{Out: &out, Checks: checks})
	require.NoError(t, err, "warnings alone do not fail")

	text := out.String()
	assert.Contains(t, text, "vigil diagnostic report")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("CONFIG")), bytes.Index(out.Bytes(), []byte("SOURCES")),
		"categories follow a fixed order")
	assert.Contains(t, text, "Run 'vigil init'")
	assert.Contains(t, text, "1 issue found")
	assert.Contains(t, text, "--fix")
}

func TestDoctor_FailureExitCode(t *testing.T) {
	checks := []doctor.Check{
		&stubCheck{name: "notification_service", category: doctor.CategoryNotify,
			result: doctor.CheckResult{Status: doctor.StatusFail, Message: "no session bus"}},
	}

	err := Doctor(context.Background(), DoctorOptions{Out: &bytes.Buffer{}, Checks: checks})
	code, ok := errors.GetExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestDoctor_FixReruns(t *testing.T) {
	check := &stubCheck{name: "config_file", category: doctor.CategoryConfig,
		result: doctor.CheckResult{Status: doctor.StatusWarn, Message: "missing", Fixable: true},
		fixed:  &doctor.CheckResult{Status: doctor.StatusPass, Message: "Config file: /tmp/x"},
	}

	var out bytes.Buffer
	err := Doctor(context.Background(), DoctorOptions{Out: &out, Fix: true, Checks: []doctor.Check{check}})
	require.NoError(t, err)

	assert.Equal(t, 1, check.fixCalls)
	assert.Contains(t, out.String(), "Everything looks good")
}

func TestDoctor_JSON(t *testing.T) {
	checks := []doctor.Check{
		&stubCheck{name: "memory", category: doctor.CategorySources,
			result: doctor.CheckResult{Status: doctor.StatusPass, Message: "3.00 GB available"}},
		&stubCheck{name: "temperature", category: doctor.CategorySources,
			result: doctor.CheckResult{Status: doctor.StatusWarn, Message: "No sensor matches labels [cpu]"}},
	}

	var out bytes.Buffer
	require.NoError(t, Doctor(context.Background(), DoctorOptions{Out: &out, JSON: true, Checks: checks}))

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Categories []struct {
				Name    string `json:"name"`
				Results []struct {
					Name   string `json:"name"`
					Status string `json:"status"`
				} `json:"results"`
			} `json:"categories"`
			Summary SummaryOutput `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))

	require.Len(t, env.Data.Categories, 1)
	assert.Equal(t, doctor.CategorySources, env.Data.Categories[0].Name)
	require.Len(t, env.Data.Categories[0].Results, 2)
	assert.Equal(t, "memory", env.Data.Categories[0].Results[0].Name)
	assert.Equal(t, "warn", env.Data.Categories[0].Results[1].Status)
	assert.Equal(t, SummaryOutput{Pass: 1, Warn: 1}, env.Data.Summary)
}

func TestPluralSuffix(t *testing.T) {
	assert.Equal(t, "", pluralSuffix(1))
	assert.Equal(t, "s", pluralSuffix(0))
	assert.Equal(t, "s", pluralSuffix(2))
}
