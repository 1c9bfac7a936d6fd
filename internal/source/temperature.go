package source

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/rileyhilliard/vigil/internal/errors"
)

// TemperaturesFunc matches sensors.TemperaturesWithContext.
type TemperaturesFunc func(ctx context.Context) ([]sensors.TemperatureStat, error)

// DefaultLabels picks the first sensor with "cpu" in its key.
var DefaultLabels = []string{"cpu"}

// Temperature reports the CPU temperature in °C.
type Temperature struct {
	temps  TemperaturesFunc
	labels []string
}

// NewTemperature returns a Temperature handle backed by gopsutil. A sensor
// matches when its key contains any label, ignoring case.
func NewTemperature(labels []string) *Temperature {
	return NewTemperatureWith(sensors.TemperaturesWithContext, labels)
}

// NewTemperatureWith returns a Temperature handle using the given function.
func NewTemperatureWith(temps TemperaturesFunc, labels []string) *Temperature {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	lower := make([]string, len(labels))
	for i, l := range labels {
		lower[i] = strings.ToLower(l)
	}
	return &Temperature{temps: temps, labels: lower}
}

// Read implements Source.
func (t *Temperature) Read(ctx context.Context) (float64, bool, error) {
	stats, err := t.temps(ctx)
	if err != nil && len(stats) == 0 {
		return 0, false, errors.Wrap(err, "Failed to read temperature sensors")
	}
	// gopsutil reports unreadable hwmon entries as warnings next to the
	// readings it did get; those are fine to ignore.

	if s, ok := t.Match(stats); ok {
		return s.Temperature, true, nil
	}
	return 0, false, nil
}

// Match returns the first sensor whose key contains one of the labels.
func (t *Temperature) Match(stats []sensors.TemperatureStat) (sensors.TemperatureStat, bool) {
	for _, s := range stats {
		key := strings.ToLower(s.SensorKey)
		for _, l := range t.labels {
			if strings.Contains(key, l) {
				return s, true
			}
		}
	}
	return sensors.TemperatureStat{}, false
}

// Sensors lists every sensor key gopsutil can see, for diagnostics.
func (t *Temperature) Sensors(ctx context.Context) ([]string, error) {
	stats, err := t.temps(ctx)
	if err != nil && len(stats) == 0 {
		return nil, errors.Wrap(err, "Failed to read temperature sensors")
	}
	keys := make([]string, 0, len(stats))
	for _, s := range stats {
		keys = append(keys, s.SensorKey)
	}
	return keys, nil
}
