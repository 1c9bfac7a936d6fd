package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/event"
)

func TestRender(t *testing.T) {
	th := ThresholdsFromConfig(config.DefaultConfig())

	tests := []struct {
		name        string
		event       event.Event
		wantSummary string
		wantBody    string
	}{
		{
			name:        "cpu high",
			event:       event.CPUHigh{Usage: 95.0},
			wantSummary: "CPU High",
			wantBody:    "CPU usage exceeds 90%: 95.00%",
		},
		{
			name:        "memory low",
			event:       event.MemoryLow{Available: 1500000000},
			wantSummary: "Memory Low",
			wantBody:    "Available memory below 2.0GB: 1.40 GB",
		},
		{
			name:        "temperature high",
			event:       event.TemperatureHigh{Celsius: 71.3},
			wantSummary: "Temperature Warning",
			wantBody:    "CPU temperature exceeds 70°C: 71.3°C",
		},
		{
			name:        "battery low",
			event:       event.BatteryLow{Percent: 75},
			wantSummary: "Battery Warning",
			wantBody:    "Battery below 82%: 75%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, body := Render(tt.event, th)
			assert.Equal(t, tt.wantSummary, summary)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestRender_FractionalLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CPU.Threshold = 87.5
	th := ThresholdsFromConfig(cfg)

	_, body := Render(event.CPUHigh{Usage: 88}, th)
	assert.Equal(t, "CPU usage exceeds 87.5%: 88.00%", body)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "95.00%", FormatValue(event.KindCPU, 95))
	assert.Equal(t, "1.40 GB", FormatValue(event.KindMemory, 1.5e9))
	assert.Equal(t, "71.3°C", FormatValue(event.KindTemperature, 71.3))
	assert.Equal(t, "75%", FormatValue(event.KindBattery, 75))
}
