package monitor

import (
	"fmt"

	"github.com/rileyhilliard/vigil/internal/event"
)

const gib = 1 << 30

// Notification summaries, one per event kind.
const (
	SummaryCPU         = "CPU High"
	SummaryMemory      = "Memory Low"
	SummaryTemperature = "Temperature Warning"
	SummaryBattery     = "Battery Warning"
)

// Render turns an event into the notification summary and body shown to the
// user. Limits come from th so the message names the configured threshold.
func Render(e event.Event, th Thresholds) (summary, body string) {
	switch v := e.(type) {
	case event.CPUHigh:
		return SummaryCPU, fmt.Sprintf("CPU usage exceeds %g%%: %.2f%%", th.CPU.Limit, v.Usage)
	case event.MemoryLow:
		return SummaryMemory, fmt.Sprintf("Available memory below %.1fGB: %.2f GB",
			float64(th.Memory.Limit)/gib, float64(v.Available)/gib)
	case event.TemperatureHigh:
		return SummaryTemperature, fmt.Sprintf("CPU temperature exceeds %g°C: %.1f°C", th.Temperature.Limit, v.Celsius)
	case event.BatteryLow:
		return SummaryBattery, fmt.Sprintf("Battery below %d%%: %d%%", th.Battery.Limit, v.Percent)
	default:
		return "vigil", e.String()
	}
}

// FormatValue renders a measured value the way notifications do, for tables
// and logs.
func FormatValue(kind event.Kind, v float64) string {
	switch kind {
	case event.KindCPU:
		return fmt.Sprintf("%.2f%%", v)
	case event.KindMemory:
		return fmt.Sprintf("%.2f GB", v/gib)
	case event.KindTemperature:
		return fmt.Sprintf("%.1f°C", v)
	case event.KindBattery:
		return fmt.Sprintf("%.0f%%", v)
	default:
		return fmt.Sprintf("%g", v)
	}
}
