// Package event defines the threshold-breach events that samplers publish
// and the dispatcher turns into notifications.
//
// Event is a closed set: only the four types in this package implement it.
// Each event carries the measured value so the dispatcher can render it.
package event

import "fmt"

// Kind identifies which metric produced an event.
type Kind string

const (
	KindCPU         Kind = "cpu"
	KindMemory      Kind = "memory"
	KindTemperature Kind = "temperature"
	KindBattery     Kind = "battery"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindCPU, KindMemory, KindTemperature, KindBattery}

// Event is one observed threshold breach.
type Event interface {
	Kind() Kind
	String() string
	sealed()
}

// CPUHigh reports average CPU utilization above the limit, in percent.
type CPUHigh struct {
	Usage float64
}

// MemoryLow reports available memory below the limit, in bytes.
type MemoryLow struct {
	Available uint64
}

// TemperatureHigh reports a CPU sensor reading above the limit, in Celsius.
type TemperatureHigh struct {
	Celsius float64
}

// BatteryLow reports a discharging battery below the limit, in percent.
type BatteryLow struct {
	Percent uint32
}

func (CPUHigh) Kind() Kind         { return KindCPU }
func (MemoryLow) Kind() Kind       { return KindMemory }
func (TemperatureHigh) Kind() Kind { return KindTemperature }
func (BatteryLow) Kind() Kind      { return KindBattery }

func (e CPUHigh) String() string         { return fmt.Sprintf("CPUHigh(%.2f%%)", e.Usage) }
func (e MemoryLow) String() string       { return fmt.Sprintf("MemoryLow(%d bytes)", e.Available) }
func (e TemperatureHigh) String() string { return fmt.Sprintf("TemperatureHigh(%.1f°C)", e.Celsius) }
func (e BatteryLow) String() string      { return fmt.Sprintf("BatteryLow(%d%%)", e.Percent) }

func (CPUHigh) sealed()         {}
func (MemoryLow) sealed()       {}
func (TemperatureHigh) sealed() {}
func (BatteryLow) sealed()      {}
