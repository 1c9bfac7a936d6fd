package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rileyhilliard/vigil/internal/errors"
)

// StatusDischarging is the power_supply status that enables battery alerts.
const StatusDischarging = "Discharging"

// SysfsBattery reads charge from /sys/class/power_supply/<device>/.
type SysfsBattery struct {
	dir string
}

// NewSysfsBattery returns a battery handle for root/device.
func NewSysfsBattery(root, device string) *SysfsBattery {
	return &SysfsBattery{dir: filepath.Join(root, device)}
}

// Dir is the device directory being read.
func (b *SysfsBattery) Dir() string {
	return b.dir
}

// Present reports whether the device directory exists.
func (b *SysfsBattery) Present() bool {
	info, err := os.Stat(b.dir)
	return err == nil && info.IsDir()
}

// Read implements Source. The result is absent when there is no battery or
// the battery is not discharging.
func (b *SysfsBattery) Read(ctx context.Context) (uint32, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	if _, err := os.Stat(b.dir); err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "Cannot access battery at "+b.dir)
	}

	status, err := b.Status()
	if err != nil {
		return 0, false, err
	}
	if status != StatusDischarging {
		return 0, false, nil
	}

	return b.Percent()
}

// Status returns the contents of the status file, e.g. "Charging".
func (b *SysfsBattery) Status() (string, error) {
	status, err := b.readString("status")
	if err != nil {
		return "", errors.Wrap(err, "Failed to read battery status")
	}
	return status, nil
}

// Percent returns the charge level regardless of status. It prefers the
// capacity file and falls back to energy_now/energy_full, then
// charge_now/charge_full.
func (b *SysfsBattery) Percent() (uint32, bool, error) {
	capacity, err := b.readFloat("capacity")
	if err == nil {
		return roundPercent(capacity), true, nil
	}
	if !os.IsNotExist(err) {
		return 0, false, errors.Wrap(err, "Failed to read battery capacity")
	}

	for _, pair := range [][2]string{{"energy_now", "energy_full"}, {"charge_now", "charge_full"}} {
		now, err := b.readFloat(pair[0])
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, false, errors.Wrap(err, "Failed to read battery "+pair[0])
		}
		full, err := b.readFloat(pair[1])
		if err != nil {
			return 0, false, errors.Wrap(err, "Failed to read battery "+pair[1])
		}
		if full <= 0 {
			// Can't compute a ratio; treat as unknown rather than 0% or 100%
			return 0, false, nil
		}
		return roundPercent(now / full * 100), true, nil
	}

	return 0, false, errors.Wrap(
		fmt.Errorf("no capacity, energy_now or charge_now in %s", b.dir),
		"Battery reports no charge level")
}

func (b *SysfsBattery) readString(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (b *SysfsBattery) readFloat(name string) (float64, error) {
	s, err := b.readString(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}
