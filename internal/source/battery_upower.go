package source

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/rileyhilliard/vigil/internal/errors"
)

const (
	upowerService   = "org.freedesktop.UPower"
	upowerPath      = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerDeviceIfc = "org.freedesktop.UPower.Device"

	// UPower device enums
	upowerTypeBattery      uint32 = 2
	upowerStateDischarging uint32 = 2
)

// UPowerDevice is the subset of org.freedesktop.UPower.Device vigil uses.
type UPowerDevice struct {
	Path           dbus.ObjectPath
	Type           uint32
	State          uint32
	IsRechargeable bool
	Percentage     float64
}

// UPowerClient lists power devices. The D-Bus implementation talks to the
// system bus; tests substitute a fake.
type UPowerClient interface {
	Devices(ctx context.Context) ([]UPowerDevice, error)
}

// UPowerBattery reads charge from the first rechargeable battery UPower knows.
type UPowerBattery struct {
	client UPowerClient
	closer func() error
}

// NewUPowerBattery connects to the system bus.
func NewUPowerBattery() (*UPowerBattery, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"Can't connect to the system D-Bus",
			"UPower needs the system bus. Use battery.provider: sysfs instead.")
	}
	return &UPowerBattery{client: &dbusUPower{conn: conn}, closer: conn.Close}, nil
}

// NewUPowerBatteryWith uses the given client.
func NewUPowerBatteryWith(client UPowerClient) *UPowerBattery {
	return &UPowerBattery{client: client}
}

// Read implements Source. Absent when no battery exists or it is not discharging.
func (b *UPowerBattery) Read(ctx context.Context) (uint32, bool, error) {
	dev, ok, err := b.Battery(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	if dev.State != upowerStateDischarging {
		return 0, false, nil
	}
	return roundPercent(dev.Percentage), true, nil
}

// Battery returns the first rechargeable battery device.
func (b *UPowerBattery) Battery(ctx context.Context) (UPowerDevice, bool, error) {
	devices, err := b.client.Devices(ctx)
	if err != nil {
		return UPowerDevice{}, false, errors.Wrap(err, "Failed to query UPower devices")
	}
	for _, d := range devices {
		if d.Type == upowerTypeBattery && d.IsRechargeable {
			return d, true, nil
		}
	}
	return UPowerDevice{}, false, nil
}

// Close releases the bus connection.
func (b *UPowerBattery) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

type dbusUPower struct {
	conn *dbus.Conn
}

func (u *dbusUPower) Devices(ctx context.Context) ([]UPowerDevice, error) {
	var paths []dbus.ObjectPath
	err := u.conn.Object(upowerService, upowerPath).
		CallWithContext(ctx, upowerService+".EnumerateDevices", 0).
		Store(&paths)
	if err != nil {
		return nil, fmt.Errorf("EnumerateDevices: %w", err)
	}

	devices := make([]UPowerDevice, 0, len(paths))
	for _, p := range paths {
		var props map[string]dbus.Variant
		err := u.conn.Object(upowerService, p).
			CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, upowerDeviceIfc).
			Store(&props)
		if err != nil {
			return nil, fmt.Errorf("GetAll %s: %w", p, err)
		}
		devices = append(devices, deviceFromProps(p, props))
	}
	return devices, nil
}

func deviceFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) UPowerDevice {
	d := UPowerDevice{Path: path}
	if v, ok := props["Type"].Value().(uint32); ok {
		d.Type = v
	}
	if v, ok := props["State"].Value().(uint32); ok {
		d.State = v
	}
	if v, ok := props["IsRechargeable"].Value().(bool); ok {
		d.IsRechargeable = v
	}
	if v, ok := props["Percentage"].Value().(float64); ok {
		d.Percentage = v
	}
	return d
}
