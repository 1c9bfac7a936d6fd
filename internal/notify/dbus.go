package notify

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rileyhilliard/vigil/internal/errors"
)

const (
	notificationsService = "org.freedesktop.Notifications"
	notificationsPath    = dbus.ObjectPath("/org/freedesktop/Notifications")

	// AppName is shown by the notification server as the sender.
	AppName = "vigil"
	// Icon is a freedesktop icon theme name.
	Icon = "dialog-warning"
)

// caller is the part of dbus.BusObject the notifier needs.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// ServerInfo is what GetServerInformation reports.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DBus sends desktop notifications over the session bus.
type DBus struct {
	obj    caller
	expire time.Duration
	closer func() error
}

// NewDBus connects to the session bus. expire is how long the server keeps
// each notification on screen; zero means until dismissed.
func NewDBus(expire time.Duration) (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrNotify,
			"Can't connect to the session D-Bus",
			"Desktop notifications need a graphical session. Check DBUS_SESSION_BUS_ADDRESS, or set notify.backend: log.")
	}
	return &DBus{
		obj:    conn.Object(notificationsService, notificationsPath),
		expire: expire,
		closer: conn.Close,
	}, nil
}

// newDBusWith is used by tests.
func newDBusWith(obj caller, expire time.Duration) *DBus {
	return &DBus{obj: obj, expire: expire}
}

// Notify implements Notifier.
func (d *DBus) Notify(ctx context.Context, summary, body string) error {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(1)), // normal, so expire_timeout is honoured
		"desktop-entry": dbus.MakeVariant(AppName),
	}

	var id uint32
	err := d.obj.CallWithContext(ctx, notificationsService+".Notify", 0,
		AppName,
		uint32(0), // replaces_id
		Icon,
		summary,
		body,
		[]string{}, // actions
		hints,
		expireMillis(d.expire),
	).Store(&id)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrNotify,
			"Failed to send notification '"+summary+"'",
			"Is a notification daemon running? Try 'vigil doctor'.")
	}
	return nil
}

// ServerInformation asks the notification server to identify itself.
func (d *DBus) ServerInformation(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := d.obj.CallWithContext(ctx, notificationsService+".GetServerInformation", 0).
		Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion)
	if err != nil {
		return ServerInfo{}, errors.WrapWithCode(err, errors.ErrNotify,
			"No notification server answered on the session bus",
			"Start a notification daemon (dunst, mako, your desktop's built-in one), or set notify.backend: log.")
	}
	return info, nil
}

// Close releases the bus connection.
func (d *DBus) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// expireMillis converts to the int32 milliseconds the protocol expects.
func expireMillis(d time.Duration) int32 {
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		return int32(^uint32(0) >> 1)
	}
	return int32(ms)
}
