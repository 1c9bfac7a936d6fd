package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
)

type fakeCall struct {
	method string
	args   []interface{}
}

type fakeBus struct {
	calls []fakeCall
	body  []interface{}
	err   error
}

func (f *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, fakeCall{method: method, args: args})
	return &dbus.Call{Body: f.body, Err: f.err}
}

func TestDBus_Notify(t *testing.T) {
	bus := &fakeBus{body: []interface{}{uint32(7)}}
	n := newDBusWith(bus, 15*time.Second)

	require.NoError(t, n.Notify(context.Background(), "CPU High", "CPU usage exceeds 90%: 95.00%"))

	require.Len(t, bus.calls, 1)
	call := bus.calls[0]
	assert.Equal(t, "org.freedesktop.Notifications.Notify", call.method)
	require.Len(t, call.args, 8)
	assert.Equal(t, "vigil", call.args[0])
	assert.Equal(t, uint32(0), call.args[1])
	assert.Equal(t, "dialog-warning", call.args[2])
	assert.Equal(t, "CPU High", call.args[3])
	assert.Equal(t, "CPU usage exceeds 90%: 95.00%", call.args[4])
	assert.Equal(t, []string{}, call.args[5])
	assert.Equal(t, int32(15000), call.args[7])
}

func TestDBus_NotifyError(t *testing.T) {
	bus := &fakeBus{err: fmt.Errorf("org.freedesktop.DBus.Error.ServiceUnknown")}
	n := newDBusWith(bus, time.Second)

	err := n.Notify(context.Background(), "Battery Warning", "Battery below 82%: 75%")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotify))
	assert.Contains(t, err.Error(), "Battery Warning")
	assert.NoError(t, n.Close())
}

func TestDBus_ServerInformation(t *testing.T) {
	bus := &fakeBus{body: []interface{}{"dunst", "knopwob", "1.9.2", "1.2"}}
	n := newDBusWith(bus, time.Second)

	info, err := n.ServerInformation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ServerInfo{Name: "dunst", Vendor: "knopwob", Version: "1.9.2", SpecVersion: "1.2"}, info)
	assert.Equal(t, "org.freedesktop.Notifications.GetServerInformation", bus.calls[0].method)
}

func TestExpireMillis(t *testing.T) {
	assert.Equal(t, int32(0), expireMillis(0))
	assert.Equal(t, int32(15000), expireMillis(15*time.Second))
	assert.Equal(t, int32(2147483647), expireMillis(1000*time.Hour))
}

func TestLog_Notify(t *testing.T) {
	buf := logger.NewBufferLogger()
	n := NewLog(buf)

	require.NoError(t, n.Notify(context.Background(), "Memory Low", "Available memory below 2.0GB: 1.40 GB"))
	assert.True(t, buf.HasLevel("warn"))
	assert.Contains(t, buf.Snapshot()[0].Message, "Memory Low: Available memory below 2.0GB: 1.40 GB")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, "x", "y"), context.Canceled)
}

func TestNew(t *testing.T) {
	n, err := New(config.NotifyConfig{Backend: config.NotifyLog}, logger.Noop())
	require.NoError(t, err)
	assert.IsType(t, &Log{}, n)

	_, err = New(config.NotifyConfig{Backend: "pager"}, logger.Noop())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotify))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Notify(context.Background(), "s", fmt.Sprint(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())

	r.Err = fmt.Errorf("boom")
	assert.Error(t, r.Notify(context.Background(), "s", "b"))
	assert.Len(t, r.Messages(), 21)
}

func TestFuncAndNop(t *testing.T) {
	var got string
	f := Func(func(_ context.Context, summary, body string) error {
		got = summary + "|" + body
		return nil
	})
	require.NoError(t, f.Notify(context.Background(), "a", "b"))
	assert.Equal(t, "a|b", got)

	assert.NoError(t, Nop{}.Notify(context.Background(), "a", "b"))
}
