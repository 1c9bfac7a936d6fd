package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/event"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/notify"
	"github.com/rileyhilliard/vigil/internal/source"
)

func fastConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CPU.Interval = 5 * time.Millisecond
	cfg.Memory.Interval = 5 * time.Millisecond
	cfg.Temperature.Interval = 5 * time.Millisecond
	cfg.Battery.Interval = 5 * time.Millisecond
	cfg.Sampler.Backoff = 5 * time.Millisecond
	cfg.Notify.Timeout = time.Second
	return cfg
}

func constant[T Number](v T, ok bool) source.Func[T] {
	return func(context.Context) (T, bool, error) { return v, ok, nil }
}

func TestMonitor_EndToEnd(t *testing.T) {
	rec := &notify.Recorder{}
	cfg := fastConfig()

	m, err := New(cfg, rec, Options{
		Log: logger.Noop(),
		Sources: &Sources{
			CPU:         constant(95.0, true),
			Memory:      constant(uint64(1500000000), true),
			Temperature: constant(0.0, false), // no cpu sensor
			Battery:     constant(uint32(0), false),
		},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []event.Kind{event.KindCPU, event.KindMemory, event.KindTemperature, event.KindBattery}, m.Kinds())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		var cpu, mem bool
		for _, msg := range rec.Messages() {
			cpu = cpu || msg.Summary == "CPU High"
			mem = mem || msg.Summary == "Memory Low"
		}
		return cpu && mem
	}, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("monitor did not shut down")
	}
	assert.True(t, m.Bus().Closed())

	for _, msg := range rec.Messages() {
		assert.NotEqual(t, "Temperature Warning", msg.Summary)
		assert.NotEqual(t, "Battery Warning", msg.Summary)
		switch msg.Summary {
		case "CPU High":
			assert.Equal(t, "CPU usage exceeds 90%: 95.00%", msg.Body)
		case "Memory Low":
			assert.Equal(t, "Available memory below 2.0GB: 1.40 GB", msg.Body)
		}
	}
}

func TestMonitor_DisabledMetricsAreSkipped(t *testing.T) {
	cfg := fastConfig()
	cfg.Memory.Enabled = false
	cfg.Temperature.Enabled = false

	m, err := New(cfg, notify.Nop{}, Options{
		Log: logger.Noop(),
		Sources: &Sources{
			CPU:     constant(10.0, true),
			Memory:  constant(uint64(1), true),
			Battery: constant(uint32(50), true),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []event.Kind{event.KindCPU, event.KindBattery}, m.Kinds())
}

func TestMonitor_NoSamplersIsFatal(t *testing.T) {
	_, err := New(fastConfig(), notify.Nop{}, Options{Log: logger.Noop(), Sources: &Sources{}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStartup))
}

func TestMonitor_NilNotifierIsFatal(t *testing.T) {
	_, err := New(fastConfig(), nil, Options{Log: logger.Noop(), Sources: &Sources{CPU: constant(1.0, true)}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStartup))
}

func TestMonitor_BadBusCapacity(t *testing.T) {
	cfg := fastConfig()
	cfg.Bus.Capacity = 0

	_, err := New(cfg, notify.Nop{}, Options{Log: logger.Noop(), Sources: &Sources{CPU: constant(1.0, true)}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStartup))
}

// A source that keeps failing must not stop the others.
func TestMonitor_FailingSourceIsIsolated(t *testing.T) {
	rec := &notify.Recorder{}
	log := logger.NewBufferLogger()

	var failures atomic.Int32
	broken := source.Func[uint32](func(context.Context) (uint32, bool, error) {
		failures.Add(1)
		return 0, false, fmt.Errorf("battery driver wedged")
	})

	cfg := fastConfig()
	cfg.Memory.Enabled = false
	cfg.Temperature.Enabled = false

	m, err := New(cfg, rec, Options{
		Log:     log,
		Sources: &Sources{CPU: constant(99.0, true), Battery: broken},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.Len() >= 3 && failures.Load() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.True(t, log.HasLevel("warn"))
	for _, msg := range rec.Messages() {
		assert.Equal(t, "CPU High", msg.Summary)
	}
}

// Samplers blocked on a full bus are released at shutdown, and whatever was
// queued still gets delivered.
func TestMonitor_ShutdownDrainsQueue(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	n := notify.Func(func(ctx context.Context, _, _ string) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		delivered.Add(1)
		return nil
	})

	cfg := fastConfig()
	cfg.Bus.Capacity = 2
	cfg.Memory.Enabled = false
	cfg.Temperature.Enabled = false
	cfg.Battery.Enabled = false

	m, err := New(cfg, n, Options{Log: logger.Noop(), Sources: &Sources{CPU: constant(99.0, true)}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Dispatcher holds one event, the bus fills up, the sampler blocks.
	require.Eventually(t, func() bool { return m.Bus().Len() == 2 }, 2*time.Second, time.Millisecond)
	cancel()
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("monitor did not shut down")
	}
	assert.Equal(t, int32(3), delivered.Load())
}

func TestMonitor_SendStartupNotification(t *testing.T) {
	rec := &notify.Recorder{}
	cfg := fastConfig()
	cfg.Temperature.Enabled = false
	cfg.Battery.Enabled = false

	m, err := New(cfg, rec, Options{Log: logger.Noop(), Sources: &Sources{
		CPU:    constant(1.0, true),
		Memory: constant(uint64(1<<40), true),
	}})
	require.NoError(t, err)

	require.NoError(t, m.SendStartupNotification(context.Background()))
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, notify.Message{Summary: "vigil", Body: "Monitoring cpu, memory"}, rec.Messages()[0])

	rec.Err = fmt.Errorf("no server")
	err = m.SendStartupNotification(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrStartup))
}

func TestOpenSources(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Battery.SysfsRoot = t.TempDir()
	cfg.Temperature.Enabled = false

	s, warnings := OpenSources(cfg)
	assert.Empty(t, warnings)
	assert.NotNil(t, s.CPU)
	assert.NotNil(t, s.Memory)
	assert.Nil(t, s.Temperature)
	require.NotNil(t, s.Battery)
	assert.IsType(t, &source.SysfsBattery{}, s.Battery)
	assert.NoError(t, s.Close())
}
