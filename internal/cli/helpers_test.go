package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/vigil/internal/monitor"
	"github.com/rileyhilliard/vigil/internal/source"
	"github.com/stretchr/testify/require"
)

// isolateConfig points the config search paths at an empty temp dir so the
// developer's own config never leaks into a test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "run"))
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func fixed[T any](v T, ok bool, err error) source.Func[T] {
	return func(context.Context) (T, bool, error) { return v, ok, err }
}

// fakeSources reports CPU at 95%, 3 GiB free, 45°C and no battery.
func fakeSources() *monitor.Sources {
	return &monitor.Sources{
		CPU:         fixed[float64](95, true, nil),
		Memory:      fixed[uint64](3<<30, true, nil),
		Temperature: fixed[float64](45, true, nil),
		Battery:     fixed[uint32](0, false, nil),
	}
}
