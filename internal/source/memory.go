package source

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/rileyhilliard/vigil/internal/errors"
)

// VirtualMemoryFunc matches mem.VirtualMemoryWithContext.
type VirtualMemoryFunc func(ctx context.Context) (*mem.VirtualMemoryStat, error)

// Memory reports available memory in bytes.
type Memory struct {
	vm VirtualMemoryFunc
}

// NewMemory returns a Memory handle backed by gopsutil.
func NewMemory() *Memory {
	return NewMemoryWith(mem.VirtualMemoryWithContext)
}

// NewMemoryWith returns a Memory handle using the given function.
func NewMemoryWith(vm VirtualMemoryFunc) *Memory {
	return &Memory{vm: vm}
}

// Read implements Source.
func (m *Memory) Read(ctx context.Context) (uint64, bool, error) {
	stat, err := m.vm(ctx)
	if err != nil {
		return 0, false, errors.Wrap(err, "Failed to read memory stats")
	}
	if stat == nil {
		return 0, false, errors.Wrap(fmt.Errorf("empty memory stats"), "Failed to read memory stats")
	}
	return stat.Available, true, nil
}
