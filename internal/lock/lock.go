// Package lock keeps a second 'vigil run' from starting on the same machine,
// which would send every alert twice.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/rileyhilliard/vigil/internal/errors"
)

// DirName is the lock directory created inside the runtime dir.
const DirName = "vigil.lock"

const infoFileName = "info.json"

// InfoGrace is how long a lock directory may exist without a readable info
// file before it counts as stale. A holder writes its info right after mkdir.
const InfoGrace = 5 * time.Second

// Lock represents an acquired single-instance lock.
type Lock struct {
	Dir  string    // The lock directory path
	Info *LockInfo // Info about the lock holder (us)
}

// PidExistsFunc reports whether a process is alive.
type PidExistsFunc func(ctx context.Context, pid int32) (bool, error)

// DefaultDir is where the lock lives: $XDG_RUNTIME_DIR when set, otherwise a
// per-user directory name in the system temp dir.
func DefaultDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "vigil-"+strconv.Itoa(os.Getuid()))
}

// Acquire takes the lock in baseDir. It uses mkdir as the atomic primitive
// (mkdir fails if the directory exists). A lock whose holder is no longer
// running is stale and is taken over.
func Acquire(ctx context.Context, baseDir string) (*Lock, error) {
	return AcquireWith(ctx, baseDir, process.PidExistsWithContext)
}

// AcquireWith is Acquire with an injectable liveness check.
func AcquireWith(ctx context.Context, baseDir string, alive PidExistsFunc) (*Lock, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStartup,
			fmt.Sprintf("Can't create lock directory %s", baseDir),
			"Check permissions, or set XDG_RUNTIME_DIR")
	}

	lockDir := filepath.Join(baseDir, DirName)
	info := NewLockInfo()

	// Two attempts: the second follows removal of a stale lock.
	for attempt := 0; attempt < 2; attempt++ {
		err := os.Mkdir(lockDir, 0700)
		if err == nil {
			if err := writeInfo(lockDir, info); err != nil {
				_ = os.RemoveAll(lockDir)
				return nil, errors.WrapWithCode(err, errors.ErrStartup,
					"Failed to write lock info file",
					"Check disk space and permissions on "+baseDir)
			}
			return &Lock{Dir: lockDir, Info: info}, nil
		}
		if !os.IsExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrStartup,
				fmt.Sprintf("Failed to create lock %s", lockDir),
				"Check permissions on "+baseDir)
		}

		holder, err := readInfo(lockDir)
		switch {
		case err != nil:
			if pending(lockDir) {
				return nil, errors.WrapWithCode(ErrLocked, errors.ErrStartup,
					"Another vigil is starting up",
					fmt.Sprintf("Wait a moment and try again, or remove %s if it is stuck", lockDir))
			}
		case holder.PID != os.Getpid():
			running, perr := alive(ctx, int32(holder.PID))
			if perr != nil || running {
				return nil, errors.WrapWithCode(ErrLocked, errors.ErrStartup,
					fmt.Sprintf("vigil is already running: %s", holder),
					fmt.Sprintf("Stop the other instance, or remove %s if it is stuck", lockDir))
			}
		}

		// Holder is gone, left no info past the grace period, or is us: stale.
		if err := os.RemoveAll(lockDir); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrStartup,
				fmt.Sprintf("Failed to remove stale lock %s", lockDir),
				"Remove it by hand and try again")
		}
	}

	return nil, errors.WrapWithCode(ErrLocked, errors.ErrStartup,
		"Another vigil took the lock while starting",
		"Stop the other instance and try again")
}

// Release removes the lock, allowing others to acquire it.
func (l *Lock) Release() error {
	if l == nil || l.Dir == "" {
		return nil // Nothing to release
	}
	return os.RemoveAll(l.Dir)
}

// Holder returns information about who holds the lock in baseDir (if readable).
func Holder(baseDir string) string {
	info, err := readInfo(filepath.Join(baseDir, DirName))
	if err != nil {
		return "unknown"
	}
	return info.String()
}

// pending reports whether an info-less lock dir is young enough that its
// holder may still be writing the info file.
func pending(lockDir string) bool {
	fi, err := os.Stat(lockDir)
	if err != nil {
		return false
	}
	return time.Since(fi.ModTime()) < InfoGrace
}

func writeInfo(lockDir string, info *LockInfo) error {
	data, err := info.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(lockDir, infoFileName), data, 0600)
}

func readInfo(lockDir string) (*LockInfo, error) {
	data, err := os.ReadFile(filepath.Join(lockDir, infoFileName))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("empty lock info")
	}
	return ParseLockInfo(data)
}
