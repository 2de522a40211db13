//go:build unix

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// ExecRebooter replaces the running process with a fresh copy of the same
// binary and arguments.
type ExecRebooter struct {
	// Delay is waited before the exec so a failure that repeats on every
	// start cannot restart the process in a tight loop.
	Delay time.Duration
}

// Reboot execs the current executable. It only returns on failure.
func (r *ExecRebooter) Reboot(ctx context.Context, reason string) error {
	if err := pause(ctx, r.Delay); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	logging.Info("Re-executing daemon", zap.String("reason", reason), zap.String("path", exe))
	logging.Sync()
	return syscall.Exec(exe, os.Args, os.Environ())
}
