//go:build !unix

package bootstrap

import (
	"context"
	"errors"
	"time"
)

// ExecRebooter replaces the running process. It needs a unix exec.
type ExecRebooter struct {
	Delay time.Duration
}

// Reboot always fails on this platform.
func (r *ExecRebooter) Reboot(ctx context.Context, reason string) error {
	return errors.New("exec reboot is not supported on this platform")
}
