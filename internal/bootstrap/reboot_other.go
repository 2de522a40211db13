//go:build !linux

package bootstrap

import (
	"context"
	"errors"
)

// SystemRebooter restarts the host. It is only supported on Linux.
type SystemRebooter struct{}

// Reboot always fails outside Linux.
func (r *SystemRebooter) Reboot(ctx context.Context, reason string) error {
	return errors.New("system reboot is only supported on linux")
}
