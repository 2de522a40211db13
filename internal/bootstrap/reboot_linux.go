//go:build linux

package bootstrap

import (
	"context"
	"syscall"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// SystemRebooter restarts the host. It needs CAP_SYS_BOOT.
type SystemRebooter struct{}

// Reboot syncs filesystems and restarts the machine. It only returns on
// failure.
func (r *SystemRebooter) Reboot(ctx context.Context, reason string) error {
	logging.Warn("System is rebooting now", zap.String("reason", reason))
	logging.Sync()
	syscall.Sync()
	return syscall.Reboot(syscall.LINUX_REBOOT_CMD_RESTART)
}
