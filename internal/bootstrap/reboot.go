package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// Reboot modes accepted by NewRebooter.
const (
	RebootInProcess = "in_process"
	RebootSystem    = "system"
	RebootExec      = "exec"
)

// Rebooter restarts the clock after a boot cycle ends in reboot.
type Rebooter interface {
	// Reboot restarts the clock. Implementations that restart in place
	// return nil and the caller starts a new cycle.
	Reboot(ctx context.Context, reason string) error
}

const (
	// DefaultRebootDelay is the pause before a restarted cycle begins.
	// A real device reboot takes about this long.
	DefaultRebootDelay = time.Second

	// MaxRebootDelay caps the backoff after repeated fatal errors.
	MaxRebootDelay = 30 * time.Second
)

// NewRebooter returns the rebooter for mode. delay is the pause before the
// next cycle for the in-process and exec modes; zero means
// DefaultRebootDelay.
func NewRebooter(mode string, delay time.Duration) (Rebooter, error) {
	if delay <= 0 {
		delay = DefaultRebootDelay
	}
	switch mode {
	case "", RebootInProcess:
		return &InProcessRebooter{Delay: delay, MaxDelay: MaxRebootDelay}, nil
	case RebootSystem:
		return &SystemRebooter{}, nil
	case RebootExec:
		return &ExecRebooter{Delay: delay}, nil
	default:
		return nil, fmt.Errorf("unknown reboot mode %q (expected %s, %s or %s)",
			mode, RebootInProcess, RebootSystem, RebootExec)
	}
}

// InProcessRebooter restarts the boot cycle without leaving the process.
//
// Consecutive reboots for fatal_error double the delay up to MaxDelay, so a
// failure that repeats every cycle (a port already taken, a dead radio) does
// not spin. Any other reason resets the backoff.
type InProcessRebooter struct {
	// Delay is waited before the next cycle starts.
	Delay time.Duration

	// MaxDelay caps the fatal error backoff. Zero means MaxRebootDelay.
	MaxDelay time.Duration

	// failures counts consecutive fatal_error reboots. Device.Run calls
	// Reboot from a single goroutine.
	failures int
}

// Reboot waits for the current delay and returns.
func (r *InProcessRebooter) Reboot(ctx context.Context, reason string) error {
	delay := r.nextDelay(reason)
	logging.Info("Restarting boot cycle",
		zap.String("reason", reason),
		zap.Duration("delay", delay),
		zap.Int("consecutive_failures", r.failures),
	)
	return pause(ctx, delay)
}

func (r *InProcessRebooter) nextDelay(reason string) time.Duration {
	if reason != EventFatalError {
		r.failures = 0
		return r.Delay
	}
	r.failures++

	limit := r.MaxDelay
	if limit <= 0 {
		limit = MaxRebootDelay
	}
	d := r.Delay
	if d <= 0 {
		d = DefaultRebootDelay
	}
	for i := 1; i < r.failures && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
