package netmode

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// DefaultUpPollInterval is how often WaitUp checks the interface.
const DefaultUpPollInterval = 50 * time.Millisecond

// Radio is the single Wi-Fi peripheral shared by all handles.
type Radio struct {
	driver Driver

	mu    sync.Mutex
	owner Mode

	upPollInterval time.Duration
}

// NewRadio wraps a driver.
func NewRadio(driver Driver) *Radio {
	return &Radio{driver: driver, upPollInterval: DefaultUpPollInterval}
}

// Driver returns the underlying driver.
func (r *Radio) Driver() Driver {
	return r.driver
}

// Owner returns the handle currently holding the radio, or nil.
func (r *Radio) Owner() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

func (r *Radio) acquire(m Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner != nil && r.owner != m {
		logging.Warn("Radio busy",
			zap.String("owner", string(r.owner.Kind())),
			zap.String("requested_by", string(m.Kind())),
		)
		return ErrRadioBusy
	}
	r.owner = m
	return nil
}

func (r *Radio) release(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner == m {
		r.owner = nil
	}
}

// waitUp polls check until it reports true.
func (r *Radio) waitUp(ctx context.Context, check func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(r.upPollInterval)
	defer ticker.Stop()

	for {
		up, err := check(ctx)
		if err != nil {
			return err
		}
		if up {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
