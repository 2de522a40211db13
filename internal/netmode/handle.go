package netmode

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// handle carries the state shared by both modes.
type handle struct {
	radio *Radio
	kind  Kind
	ssid  string

	mu    sync.Mutex
	state State
}

func (h *handle) Kind() Kind {
	return h.kind
}

func (h *handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// setState applies a transition, rejecting those outside the table.
func (h *handle) setState(to State) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == to {
		return nil
	}
	if !canTransition(h.state, to) {
		return &TransitionError{Kind: h.kind, From: h.state, To: to}
	}
	logging.Debug("Network handle state",
		zap.String("kind", string(h.kind)),
		zap.String("from", string(h.state)),
		zap.String("to", string(to)),
	)
	h.state = to
	return nil
}

func (h *handle) running() bool {
	s := h.State()
	return s == StateStarted || s == StateConnected
}

// stop is shared by both modes; self is the Mode that owns the radio.
func (h *handle) stop(ctx context.Context, self Mode) error {
	if h.State() == StateStopped {
		return nil
	}
	defer h.radio.release(self)

	err := h.radio.driver.Stop(ctx)

	h.mu.Lock()
	h.state = StateStopped
	h.mu.Unlock()

	if err != nil {
		logging.Warn("Radio stop reported an error", zap.String("kind", string(h.kind)), zap.Error(err))
		return err
	}
	logging.Info("Network handle stopped", zap.String("kind", string(h.kind)))
	return nil
}

func (h *handle) configuration(ctx context.Context) Configuration {
	cfg := Configuration{Kind: h.kind, State: h.State(), SSID: h.ssid}
	if h.running() {
		if ip, err := h.radio.driver.Addr(ctx); err == nil {
			cfg.IP = ip
		}
	}
	return cfg
}
