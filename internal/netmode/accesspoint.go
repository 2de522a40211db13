package netmode

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// AccessPoint is the setup access point handle.
type AccessPoint struct {
	handle
	config APConfig
}

// NewAccessPoint creates a stopped access point handle.
func NewAccessPoint(radio *Radio, cfg APConfig) *AccessPoint {
	return &AccessPoint{
		handle: handle{radio: radio, kind: KindAccessPoint, ssid: cfg.SSID, state: StateStopped},
		config: cfg,
	}
}

// Start claims the radio and starts broadcasting the access point.
func (a *AccessPoint) Start(ctx context.Context) error {
	if err := a.config.Validate(); err != nil {
		return err
	}
	if a.State() != StateStopped {
		return &TransitionError{Kind: a.kind, From: a.State(), To: StateStarted}
	}
	if err := a.radio.acquire(a); err != nil {
		return err
	}

	if err := a.radio.driver.StartAccessPoint(ctx, a.config); err != nil {
		a.radio.release(a)
		return fmt.Errorf("failed to start access point: %w", err)
	}
	if err := a.setState(StateStarted); err != nil {
		return err
	}

	logging.Info("Access point started",
		zap.String("ssid", a.config.SSID),
		zap.String("ip", a.config.IP.String()),
		zap.Int("max_connections", a.config.MaxConnections),
		zap.String("driver", a.radio.driver.Name()),
	)
	return nil
}

// Stop shuts the access point down and releases the radio.
func (a *AccessPoint) Stop(ctx context.Context) error {
	return a.stop(ctx, a)
}

// Connect is not meaningful for an access point.
func (a *AccessPoint) Connect(ctx context.Context) error {
	return ErrNotSupported
}

// IsUp reports whether the access point interface is up.
func (a *AccessPoint) IsUp(ctx context.Context) (bool, error) {
	if !a.running() {
		return false, ErrNotStarted
	}
	return a.radio.driver.LinkUp(ctx)
}

// IsConnected is true while the access point is up.
func (a *AccessPoint) IsConnected(ctx context.Context) (bool, error) {
	if !a.running() {
		return false, nil
	}
	return a.radio.driver.LinkUp(ctx)
}

// WaitUp blocks until the access point interface is up.
func (a *AccessPoint) WaitUp(ctx context.Context) error {
	if err := a.radio.waitUp(ctx, a.IsUp); err != nil {
		return err
	}
	logging.Info("Access point interface up", zap.String("ip", a.config.IP.String()))
	return nil
}

// Configuration describes the access point. The IP is the configured one.
func (a *AccessPoint) Configuration() Configuration {
	return Configuration{Kind: a.kind, State: a.State(), SSID: a.config.SSID, IP: a.config.IP}
}

// Config returns the access point settings.
func (a *AccessPoint) Config() APConfig {
	return a.config
}
