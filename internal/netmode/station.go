package netmode

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/wifi"
)

// configurationTimeout bounds the driver query made by Configuration.
const configurationTimeout = 2 * time.Second

// Station is the client-mode handle that joins the stored network.
type Station struct {
	handle
	creds wifi.Credentials
}

// NewStation creates a stopped station handle for creds.
func NewStation(radio *Radio, creds wifi.Credentials) *Station {
	return &Station{
		handle: handle{radio: radio, kind: KindStation, ssid: creds.SSID, state: StateStopped},
		creds:  creds,
	}
}

// Start claims the radio and enables client mode.
func (s *Station) Start(ctx context.Context) error {
	if err := s.creds.Validate(); err != nil {
		return err
	}
	if s.State() != StateStopped {
		return &TransitionError{Kind: s.kind, From: s.State(), To: StateStarted}
	}
	if err := s.radio.acquire(s); err != nil {
		return err
	}

	if err := s.radio.driver.StartStation(ctx); err != nil {
		s.radio.release(s)
		return fmt.Errorf("failed to start station: %w", err)
	}
	if err := s.setState(StateStarted); err != nil {
		return err
	}
	logging.Info("Station started", zap.String("ssid", s.creds.SSID), zap.String("driver", s.radio.driver.Name()))
	return nil
}

// Stop disconnects and releases the radio.
func (s *Station) Stop(ctx context.Context) error {
	return s.stop(ctx, s)
}

// Connect joins the network. On failure the handle moves to failed and a
// *ConnectError is returned.
func (s *Station) Connect(ctx context.Context) error {
	if s.State() != StateStarted {
		return ErrNotStarted
	}

	logging.Info("Connecting to network", zap.String("ssid", s.creds.SSID))
	if err := s.radio.driver.Connect(ctx, s.creds); err != nil {
		_ = s.setState(StateFailed)
		return &ConnectError{SSID: s.creds.SSID, Err: err}
	}
	return s.setState(StateConnected)
}

// IsUp reports whether the station interface has an address.
func (s *Station) IsUp(ctx context.Context) (bool, error) {
	if !s.running() {
		return false, ErrNotStarted
	}
	return s.radio.driver.LinkUp(ctx)
}

// IsConnected reports whether the station is associated with its network.
func (s *Station) IsConnected(ctx context.Context) (bool, error) {
	if s.State() != StateConnected {
		return false, nil
	}
	return s.radio.driver.Associated(ctx)
}

// WaitUp blocks until the station interface is up.
func (s *Station) WaitUp(ctx context.Context) error {
	if err := s.radio.waitUp(ctx, s.IsUp); err != nil {
		return err
	}
	logging.Info("Station interface up", zap.String("ssid", s.creds.SSID))
	return nil
}

// Configuration describes the station including its current address.
func (s *Station) Configuration() Configuration {
	ctx, cancel := context.WithTimeout(context.Background(), configurationTimeout)
	defer cancel()
	return s.configuration(ctx)
}

// SSID returns the network the station joins.
func (s *Station) SSID() string {
	return s.creds.SSID
}
