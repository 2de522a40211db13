//go:build !linux

package netmode

import (
	"context"
	"errors"
	"net/netip"

	"github.com/espclock/espclock/internal/wifi"
)

var errNMCLIUnsupported = errors.New("nmcli driver is only available on linux")

// NMCLIDriver is unavailable outside Linux.
type NMCLIDriver struct{}

// NewNMCLIDriver always fails outside Linux.
func NewNMCLIDriver(iface string) (*NMCLIDriver, error) {
	return nil, errNMCLIUnsupported
}

func (d *NMCLIDriver) Name() string { return DriverNMCLI }

func (d *NMCLIDriver) StartAccessPoint(ctx context.Context, cfg APConfig) error {
	return errNMCLIUnsupported
}

func (d *NMCLIDriver) StartStation(ctx context.Context) error { return errNMCLIUnsupported }

func (d *NMCLIDriver) Connect(ctx context.Context, creds wifi.Credentials) error {
	return errNMCLIUnsupported
}

func (d *NMCLIDriver) LinkUp(ctx context.Context) (bool, error) { return false, errNMCLIUnsupported }

func (d *NMCLIDriver) Associated(ctx context.Context) (bool, error) {
	return false, errNMCLIUnsupported
}

func (d *NMCLIDriver) Addr(ctx context.Context) (netip.Addr, error) {
	return netip.Addr{}, errNMCLIUnsupported
}

func (d *NMCLIDriver) Stop(ctx context.Context) error { return errNMCLIUnsupported }
