package netmode

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/espclock/espclock/internal/wifi"
)

// APConfig describes the setup access point.
type APConfig struct {
	SSID           string
	Password       string
	IP             netip.Addr
	MaxConnections int
}

// Validate checks the values a WPA2 access point accepts.
func (c APConfig) Validate() error {
	if c.SSID == "" || len(c.SSID) > wifi.MaxSSIDLength {
		return fmt.Errorf("access point ssid must be 1-%d bytes", wifi.MaxSSIDLength)
	}
	if n := len(c.Password); n < 8 || n > wifi.MaxPasswordLength {
		return fmt.Errorf("access point password must be 8-%d bytes for WPA2", wifi.MaxPasswordLength)
	}
	if !c.IP.Is4() {
		return fmt.Errorf("access point ip %s is not an IPv4 address", c.IP)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("access point max connections must be at least 1")
	}
	return nil
}

// Driver is the hardware boundary of the radio.
type Driver interface {
	// StartAccessPoint configures and starts the setup access point.
	StartAccessPoint(ctx context.Context, cfg APConfig) error

	// StartStation puts the radio in client mode without joining a network.
	StartStation(ctx context.Context) error

	// Connect joins the network described by creds. It fails when the
	// network is not reachable or rejects the password.
	Connect(ctx context.Context, creds wifi.Credentials) error

	// LinkUp reports whether the interface has an address.
	LinkUp(ctx context.Context) (bool, error)

	// Associated reports whether the station is joined to creds.SSID.
	Associated(ctx context.Context) (bool, error)

	// Addr returns the interface address, if known.
	Addr(ctx context.Context) (netip.Addr, error)

	// Stop brings the radio down.
	Stop(ctx context.Context) error

	Name() string
}

// Driver names accepted by NewDriver.
const (
	DriverSim   = "sim"
	DriverNMCLI = "nmcli"
)

// NewDriver builds the driver selected in the configuration.
func NewDriver(name, iface string, known map[string]string) (Driver, error) {
	switch name {
	case "", DriverSim:
		return NewSimDriver(known), nil
	case DriverNMCLI:
		d, err := NewNMCLIDriver(iface)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown radio driver %q (expected %s or %s)", name, DriverSim, DriverNMCLI)
	}
}
