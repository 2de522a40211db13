package netmode

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/espclock/espclock/internal/wifi"
)

// Errors reported by SimDriver.Connect.
var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrAuthFailed      = errors.New("authentication failed")
)

// simStationAddr is the address handed to a simulated station.
var simStationAddr = netip.MustParseAddr("192.168.1.50")

// SimDriver is an in-memory radio. Networks are known by SSID and password.
type SimDriver struct {
	mu sync.Mutex

	known map[string]string

	mode       Kind
	linkUp     bool
	associated bool
	addr       netip.Addr

	// AssociatePolls is the number of Associated calls that report false
	// after a successful Connect, to mimic slow DHCP.
	AssociatePolls int
	pending        int

	// StartErr, when set, is returned by both Start methods.
	StartErr error

	starts int
	stops  int
}

// NewSimDriver creates a simulated radio that can join the networks in known
// (SSID to password).
func NewSimDriver(known map[string]string) *SimDriver {
	k := make(map[string]string, len(known))
	for ssid, pass := range known {
		k[ssid] = pass
	}
	return &SimDriver{known: k}
}

// AddNetwork makes ssid joinable.
func (d *SimDriver) AddNetwork(ssid, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.known[ssid] = password
}

func (d *SimDriver) Name() string {
	return DriverSim
}

func (d *SimDriver) StartAccessPoint(ctx context.Context, cfg APConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.StartErr != nil {
		return d.StartErr
	}
	if d.mode != "" {
		return fmt.Errorf("sim radio already running in %s mode", d.mode)
	}
	d.mode = KindAccessPoint
	d.linkUp = true
	d.addr = cfg.IP
	d.starts++
	return nil
}

func (d *SimDriver) StartStation(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.StartErr != nil {
		return d.StartErr
	}
	if d.mode != "" {
		return fmt.Errorf("sim radio already running in %s mode", d.mode)
	}
	d.mode = KindStation
	d.starts++
	return nil
}

func (d *SimDriver) Connect(ctx context.Context, creds wifi.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mode != KindStation {
		return errors.New("sim radio is not in station mode")
	}
	pass, ok := d.known[creds.SSID]
	if !ok {
		return ErrNetworkNotFound
	}
	if pass != creds.Password {
		return ErrAuthFailed
	}
	d.linkUp = true
	d.associated = true
	d.addr = simStationAddr
	d.pending = d.AssociatePolls
	return nil
}

func (d *SimDriver) LinkUp(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.linkUp, nil
}

func (d *SimDriver) Associated(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.associated {
		return false, nil
	}
	if d.pending > 0 {
		d.pending--
		return false, nil
	}
	return true, nil
}

func (d *SimDriver) Addr(ctx context.Context) (netip.Addr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.linkUp {
		return netip.Addr{}, errors.New("link is down")
	}
	return d.addr, nil
}

func (d *SimDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mode = ""
	d.linkUp = false
	d.associated = false
	d.addr = netip.Addr{}
	d.stops++
	return nil
}

// Mode returns the mode the radio is running in, or "" when stopped.
func (d *SimDriver) Mode() Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Counts returns how many times the radio was started and stopped.
func (d *SimDriver) Counts() (starts, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts, d.stops
}
