package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/espclock/espclock/internal/dnsresponder"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/mailbox"
	"github.com/espclock/espclock/internal/metrics"
	"github.com/espclock/espclock/internal/netmode"
	"github.com/espclock/espclock/internal/portal"
	"github.com/espclock/espclock/internal/wifi"
)

// DefaultConnectPollInterval is how often the station is checked while it
// finishes associating.
const DefaultConnectPollInterval = time.Second

// stopTimeout bounds radio shutdown during teardown.
const stopTimeout = 5 * time.Second

// CredentialStore is the persisted Wi-Fi credential slot.
type CredentialStore interface {
	Load() (*wifi.Credentials, error)
	Save(wifi.Credentials)
	Delete() error
}

// Endpoints are the addresses the setup services actually bound.
type Endpoints struct {
	DNS    *net.UDPAddr
	Portal net.Addr
}

// Config configures the orchestrator.
type Config struct {
	AccessPoint netmode.APConfig

	// DNS is the responder configuration. Its IP is always the access
	// point address.
	DNS dnsresponder.Config

	// PortalPort is the captive portal TCP port (80 on the device).
	PortalPort   int
	MaxBodyBytes int64

	ConnectPollInterval time.Duration

	// OnSetupReady, when set, is called once the access point, DNS
	// responder and captive portal are all serving.
	OnSetupReady func(Endpoints)
}

// Result reports how a boot cycle ended.
type Result struct {
	// State is StateOperational or StateReboot.
	State string

	// Reason is the event that led to a reboot.
	Reason string

	// Station is the live station handle when State is StateOperational.
	Station *netmode.Station
}

// Orchestrator runs boot cycles.
type Orchestrator struct {
	config Config
	radio  *netmode.Radio
	store  CredentialStore

	// current is the state of the running cycle, for status reporting.
	current atomic.Value
}

// NewOrchestrator creates an orchestrator over radio and store.
func NewOrchestrator(cfg Config, radio *netmode.Radio, store CredentialStore) *Orchestrator {
	if cfg.ConnectPollInterval <= 0 {
		cfg.ConnectPollInterval = DefaultConnectPollInterval
	}
	cfg.DNS.IP = cfg.AccessPoint.IP

	o := &Orchestrator{config: cfg, radio: radio, store: store}
	o.current.Store(StateInit)
	return o
}

// State returns the state of the current or last cycle.
func (o *Orchestrator) State() string {
	return o.current.Load().(string)
}

// cycle carries the values handed between states of one boot cycle.
type cycle struct {
	creds   *wifi.Credentials
	station *netmode.Station
	reason  string
}

type stateHandler func(ctx context.Context, c *cycle) (string, error)

// RunCycle runs one boot cycle from init until it reaches operational or
// reboot. It returns an error only when ctx is cancelled or the state
// machine rejects a transition.
func (o *Orchestrator) RunCycle(ctx context.Context) (Result, error) {
	machine := newMachine()
	metrics.SetBootState(StateInit, States)
	o.current.Store(StateInit)

	handlers := map[string]stateHandler{
		StateInit:               o.handleInit,
		StateAPBootstrap:        o.handleAPBootstrap,
		StateStationConnect:     o.handleStationConnect,
		StateCredentialsCleared: o.handleCredentialsCleared,
	}

	c := &cycle{}
	for {
		state := machine.Current()
		o.current.Store(state)

		switch state {
		case StateOperational:
			return Result{State: StateOperational, Station: c.station}, nil
		case StateReboot:
			return Result{State: StateReboot, Reason: c.reason}, nil
		}

		handler, ok := handlers[state]
		if !ok {
			return Result{}, fmt.Errorf("no handler for boot state %q", state)
		}

		event, err := handler(ctx, c)
		if err != nil {
			return Result{}, err
		}
		switch event {
		case EventFatalError, EventCredentialsReceived, EventConnectFailed:
			c.reason = event
		}
		if err := machine.Event(ctx, event); err != nil {
			return Result{}, fmt.Errorf("boot transition %s from %s: %w", event, state, err)
		}
	}
}

// handleInit loads the stored credentials. An unreadable store is treated
// as empty so that the clock can still be set up.
func (o *Orchestrator) handleInit(ctx context.Context, c *cycle) (string, error) {
	creds, err := o.store.Load()
	if err != nil {
		logging.Warn("Stored credentials unreadable, starting setup", zap.Error(err))
		return EventNoCredentials, nil
	}
	if creds == nil {
		logging.Info("No stored credentials")
		return EventNoCredentials, nil
	}

	logging.Info("Stored credentials found", zap.String("ssid", creds.SSID))
	c.creds = creds
	return EventCredentialsFound, nil
}

// handleAPBootstrap runs the setup services until credentials arrive.
func (o *Orchestrator) handleAPBootstrap(ctx context.Context, c *cycle) (string, error) {
	ap := netmode.NewAccessPoint(o.radio, o.config.AccessPoint)
	if err := ap.Start(ctx); err != nil {
		logging.Error("Access point failed to start", zap.Error(err))
		return EventFatalError, nil
	}
	defer stopHandle(ap)

	if err := ap.WaitUp(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.Error("Access point interface did not come up", zap.Error(err))
		return EventFatalError, nil
	}
	logging.Info("Access point configuration", zap.Stringer("config", ap.Configuration()))

	responder, err := dnsresponder.Bind(o.config.DNS)
	if err != nil {
		logging.Error("DNS responder bind failed", zap.Error(err))
		return EventFatalError, nil
	}

	portalAddr := net.JoinHostPort(o.config.AccessPoint.IP.String(), strconv.Itoa(o.config.PortalPort))
	ln, err := net.Listen("tcp", portalAddr)
	if err != nil {
		_ = responder.Close()
		logging.Error("Captive portal bind failed", zap.String("addr", portalAddr), zap.Error(err))
		return EventFatalError, nil
	}

	box := mailbox.New[wifi.Credentials]()
	captive := portal.NewCaptivePortal(portal.CaptiveConfig{
		MaxBodyBytes: o.config.MaxBodyBytes,
		APSSID:       o.config.AccessPoint.SSID,
		APPassword:   o.config.AccessPoint.Password,
	}, box)

	creds, received, err := o.serveSetup(ctx, responder, captive, ln, box)
	if !received {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.Error("Setup services failed", zap.Error(err))
		return EventFatalError, nil
	}

	o.store.Save(creds)
	stopHandle(ap)
	return EventCredentialsReceived, nil
}

// serveSetup runs the DNS loop, the captive portal and the mailbox wait
// until the mailbox is filled or one of them fails.
func (o *Orchestrator) serveSetup(
	ctx context.Context,
	responder *dnsresponder.Responder,
	captive *portal.CaptivePortal,
	ln net.Listener,
	box *mailbox.Slot[wifi.Credentials],
) (wifi.Credentials, bool, error) {
	setupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(setupCtx)
	g.Go(func() error {
		return responder.Serve(gctx)
	})
	g.Go(func() error {
		return captive.Serve(gctx, ln)
	})

	var (
		creds    wifi.Credentials
		received bool
	)
	g.Go(func() error {
		v, err := box.Wait(gctx)
		if err != nil {
			return err
		}
		creds, received = v, true
		logging.Info("Credentials handed to boot", zap.String("ssid", v.SSID))
		cancel()
		return nil
	})

	if o.config.OnSetupReady != nil {
		o.config.OnSetupReady(Endpoints{DNS: responder.Addr(), Portal: ln.Addr()})
	}

	err := g.Wait()
	if received {
		return creds, true, nil
	}
	if err == nil {
		err = errors.New("setup services stopped")
	}
	return wifi.Credentials{}, false, err
}

// handleStationConnect joins the stored network.
func (o *Orchestrator) handleStationConnect(ctx context.Context, c *cycle) (string, error) {
	sta := netmode.NewStation(o.radio, *c.creds)
	if err := sta.Start(ctx); err != nil {
		logging.Error("Station failed to start", zap.Error(err))
		return EventFatalError, nil
	}

	if err := sta.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			stopHandle(sta)
			return "", ctx.Err()
		}
		logging.Warn("Could not join stored network", zap.String("ssid", c.creds.SSID), zap.Error(err))
		c.station = sta
		return EventConnectFailed, nil
	}

	if err := sta.WaitUp(ctx); err != nil {
		stopHandle(sta)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.Error("Station interface did not come up", zap.Error(err))
		return EventFatalError, nil
	}

	if err := o.waitConnected(ctx, sta); err != nil {
		stopHandle(sta)
		return "", err
	}

	c.station = sta
	return EventConnected, nil
}

// waitConnected polls the station until it reports connected.
func (o *Orchestrator) waitConnected(ctx context.Context, sta *netmode.Station) error {
	ticker := time.NewTicker(o.config.ConnectPollInterval)
	defer ticker.Stop()

	for {
		ok, err := sta.IsConnected(ctx)
		if err != nil {
			logging.Warn("Station status check failed", zap.Error(err))
		}
		if ok {
			logging.Info("Station connected", zap.Stringer("config", sta.Configuration()))
			return nil
		}
		logging.Debug("Waiting for station", zap.Stringer("config", sta.Configuration()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// handleCredentialsCleared forgets the network that could not be joined.
func (o *Orchestrator) handleCredentialsCleared(ctx context.Context, c *cycle) (string, error) {
	if err := o.store.Delete(); err != nil {
		logging.Error("Failed to delete stored credentials", zap.Error(err))
	}
	if c.station != nil {
		stopHandle(c.station)
		c.station = nil
	}
	c.creds = nil
	return EventCredentialsCleared, nil
}

// stopHandle stops m with a fresh context so that teardown still happens
// after the cycle context is cancelled.
func stopHandle(m netmode.Mode) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		logging.Warn("Failed to stop network handle", zap.String("kind", string(m.Kind())), zap.Error(err))
	}
}
