package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/metrics"
	"github.com/espclock/espclock/internal/netmode"
	"github.com/espclock/espclock/internal/portal"
)

// ReasonFactoryReset is the reboot reason after a web portal reset.
const ReasonFactoryReset = "factory_reset"

// TimezoneStore persists the configured timezone.
type TimezoneStore interface {
	Load() (string, bool, error)
	Save(tz string) error
	Delete() error
}

// PrefsStore persists display preferences.
type PrefsStore interface {
	LoadHourFormat() (clock.HourFormat, error)
	SaveHourFormat(f clock.HourFormat) error
}

// DeviceConfig configures the supervisor's operational services.
type DeviceConfig struct {
	// WebAddr is the listen address of the web portal, e.g. ":80".
	WebAddr string

	// DefaultTimezone applies when none is stored.
	DefaultTimezone string

	// Advertise, when set, announces the web portal over mDNS until ctx is
	// done.
	Advertise func(ctx context.Context, port int) error

	// OnOperational, when set, is called with the web portal address once
	// it is serving.
	OnOperational func(net.Addr)
}

// Device runs boot cycles and the operational services.
type Device struct {
	config       DeviceConfig
	orchestrator *Orchestrator
	rebooter     Rebooter
	credentials  CredentialStore
	timezone     TimezoneStore
	prefs        PrefsStore
	display      *clock.Display
}

// NewDevice creates the supervisor.
func NewDevice(
	cfg DeviceConfig,
	orchestrator *Orchestrator,
	rebooter Rebooter,
	credentials CredentialStore,
	timezone TimezoneStore,
	prefs PrefsStore,
	display *clock.Display,
) *Device {
	return &Device{
		config:       cfg,
		orchestrator: orchestrator,
		rebooter:     rebooter,
		credentials:  credentials,
		timezone:     timezone,
		prefs:        prefs,
		display:      display,
	}
}

// Run loops over boot cycles until ctx is done or a rebooter fails.
func (d *Device) Run(ctx context.Context) error {
	for cycles := 1; ; cycles++ {
		logging.Info("Boot cycle starting", zap.Int("cycle", cycles))

		res, err := d.orchestrator.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		reason := res.Reason
		if res.State == StateOperational {
			reason, err = d.runOperational(ctx, res.Station)
			if ctx.Err() != nil {
				stopHandle(res.Station)
				return nil
			}
			if err != nil {
				logging.Error("Operational services failed", zap.Error(err))
			}
		}

		metrics.Reboots.WithLabelValues(reason).Inc()
		if err := d.rebooter.Reboot(ctx, reason); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reboot failed: %w", err)
		}
	}
}

// runOperational serves the web portal until ctx is done or a factory reset
// is requested. It returns the reboot reason.
func (d *Device) runOperational(ctx context.Context, sta *netmode.Station) (string, error) {
	d.applyStoredSettings()

	web := portal.NewWebPortal(portal.WebConfig{SSID: sta.SSID()}, d.display, &storeSettings{tz: d.timezone, prefs: d.prefs})

	ln, err := net.Listen("tcp", d.config.WebAddr)
	if err != nil {
		stopHandle(sta)
		return "web_portal_bind_failed", fmt.Errorf("failed to listen on %s: %w", d.config.WebAddr, err)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(opCtx)

	g.Go(func() error {
		return web.Serve(gctx, ln)
	})
	if d.config.Advertise != nil {
		port := ln.Addr().(*net.TCPAddr).Port
		g.Go(func() error {
			if err := d.config.Advertise(gctx, port); err != nil {
				// Discovery is a convenience; the clock keeps running.
				logging.Warn("mDNS advertisement stopped", zap.Error(err))
			}
			return nil
		})
	}

	resetRequested := false
	g.Go(func() error {
		select {
		case <-web.ResetRequests():
			resetRequested = true
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if d.config.OnOperational != nil {
		d.config.OnOperational(ln.Addr())
	}

	err = g.Wait()
	if !resetRequested {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		stopHandle(sta)
		if err == nil {
			err = errors.New("operational services stopped")
		}
		return "operational_failure", err
	}

	d.factoryReset(sta)
	return ReasonFactoryReset, nil
}

// factoryReset forgets the network and the timezone and disconnects.
func (d *Device) factoryReset(sta *netmode.Station) {
	logging.Info("Factory reset in progress")
	if err := d.credentials.Delete(); err != nil {
		logging.Error("Failed to delete credentials", zap.Error(err))
	}
	if err := d.timezone.Delete(); err != nil {
		logging.Error("Failed to delete timezone", zap.Error(err))
	}
	stopHandle(sta)
}

// applyStoredSettings loads the timezone and hour format into the display.
func (d *Device) applyStoredSettings() {
	tz, ok, err := d.timezone.Load()
	if err != nil {
		logging.Warn("Stored timezone unreadable", zap.Error(err))
	}
	if !ok || err != nil {
		tz = d.config.DefaultTimezone
	}
	if tz != "" {
		if err := d.display.SetTimezone(tz); err != nil {
			logging.Warn("Stored timezone rejected", zap.String("timezone", tz), zap.Error(err))
		}
	}

	hf, err := d.prefs.LoadHourFormat()
	if err != nil {
		logging.Warn("Stored hour format unreadable", zap.Error(err))
	}
	d.display.SetHourFormat(hf)
}

// storeSettings saves web portal changes to the persistent stores.
type storeSettings struct {
	tz    TimezoneStore
	prefs PrefsStore
}

func (s *storeSettings) SaveTimezone(tz string) error {
	return s.tz.Save(tz)
}

func (s *storeSettings) SaveHourFormat(f clock.HourFormat) error {
	return s.prefs.SaveHourFormat(f)
}
