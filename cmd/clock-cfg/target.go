package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/espclock/espclock/internal/config"
	"github.com/espclock/espclock/internal/deviceconfig"
	"github.com/espclock/espclock/internal/discovery"
)

// target is a resolved clock address.
type target struct {
	Host     string
	Port     int
	Instance string // registry key, empty for ad-hoc addresses
}

func (t target) addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t target) client() *deviceconfig.Client {
	c := deviceconfig.NewClient(t.Host, t.Port)
	c.SetTimeout(timeout)
	return c
}

// parseAddress splits "host" or "host:port". ok is false when s does not
// look like an address, so it can be tried as a nickname.
func parseAddress(s string, defaultPort int) (target, bool) {
	if host, port, err := net.SplitHostPort(s); err == nil {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return target{}, false
		}
		return target{Host: host, Port: p}, true
	}
	if ip := net.ParseIP(s); ip != nil {
		return target{Host: s, Port: defaultPort}, true
	}
	return target{}, false
}

// setupTarget is where the captive portal lives: --clock if given, else
// the access point address.
func setupTarget() target {
	if clockTarget != "" {
		if t, ok := parseAddress(clockTarget, clockPort); ok {
			return t
		}
		return target{Host: clockTarget, Port: clockPort}
	}
	return target{Host: deviceconfig.DefaultSetupHost, Port: clockPort}
}

// resolveTarget finds the web portal of an operational clock. It tries
// --clock as an address, then as a nickname or instance from the registry,
// and finally scans the network.
func resolveTarget(ctx context.Context, reg *config.Registry, out io.Writer) (target, error) {
	if clockTarget != "" {
		if t, ok := parseAddress(clockTarget, clockPort); ok {
			return t, nil
		}
		if instance, c, ok := reg.FindByNickname(clockTarget); ok {
			return registryTarget(instance, c), nil
		}
		if c := reg.GetClock(clockTarget); c != nil {
			return registryTarget(clockTarget, c), nil
		}
		// Hostnames such as esp-clock.local.
		return target{Host: clockTarget, Port: clockPort}, nil
	}

	fmt.Fprintln(out, "No clock specified, scanning the network...")
	clocks, err := newScanner(reg).ScanForClocks(ctx)
	if err != nil {
		return target{}, fmt.Errorf("discovery failed: %w", err)
	}
	switch len(clocks) {
	case 0:
		return target{}, fmt.Errorf("no clocks found; use --clock to specify one")
	case 1:
		c := clocks[0]
		reg.UpdateClockLastSeen(c.Instance, c.IP, c.Port)
		saveRegistry(reg, out)
		fmt.Fprintf(out, "Found %s\n\n", c)
		return target{Host: c.IP, Port: c.Port, Instance: c.Instance}, nil
	default:
		fmt.Fprintf(out, "Found %d clocks:\n", len(clocks))
		for i, c := range clocks {
			fmt.Fprintf(out, "%d. %s\n", i+1, c)
		}
		return target{}, fmt.Errorf("multiple clocks found; use --clock to pick one")
	}
}

func registryTarget(instance string, c *config.Clock) target {
	port := c.LastPort
	if port == 0 {
		port = clockPort
	}
	return target{Host: c.LastIP, Port: port, Instance: instance}
}

// saveRegistry persists reg. Failing to save only costs a future scan, so
// it is reported but not returned.
func saveRegistry(reg *config.Registry, out io.Writer) {
	if err := reg.Save(); err != nil {
		fmt.Fprintf(out, "Warning: could not save clock registry: %v\n", err)
	}
}

func newScanner(reg *config.Registry) *discovery.Scanner {
	s := discovery.NewScanner()
	if secs := reg.Preferences.DiscoverTimeout; secs > 0 {
		s.Timeout = time.Duration(secs) * time.Second
	}
	return s
}
