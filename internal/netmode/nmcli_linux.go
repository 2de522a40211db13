//go:build linux

package netmode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/wifi"
)

// NetworkManager profiles owned by the driver.
const (
	apConnectionName      = "espclock-ap"
	stationConnectionName = "espclock-sta"
)

// pskNotSaved keeps the passphrase out of the stored profile. nmcli is given
// it at activation time through a passwd-file, never on its command line,
// where any local user could read it from /proc.
const pskNotSaved = "2"

// commandRunner runs nmcli with args and returns its standard output.
type commandRunner func(ctx context.Context, args ...string) ([]byte, error)

// NMCLIDriver drives the radio through NetworkManager.
type NMCLIDriver struct {
	iface string
	run   commandRunner

	// secretsDir holds the short-lived passwd-files. Empty means the
	// system temp dir.
	secretsDir string

	ssid string
}

// NewNMCLIDriver returns a driver for iface. The nmcli binary must be on
// PATH.
func NewNMCLIDriver(iface string) (*NMCLIDriver, error) {
	if iface == "" {
		return nil, errors.New("nmcli driver requires a wireless interface name")
	}
	path, err := exec.LookPath("nmcli")
	if err != nil {
		return nil, fmt.Errorf("nmcli not found: %w", err)
	}
	return &NMCLIDriver{iface: iface, run: execRunner(path)}, nil
}

func execRunner(path string) commandRunner {
	return func(ctx context.Context, args ...string) ([]byte, error) {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, path, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("nmcli %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), nil
	}
}

func (d *NMCLIDriver) Name() string {
	return DriverNMCLI
}

func (d *NMCLIDriver) StartAccessPoint(ctx context.Context, cfg APConfig) error {
	_, _ = d.run(ctx, "connection", "delete", apConnectionName)

	steps := [][]string{
		{"connection", "add", "type", "wifi", "ifname", d.iface, "con-name", apConnectionName,
			"autoconnect", "no", "ssid", cfg.SSID},
		{"connection", "modify", apConnectionName,
			"802-11-wireless.mode", "ap",
			"802-11-wireless.band", "bg",
			"wifi-sec.key-mgmt", "wpa-psk",
			"wifi-sec.psk-flags", pskNotSaved,
			"ipv4.method", "shared",
			"ipv4.addresses", cfg.IP.String() + "/24"},
	}
	for _, args := range steps {
		if _, err := d.run(ctx, args...); err != nil {
			return err
		}
	}
	if err := d.up(ctx, apConnectionName, cfg.Password); err != nil {
		return err
	}
	d.ssid = cfg.SSID
	logging.Debug("nmcli access point up", zap.String("iface", d.iface), zap.String("ssid", cfg.SSID))
	return nil
}

func (d *NMCLIDriver) StartStation(ctx context.Context) error {
	if _, err := d.run(ctx, "radio", "wifi", "on"); err != nil {
		return err
	}
	_, err := d.run(ctx, "device", "set", d.iface, "managed", "yes")
	return err
}

func (d *NMCLIDriver) Connect(ctx context.Context, creds wifi.Credentials) error {
	_, _ = d.run(ctx, "connection", "delete", stationConnectionName)

	if _, err := d.run(ctx, "connection", "add", "type", "wifi", "ifname", d.iface,
		"con-name", stationConnectionName, "autoconnect", "no", "ssid", creds.SSID); err != nil {
		return err
	}
	if creds.Password != "" {
		if _, err := d.run(ctx, "connection", "modify", stationConnectionName,
			"wifi-sec.key-mgmt", "wpa-psk",
			"wifi-sec.psk-flags", pskNotSaved); err != nil {
			return err
		}
	}
	if err := d.up(ctx, stationConnectionName, creds.Password); err != nil {
		return err
	}
	d.ssid = creds.SSID
	return nil
}

// up activates profile. A non-empty psk is handed over in a 0600
// passwd-file that is removed as soon as nmcli returns.
func (d *NMCLIDriver) up(ctx context.Context, profile, psk string) error {
	if psk == "" {
		_, err := d.run(ctx, "connection", "up", profile)
		return err
	}

	path, err := writeSecretsFile(d.secretsDir, psk)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	_, err = d.run(ctx, "connection", "up", profile, "passwd-file", path)
	return err
}

// writeSecretsFile creates a passwd-file in nmcli's "setting.property:value"
// format. os.CreateTemp opens it with mode 0600.
func writeSecretsFile(dir, psk string) (string, error) {
	f, err := os.CreateTemp(dir, "espclock-psk-*")
	if err != nil {
		return "", fmt.Errorf("failed to create nmcli secrets file: %w", err)
	}
	_, werr := fmt.Fprintf(f, "802-11-wireless-security.psk:%s\n", psk)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write nmcli secrets file: %w", err)
	}
	return f.Name(), nil
}

func (d *NMCLIDriver) LinkUp(ctx context.Context) (bool, error) {
	out, err := d.run(ctx, "-t", "-f", "GENERAL.STATE", "device", "show", d.iface)
	if err != nil {
		return false, err
	}
	// GENERAL.STATE:100 (connected)
	return strings.Contains(string(out), ":100"), nil
}

func (d *NMCLIDriver) Associated(ctx context.Context) (bool, error) {
	out, err := d.run(ctx, "-t", "-f", "ACTIVE,SSID", "device", "wifi", "list", "ifname", d.iface)
	if err != nil {
		return false, err
	}
	return activeSSID(out) == d.ssid && d.ssid != "", nil
}

// activeSSID extracts the SSID marked active in terse nmcli output.
func activeSSID(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		active, ssid, ok := strings.Cut(sc.Text(), ":")
		if ok && active == "yes" {
			return strings.ReplaceAll(ssid, `\:`, ":")
		}
	}
	return ""
}

func (d *NMCLIDriver) Addr(ctx context.Context) (netip.Addr, error) {
	out, err := d.run(ctx, "-t", "-f", "IP4.ADDRESS", "device", "show", d.iface)
	if err != nil {
		return netip.Addr{}, err
	}
	// IP4.ADDRESS[1]:192.168.1.50/24
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		_, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || value == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			continue
		}
		return prefix.Addr(), nil
	}
	return netip.Addr{}, fmt.Errorf("no IPv4 address on %s", d.iface)
}

func (d *NMCLIDriver) Stop(ctx context.Context) error {
	_, _ = d.run(ctx, "connection", "down", apConnectionName)
	_, _ = d.run(ctx, "connection", "down", stationConnectionName)
	_, err := d.run(ctx, "device", "disconnect", d.iface)
	d.ssid = ""
	return err
}
