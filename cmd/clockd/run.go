package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/bootstrap"
	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/config"
	"github.com/espclock/espclock/internal/discovery"
	"github.com/espclock/espclock/internal/dnsresponder"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/netmode"
	"github.com/espclock/espclock/internal/nvs"
	"github.com/espclock/espclock/internal/version"
)

// Flag overrides. Zero values leave the config file alone.
var (
	flagDriver     string
	flagInterface  string
	flagStorageDir string
	flagRebootMode string
	flagDNSPort    int
	flagPortalPort int
	flagWebPort    int
	flagNoMDNS     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the boot sequence and the clock services",
	Example: `  # Simulated radio, unprivileged ports, state under ./state
  clockd run --driver sim --dns-port 5353 --portal-port 8080 --web-port 8081 --storage-dir ./state

  # On the clock host, driving wlan0 through NetworkManager
  clockd run --driver nmcli --interface wlan0 --reboot-mode system`,
	RunE: runDaemon,
}

func init() {
	addOverrideFlags(runCmd)
}

func addOverrideFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagDriver, "driver", "", "Radio driver (sim, nmcli)")
	f.StringVar(&flagInterface, "interface", "", "Wireless interface for the nmcli driver")
	f.StringVar(&flagStorageDir, "storage-dir", "", "Directory of the persistent partition")
	f.StringVar(&flagRebootMode, "reboot-mode", "", "How to reboot (in_process, system, exec)")
	f.IntVar(&flagDNSPort, "dns-port", 0, "DNS hijack responder port")
	f.IntVar(&flagPortalPort, "portal-port", 0, "Captive portal port")
	f.IntVar(&flagWebPort, "web-port", 0, "Web portal port")
	f.BoolVar(&flagNoMDNS, "no-mdns", false, "Do not advertise the web portal over mDNS")
}

func loadConfig(cmd *cobra.Command) (*config.DaemonConfig, error) {
	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("driver") {
		cfg.Radio.Driver = flagDriver
	}
	if f.Changed("interface") {
		cfg.Radio.Interface = flagInterface
	}
	if f.Changed("storage-dir") {
		cfg.Storage.Dir = flagStorageDir
	}
	if f.Changed("reboot-mode") {
		cfg.Bootstrap.RebootMode = flagRebootMode
	}
	if f.Changed("dns-port") {
		cfg.DNS.Port = flagDNSPort
	}
	if f.Changed("portal-port") {
		cfg.Portal.Port = flagPortalPort
	}
	if f.Changed("web-port") {
		cfg.Web.Port = flagWebPort
	}
	if flagNoMDNS {
		cfg.MDNS.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("clockd starting",
		zap.String("version", version.Full()),
		zap.String("driver", cfg.Radio.Driver),
		zap.String("storage", cfg.Storage.Dir),
		zap.String("reboot_mode", cfg.Bootstrap.RebootMode),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "clockd %s running (driver %s, state in %s)\n",
		version.Version, cfg.Radio.Driver, cfg.Storage.Dir)

	if err := dev.Run(ctx); err != nil {
		return fmt.Errorf("clock stopped: %w", err)
	}
	logging.Info("clockd stopped")
	return nil
}

// newDevice wires the configuration into a bootstrap.Device.
func newDevice(cfg *config.DaemonConfig) (*bootstrap.Device, error) {
	driver, err := netmode.NewDriver(cfg.Radio.Driver, cfg.Radio.Interface, cfg.Radio.KnownNetworks)
	if err != nil {
		return nil, err
	}
	radio := netmode.NewRadio(driver)

	partition, err := nvs.OpenPartition(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	credentials, err := nvs.NewCredentialStore(partition)
	if err != nil {
		return nil, err
	}
	timezone, err := nvs.NewTimezoneStore(partition)
	if err != nil {
		return nil, err
	}
	prefs, err := nvs.NewPrefsStore(partition)
	if err != nil {
		return nil, err
	}

	display, err := clock.NewDisplay(cfg.Clock.DefaultTimezone)
	if err != nil {
		return nil, err
	}

	rebooter, err := bootstrap.NewRebooter(cfg.Bootstrap.RebootMode, cfg.Bootstrap.RebootDelay)
	if err != nil {
		return nil, err
	}

	orchestrator := bootstrap.NewOrchestrator(bootstrap.Config{
		AccessPoint: netmode.APConfig{
			SSID:           cfg.AccessPoint.SSID,
			Password:       cfg.AccessPoint.Password,
			IP:             cfg.AccessPoint.Addr(),
			MaxConnections: cfg.AccessPoint.MaxConnections,
		},
		DNS: dnsresponder.Config{
			Port:          cfg.DNS.Port,
			ReadTimeout:   cfg.DNS.ReadTimeout,
			MaxPacketSize: cfg.DNS.MaxPacketSize,
			TTL:           cfg.DNS.TTL,
			IdleSleep:     cfg.Bootstrap.DNSIdleSleep,
		},
		PortalPort:          cfg.Portal.Port,
		MaxBodyBytes:        cfg.Portal.MaxBodyBytes,
		ConnectPollInterval: cfg.Bootstrap.ConnectPollInterval,
		OnSetupReady: func(ep bootstrap.Endpoints) {
			logging.Info("Setup mode ready",
				zap.String("ssid", cfg.AccessPoint.SSID),
				zap.Stringer("dns", ep.DNS),
				zap.Stringer("portal", ep.Portal),
			)
		},
	}, radio, credentials)

	var advertise func(context.Context, int) error
	if cfg.MDNS.Enabled {
		advertise = func(ctx context.Context, port int) error {
			return discovery.Advertise(ctx, cfg.MDNS.Instance, port, discovery.TXT(version.Version, ""))
		}
	}

	return bootstrap.NewDevice(bootstrap.DeviceConfig{
		WebAddr:         net.JoinHostPort("", strconv.Itoa(cfg.Web.Port)),
		DefaultTimezone: cfg.Clock.DefaultTimezone,
		Advertise:       advertise,
		OnOperational: func(addr net.Addr) {
			logging.Info("Web portal ready", zap.Stringer("addr", addr))
		},
	}, orchestrator, rebooter, credentials, timezone, prefs, display), nil
}
