package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Firmware defaults.
const (
	DefaultAPSSID           = "esp-clock"
	DefaultAPPassword       = "bttf-rust"
	DefaultAPIP             = "192.168.71.1"
	DefaultMaxConnections   = 4
	DefaultDNSPort          = 53
	DefaultDNSReadTimeout   = 10 * time.Millisecond
	DefaultDNSMaxPacketSize = 100
	DefaultDNSTTL           = 10 * time.Second
	DefaultPortalPort       = 80
	DefaultMaxBodyBytes     = 128
	DefaultWebPort          = 80
	DefaultConnectPoll      = time.Second
	DefaultDNSIdleSleep     = 5 * time.Millisecond
	DefaultRebootMode       = "in_process"
	DefaultRebootDelay      = time.Second
	MaxRebootDelay          = 30 * time.Second
	DefaultRadioDriver      = "sim"
	DefaultTimezone         = "UTC"
	DefaultMDNSInstance     = "esp-clock"
)

// DaemonConfig is the clockd configuration file.
type DaemonConfig struct {
	AccessPoint AccessPointConfig `yaml:"access_point"`
	DNS         DNSConfig         `yaml:"dns"`
	Portal      PortalConfig      `yaml:"portal"`
	Web         WebConfig         `yaml:"web"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
	Storage     StorageConfig     `yaml:"storage"`
	Radio       RadioConfig       `yaml:"radio"`
	Clock       ClockConfig       `yaml:"clock"`
	MDNS        MDNSConfig        `yaml:"mdns"`
}

// AccessPointConfig describes the setup network.
type AccessPointConfig struct {
	SSID           string `yaml:"ssid"`
	Password       string `yaml:"password"`
	IP             string `yaml:"ip"`
	MaxConnections int    `yaml:"max_connections"`
}

// Addr parses IP. Call Validate first.
func (c AccessPointConfig) Addr() netip.Addr {
	addr, _ := netip.ParseAddr(c.IP)
	return addr
}

type DNSConfig struct {
	Port          int           `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	MaxPacketSize int           `yaml:"max_packet_size"`
	TTL           time.Duration `yaml:"ttl"`
}

type PortalConfig struct {
	Port         int   `yaml:"port"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type BootstrapConfig struct {
	ConnectPollInterval time.Duration `yaml:"connect_poll_interval"`
	DNSIdleSleep        time.Duration `yaml:"dns_idle_sleep"`
	RebootMode          string        `yaml:"reboot_mode"`

	// RebootDelay is the pause before a restarted cycle. Repeated fatal
	// errors back off from it up to MaxRebootDelay.
	RebootDelay time.Duration `yaml:"reboot_delay"`
}

// StorageConfig locates the persistent partition. An empty Dir means the
// nvs directory under the config dir.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// RadioConfig selects the network driver. KnownNetworks seeds the simulated
// driver with SSID to password pairs.
type RadioConfig struct {
	Driver        string            `yaml:"driver"`
	Interface     string            `yaml:"interface"`
	KnownNetworks map[string]string `yaml:"known_networks,omitempty"`
}

type ClockConfig struct {
	DefaultTimezone string `yaml:"default_timezone"`
}

type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// Default returns the configuration used when no file exists.
func Default() *DaemonConfig {
	return &DaemonConfig{
		AccessPoint: AccessPointConfig{
			SSID:           DefaultAPSSID,
			Password:       DefaultAPPassword,
			IP:             DefaultAPIP,
			MaxConnections: DefaultMaxConnections,
		},
		DNS: DNSConfig{
			Port:          DefaultDNSPort,
			ReadTimeout:   DefaultDNSReadTimeout,
			MaxPacketSize: DefaultDNSMaxPacketSize,
			TTL:           DefaultDNSTTL,
		},
		Portal: PortalConfig{
			Port:         DefaultPortalPort,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Web: WebConfig{Port: DefaultWebPort},
		Bootstrap: BootstrapConfig{
			ConnectPollInterval: DefaultConnectPoll,
			DNSIdleSleep:        DefaultDNSIdleSleep,
			RebootMode:          DefaultRebootMode,
			RebootDelay:         DefaultRebootDelay,
		},
		Radio: RadioConfig{Driver: DefaultRadioDriver},
		Clock: ClockConfig{DefaultTimezone: DefaultTimezone},
		MDNS: MDNSConfig{
			Enabled:  true,
			Instance: DefaultMDNSInstance,
		},
	}
}

// LoadDaemonConfig reads the configuration at path, or at the default
// location when path is empty. A missing file yields Default(); fields
// absent from the file keep their defaults.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, cfg.resolveStorageDir()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.resolveStorageDir(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *DaemonConfig) resolveStorageDir() error {
	if c.Storage.Dir != "" {
		return nil
	}
	dir, err := GetStorageDir()
	if err != nil {
		return err
	}
	c.Storage.Dir = dir
	return nil
}

// Validate checks value ranges.
func (c *DaemonConfig) Validate() error {
	var errs []error

	ap := c.AccessPoint
	if n := len(ap.SSID); n == 0 || n > 32 {
		errs = append(errs, fmt.Errorf("access_point.ssid must be 1-32 bytes, got %d", n))
	}
	if n := len(ap.Password); n < 8 || n > 64 {
		errs = append(errs, fmt.Errorf("access_point.password must be 8-64 bytes, got %d", n))
	}
	if addr, err := netip.ParseAddr(ap.IP); err != nil || !addr.Is4() {
		errs = append(errs, fmt.Errorf("access_point.ip %q is not an IPv4 address", ap.IP))
	}
	if ap.MaxConnections < 1 {
		errs = append(errs, errors.New("access_point.max_connections must be at least 1"))
	}

	if !validPort(c.DNS.Port) {
		errs = append(errs, fmt.Errorf("dns.port %d out of range", c.DNS.Port))
	}
	if c.DNS.ReadTimeout <= 0 {
		errs = append(errs, errors.New("dns.read_timeout must be positive"))
	}
	// A query shorter than the 12-byte header cannot be answered.
	if c.DNS.MaxPacketSize < 12 || c.DNS.MaxPacketSize > 512 {
		errs = append(errs, fmt.Errorf("dns.max_packet_size must be 12-512, got %d", c.DNS.MaxPacketSize))
	}
	if c.DNS.TTL < time.Second {
		errs = append(errs, errors.New("dns.ttl must be at least 1s"))
	}

	if !validPort(c.Portal.Port) {
		errs = append(errs, fmt.Errorf("portal.port %d out of range", c.Portal.Port))
	}
	if c.Portal.MaxBodyBytes < 1 {
		errs = append(errs, errors.New("portal.max_body_bytes must be positive"))
	}
	if !validPort(c.Web.Port) {
		errs = append(errs, fmt.Errorf("web.port %d out of range", c.Web.Port))
	}

	if c.Bootstrap.ConnectPollInterval <= 0 {
		errs = append(errs, errors.New("bootstrap.connect_poll_interval must be positive"))
	}
	if c.Bootstrap.DNSIdleSleep < 0 {
		errs = append(errs, errors.New("bootstrap.dns_idle_sleep must not be negative"))
	}
	if c.Bootstrap.RebootDelay <= 0 || c.Bootstrap.RebootDelay > MaxRebootDelay {
		errs = append(errs, fmt.Errorf("bootstrap.reboot_delay %s out of range (0, %s]", c.Bootstrap.RebootDelay, MaxRebootDelay))
	}
	switch c.Bootstrap.RebootMode {
	case "in_process", "system", "exec":
	default:
		errs = append(errs, fmt.Errorf("bootstrap.reboot_mode %q (expected in_process, system or exec)", c.Bootstrap.RebootMode))
	}

	switch c.Radio.Driver {
	case "sim":
	case "nmcli":
		if c.Radio.Interface == "" {
			errs = append(errs, errors.New("radio.interface is required for the nmcli driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("radio.driver %q (expected sim or nmcli)", c.Radio.Driver))
	}

	if _, err := time.LoadLocation(c.Clock.DefaultTimezone); err != nil {
		errs = append(errs, fmt.Errorf("clock.default_timezone: %w", err))
	}
	if c.MDNS.Enabled && c.MDNS.Instance == "" {
		errs = append(errs, errors.New("mdns.instance is required when mdns is enabled"))
	}

	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p >= 0 && p <= 65535
}

// Marshal renders the configuration as YAML.
func (c *DaemonConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration to path atomically.
func (c *DaemonConfig) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# esp-clock daemon configuration\n# Durations use Go syntax (10ms, 1s).\n\n")
	return writeFileAtomic(path, header, data)
}
