package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.AccessPoint.SSID != "esp-clock" || cfg.AccessPoint.Password != "bttf-rust" {
		t.Errorf("unexpected access point defaults: %+v", cfg.AccessPoint)
	}
	if cfg.Bootstrap.RebootDelay != time.Second {
		t.Errorf("RebootDelay = %v, want 1s", cfg.Bootstrap.RebootDelay)
	}
	if got := cfg.AccessPoint.Addr().String(); got != "192.168.71.1" {
		t.Errorf("Addr() = %s, want 192.168.71.1", got)
	}
	if cfg.DNS.MaxPacketSize != 100 || cfg.DNS.TTL != 10*time.Second {
		t.Errorf("unexpected dns defaults: %+v", cfg.DNS)
	}
	if cfg.Portal.MaxBodyBytes != 128 {
		t.Errorf("Portal.MaxBodyBytes = %d, want 128", cfg.Portal.MaxBodyBytes)
	}
}

func TestLoadDaemonConfig_OverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
access_point:
  ssid: my-clock
dns:
  read_timeout: 25ms
bootstrap:
  connect_poll_interval: 250ms
  reboot_mode: exec
storage:
  dir: /var/lib/espclock
radio:
  known_networks:
    home: secret123
`)

	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("LoadDaemonConfig() error = %v", err)
	}

	if cfg.AccessPoint.SSID != "my-clock" {
		t.Errorf("SSID = %q, want my-clock", cfg.AccessPoint.SSID)
	}
	if cfg.AccessPoint.Password != DefaultAPPassword {
		t.Errorf("Password should keep its default, got %q", cfg.AccessPoint.Password)
	}
	if cfg.DNS.ReadTimeout != 25*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 25ms", cfg.DNS.ReadTimeout)
	}
	if cfg.DNS.Port != DefaultDNSPort {
		t.Errorf("DNS.Port = %d, want default", cfg.DNS.Port)
	}
	if cfg.Bootstrap.ConnectPollInterval != 250*time.Millisecond || cfg.Bootstrap.RebootMode != "exec" {
		t.Errorf("unexpected bootstrap section: %+v", cfg.Bootstrap)
	}
	if cfg.Storage.Dir != "/var/lib/espclock" {
		t.Errorf("Storage.Dir = %q", cfg.Storage.Dir)
	}
	if cfg.Radio.KnownNetworks["home"] != "secret123" {
		t.Errorf("KnownNetworks = %v", cfg.Radio.KnownNetworks)
	}
}

func TestLoadDaemonConfig_DefaultStorageDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadDaemonConfig(writeConfig(t, "web:\n  port: 8080\n"))
	if err != nil {
		t.Fatalf("LoadDaemonConfig() error = %v", err)
	}
	want, _ := GetStorageDir()
	if cfg.Storage.Dir != want {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, want)
	}
}

func TestLoadDaemonConfig_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadDaemonConfig("")
	if err != nil {
		t.Fatalf("LoadDaemonConfig() error = %v", err)
	}
	if cfg.AccessPoint.SSID != DefaultAPSSID {
		t.Errorf("missing file should yield defaults, got %+v", cfg.AccessPoint)
	}
}

func TestLoadDaemonConfig_MissingExplicitFile(t *testing.T) {
	if _, err := LoadDaemonConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("an explicit path that does not exist should be an error")
	}
}

func TestLoadDaemonConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"short password", "access_point:\n  password: short\n", "access_point.password"},
		{"ipv6 address", "access_point:\n  ip: \"::1\"\n", "access_point.ip"},
		{"zero connections", "access_point:\n  max_connections: 0\n", "max_connections"},
		{"tiny packets", "dns:\n  max_packet_size: 4\n", "dns.max_packet_size"},
		{"port range", "portal:\n  port: 70000\n", "portal.port"},
		{"reboot mode", "bootstrap:\n  reboot_mode: halt\n", "reboot_mode"},
		{"zero reboot delay", "bootstrap:\n  reboot_delay: 0s\n", "bootstrap.reboot_delay"},
		{"long reboot delay", "bootstrap:\n  reboot_delay: 5m\n", "bootstrap.reboot_delay"},
		{"driver", "radio:\n  driver: wpa\n", "radio.driver"},
		{"nmcli needs iface", "radio:\n  driver: nmcli\n", "radio.interface"},
		{"timezone", "clock:\n  default_timezone: Mars/Olympus\n", "default_timezone"},
		{"bad duration", "dns:\n  ttl: soon\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDaemonConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDaemonConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.Storage.Dir = "/data/nvs"
	cfg.DNS.ReadTimeout = 40 * time.Millisecond
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "read_timeout: 40ms") {
		t.Errorf("durations should be written in Go syntax:\n%s", data)
	}

	loaded, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("LoadDaemonConfig() error = %v", err)
	}
	if loaded.DNS.ReadTimeout != 40*time.Millisecond || loaded.Storage.Dir != "/data/nvs" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
