package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "espclock") {
		t.Errorf("GetConfigDir() = %v, should contain 'espclock'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if want := filepath.Join("/tmp/xdg", "espclock"); got != want {
		t.Errorf("GetConfigDir() = %q, want %q", got, want)
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (string, error)
		base string
	}{
		{"config", GetConfigPath, "config.yaml"},
		{"registry", GetRegistryPath, "clocks.yaml"},
		{"storage", GetStorageDir, "nvs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := tt.fn()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if filepath.Base(path) != tt.base {
				t.Errorf("path %q should end with %q", path, tt.base)
			}
		})
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Clocks == nil {
		t.Error("NewRegistry().Clocks should not be nil")
	}
	if reg.Preferences == nil || reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("NewRegistry().Preferences = %+v, want DiscoverTimeout 5", reg.Preferences)
	}
}

func TestRegistryEnsureClock(t *testing.T) {
	reg := NewRegistry()

	c := reg.EnsureClock("esp-clock")
	if c == nil {
		t.Fatal("EnsureClock() returned nil")
	}
	if again := reg.EnsureClock("esp-clock"); again != c {
		t.Error("EnsureClock() should return the existing entry")
	}
	if len(reg.Clocks) != 1 {
		t.Errorf("len(Clocks) = %d, want 1", len(reg.Clocks))
	}
}

func TestRegistryUpdateClockLastSeen(t *testing.T) {
	reg := NewRegistry()
	before := time.Now()

	reg.UpdateClockLastSeen("esp-clock", "192.168.1.50", 80)

	c := reg.GetClock("esp-clock")
	if c.LastIP != "192.168.1.50" || c.LastPort != 80 {
		t.Errorf("got %s:%d, want 192.168.1.50:80", c.LastIP, c.LastPort)
	}
	if c.LastSeen.Before(before) {
		t.Errorf("LastSeen %v should not be before %v", c.LastSeen, before)
	}
}

func TestRegistryFindByNickname(t *testing.T) {
	reg := NewRegistry()
	reg.SetClockNickname("esp-clock", "Kitchen")
	reg.SetClockNickname("esp-clock-2", "Hallway")

	tests := []struct {
		query    string
		instance string
		found    bool
	}{
		{"Kitchen", "esp-clock", true},
		{"esp-clock-2", "esp-clock-2", true},
		{"Garage", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			instance, _, found := reg.FindByNickname(tt.query)
			if found != tt.found || instance != tt.instance {
				t.Errorf("FindByNickname(%q) = %q, %v; want %q, %v", tt.query, instance, found, tt.instance, tt.found)
			}
		})
	}
}

func TestRegistryDisplayNameAndRemove(t *testing.T) {
	reg := NewRegistry()
	reg.EnsureClock("b")
	reg.SetClockNickname("a", "Office")

	if got := reg.DisplayName("a"); got != "Office" {
		t.Errorf("DisplayName(a) = %q, want Office", got)
	}
	if got := reg.DisplayName("b"); got != "b" {
		t.Errorf("DisplayName(b) = %q, want b", got)
	}
	if got := reg.Instances(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Instances() = %v, want [a b]", got)
	}

	reg.RemoveClock("a")
	if reg.GetClock("a") != nil {
		t.Error("clock a should be removed")
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocks.yaml")

	reg := NewRegistry()
	reg.UpdateClockLastSeen("esp-clock", "192.168.1.50", 80)
	reg.SetClockNickname("esp-clock", "Kitchen")
	reg.SetClockSSID("esp-clock", "home")

	if err := reg.saveTo(path); err != nil {
		t.Fatalf("saveTo() error = %v", err)
	}

	loaded, err := loadRegistryFromFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFromFile() error = %v", err)
	}

	c := loaded.GetClock("esp-clock")
	if c == nil {
		t.Fatal("clock missing after reload")
	}
	if c.Nickname != "Kitchen" || c.SSID != "home" || c.LastIP != "192.168.1.50" {
		t.Errorf("reloaded clock = %+v", c)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# esp-clock registry") {
		t.Error("saved registry should start with the header comment")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}
}

func TestLoadRegistryFromFile_Missing(t *testing.T) {
	reg, err := loadRegistryFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadRegistryFromFile() error = %v", err)
	}
	if reg.Version != 1 || reg.Clocks == nil {
		t.Errorf("missing file should yield a default registry, got %+v", reg)
	}
}

func TestLoadRegistryFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"bad yaml", "version: [1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "clocks.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := loadRegistryFromFile(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadRegistryFromFile_FillsPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocks.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := loadRegistryFromFile(path)
	if err != nil {
		t.Fatalf("loadRegistryFromFile() error = %v", err)
	}
	if reg.Preferences == nil || reg.Clocks == nil {
		t.Errorf("defaults not filled: %+v", reg)
	}
}

func TestMarshalRegistryOmitsPasswords(t *testing.T) {
	reg := NewRegistry()
	reg.SetClockSSID("esp-clock", "home")

	data, err := marshalRegistry(reg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "password") {
		t.Errorf("registry YAML should not contain a password field:\n%s", data)
	}
}
