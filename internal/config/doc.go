// Package config provides configuration management for the esp-clock
// daemon and the configuration utility.
//
// Two YAML files live in the application's configuration directory:
//
//   - config.yaml configures clockd: the setup access point, the DNS hijack
//     responder, the portals, the boot cycle, storage and the radio driver.
//     Every field has a default matching the clock firmware, so the file is
//     optional.
//   - clocks.yaml is the clock-cfg registry of clocks it has discovered or
//     configured, with user-defined nicknames.
//
// # Configuration File Location
//
// Files are stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/espclock or $HOME/.config/espclock
//   - macOS: $HOME/.config/espclock
//   - Windows: %LOCALAPPDATA%\espclock
//
// # Security
//
// The registry NEVER stores Wi-Fi passwords. The daemon configuration holds
// the setup access point password, which is a fixed value printed on the
// clock rather than a user secret.
//
// # Usage Example
//
//	cfg, err := config.LoadDaemonConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.AccessPoint.SSID)
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	registry.UpdateClockLastSeen("esp-clock", "192.168.1.50", 80)
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
