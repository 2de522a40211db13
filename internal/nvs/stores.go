package nvs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/logging"
	"github.com/espclock/espclock/internal/wifi"
)

// Keys inside the namespaces.
const (
	KeyWifiCredentials = "net_info"
	KeyTimezone        = "tz_info"
	KeyHourFormat      = "hour_format"
)

// CredentialStore persists the station Wi-Fi credentials.
type CredentialStore struct {
	ns *Namespace
}

// NewCredentialStore binds a credential store to the wifi namespace of p.
func NewCredentialStore(p *Partition) (*CredentialStore, error) {
	ns, err := p.Namespace(WifiNamespace)
	if err != nil {
		return nil, err
	}
	logging.Debug("Got namespace from partition", zap.String("namespace", WifiNamespace))
	return &CredentialStore{ns: ns}, nil
}

// Load returns the stored credentials, or nil when none are stored.
func (s *CredentialStore) Load() (*wifi.Credentials, error) {
	var creds wifi.Credentials
	ok, err := s.ns.Get(KeyWifiCredentials, &creds)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &creds, nil
}

// Save overwrites the stored credentials. A write failure is logged and
// dropped: the next boot will fall back to the captive portal.
func (s *CredentialStore) Save(creds wifi.Credentials) {
	if err := s.ns.Set(KeyWifiCredentials, creds); err != nil {
		logging.Warn("Credentials could not be saved",
			zap.String("key", KeyWifiCredentials),
			zap.Error(err),
		)
		return
	}
	logging.Info("Credentials saved", zap.String("key", KeyWifiCredentials), zap.String("ssid", creds.SSID))
}

// Delete removes the stored credentials.
func (s *CredentialStore) Delete() error {
	if err := s.ns.Remove(KeyWifiCredentials); err != nil {
		return err
	}
	logging.Info("Credentials deleted", zap.String("key", KeyWifiCredentials))
	return nil
}

// TimezoneStore persists the configured IANA timezone.
type TimezoneStore struct {
	ns *Namespace
}

// NewTimezoneStore binds a timezone store to the tz namespace of p.
func NewTimezoneStore(p *Partition) (*TimezoneStore, error) {
	ns, err := p.Namespace(TZNamespace)
	if err != nil {
		return nil, err
	}
	return &TimezoneStore{ns: ns}, nil
}

// Load returns the stored timezone and whether one was stored.
func (s *TimezoneStore) Load() (string, bool, error) {
	var tz string
	ok, err := s.ns.Get(KeyTimezone, &tz)
	if err != nil {
		return "", false, err
	}
	return tz, ok, nil
}

// Save stores the timezone name. It is not validated here; callers check it
// against the timezone database first.
func (s *TimezoneStore) Save(tz string) error {
	if err := s.ns.Set(KeyTimezone, tz); err != nil {
		return err
	}
	logging.Info("Timezone saved", zap.String("timezone", tz))
	return nil
}

// Delete removes the stored timezone.
func (s *TimezoneStore) Delete() error {
	return s.ns.Remove(KeyTimezone)
}

// PrefsStore persists display preferences.
type PrefsStore struct {
	ns *Namespace
}

// NewPrefsStore binds a preference store to the prefs namespace of p.
func NewPrefsStore(p *Partition) (*PrefsStore, error) {
	ns, err := p.Namespace(PrefsNamespace)
	if err != nil {
		return nil, err
	}
	return &PrefsStore{ns: ns}, nil
}

// LoadHourFormat returns the stored hour format, or the default when unset.
func (s *PrefsStore) LoadHourFormat() (clock.HourFormat, error) {
	var raw uint8
	ok, err := s.ns.Get(KeyHourFormat, &raw)
	if err != nil {
		return clock.DefaultHourFormat, err
	}
	if !ok {
		return clock.DefaultHourFormat, nil
	}
	return clock.HourFormatFromByte(raw), nil
}

// SaveHourFormat stores the hour format.
func (s *PrefsStore) SaveHourFormat(f clock.HourFormat) error {
	if err := s.ns.Set(KeyHourFormat, f.Byte()); err != nil {
		return fmt.Errorf("failed to save hour format: %w", err)
	}
	logging.Info("Hour format saved", zap.Stringer("hour_format", f))
	return nil
}

// DeleteHourFormat removes the stored hour format.
func (s *PrefsStore) DeleteHourFormat() error {
	return s.ns.Remove(KeyHourFormat)
}
