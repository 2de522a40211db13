// Package wifi holds the Wi-Fi credential type shared by the captive portal,
// the credential store and the station network mode.
package wifi

import (
	"errors"
	"fmt"
)

const (
	// MaxSSIDLength is the 802.11 limit on SSID length in bytes.
	MaxSSIDLength = 32

	// MaxPasswordLength is the WPA2 passphrase limit in bytes.
	MaxPasswordLength = 64
)

// ErrEmptySSID is returned by Validate when the SSID is blank.
var ErrEmptySSID = errors.New("ssid must not be empty")

// Credentials identify the network the clock joins in station mode.
type Credentials struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password" yaml:"password"`
}

// Validate checks the field lengths a radio driver can accept.
// An empty password is allowed for open networks.
func (c Credentials) Validate() error {
	if c.SSID == "" {
		return ErrEmptySSID
	}
	if len(c.SSID) > MaxSSIDLength {
		return fmt.Errorf("ssid is %d bytes, maximum is %d", len(c.SSID), MaxSSIDLength)
	}
	if len(c.Password) > MaxPasswordLength {
		return fmt.Errorf("password is %d bytes, maximum is %d", len(c.Password), MaxPasswordLength)
	}
	return nil
}

// String never includes the password so that credentials can be logged.
func (c Credentials) String() string {
	return fmt.Sprintf("ssid=%q password=%s", c.SSID, maskPassword(c.Password))
}

func maskPassword(p string) string {
	if p == "" {
		return "<none>"
	}
	return "<redacted>"
}
