package wifi

import (
	"errors"
	"strings"
	"testing"
)

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "valid", creds: Credentials{SSID: "Home", Password: "secret123"}},
		{name: "open network", creds: Credentials{SSID: "Cafe"}},
		{name: "empty ssid", creds: Credentials{Password: "x"}, wantErr: true},
		{name: "ssid at limit", creds: Credentials{SSID: strings.Repeat("s", MaxSSIDLength)}},
		{name: "ssid too long", creds: Credentials{SSID: strings.Repeat("s", MaxSSIDLength+1)}, wantErr: true},
		{name: "password too long", creds: Credentials{SSID: "Home", Password: strings.Repeat("p", MaxPasswordLength+1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentials_ValidateEmptySSID(t *testing.T) {
	err := Credentials{}.Validate()
	if !errors.Is(err, ErrEmptySSID) {
		t.Errorf("Validate() = %v, want ErrEmptySSID", err)
	}
}

func TestCredentials_StringHidesPassword(t *testing.T) {
	s := Credentials{SSID: "Home", Password: "secret123"}.String()
	if strings.Contains(s, "secret123") {
		t.Errorf("String() leaked the password: %s", s)
	}
	if !strings.Contains(s, `"Home"`) {
		t.Errorf("String() = %s, want the SSID", s)
	}
}
