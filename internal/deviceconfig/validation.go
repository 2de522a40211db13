package deviceconfig

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/espclock/espclock/internal/clock"
	"github.com/espclock/espclock/internal/portal"
	"github.com/espclock/espclock/internal/wifi"
)

// ValidateCredentials checks the 802.11 field limits and that the encoded
// submission fits the captive portal's body limit.
func ValidateCredentials(creds wifi.Credentials) error {
	if err := creds.Validate(); err != nil {
		return NewValidationError(err.Error())
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return NewValidationError(fmt.Sprintf("failed to encode credentials: %v", err))
	}
	if len(body) > portal.DefaultMaxBodyBytes {
		return NewValidationError(fmt.Sprintf("encoded credentials are %d bytes, the clock accepts at most %d", len(body), portal.DefaultMaxBodyBytes))
	}
	return nil
}

// ValidateBrightness checks the display's 0-7 range.
func ValidateBrightness(level int) error {
	if level < 0 || level > clock.MaxBrightness {
		return NewValidationError(fmt.Sprintf("brightness must be 0-%d, got %d", clock.MaxBrightness, level))
	}
	return nil
}

func ValidateTheme(name string) (clock.Theme, error) {
	t, err := clock.ParseTheme(name)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("unknown theme %q (expected orange, green or blue)", name))
	}
	return t, nil
}

// ValidateTimezone checks name against the local timezone database.
func ValidateTimezone(name string) error {
	if _, err := clock.ValidateTimezone(name); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Validation failed with %d error(s):\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}
