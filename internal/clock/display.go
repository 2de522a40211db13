// Package clock holds the user-facing display state of the clock: brightness,
// LED strip theme, hour format and timezone. Rendering to the seven-segment
// digits and the LED strip is done by the panel driver, which reads a Snapshot.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // the clock host may ship without a zoneinfo database

	"go.uber.org/zap"

	"github.com/espclock/espclock/internal/logging"
)

// MaxBrightness is the highest level accepted by the display driver.
const MaxBrightness = 7

// HourFormat selects 12 or 24 hour display.
type HourFormat uint8

const (
	TwelveHour     HourFormat = 0
	TwentyFourHour HourFormat = 1

	DefaultHourFormat = TwentyFourHour
)

// HourFormatFromByte decodes the persisted representation. Unknown values
// fall back to the default.
func HourFormatFromByte(b uint8) HourFormat {
	switch HourFormat(b) {
	case TwelveHour, TwentyFourHour:
		return HourFormat(b)
	default:
		return DefaultHourFormat
	}
}

// ParseHourFormat accepts "12", "12h", "24" and "24h".
func ParseHourFormat(s string) (HourFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "12", "12h":
		return TwelveHour, nil
	case "24", "24h":
		return TwentyFourHour, nil
	default:
		return DefaultHourFormat, fmt.Errorf("invalid hour format %q (expected 12 or 24)", s)
	}
}

// Byte returns the persisted representation.
func (f HourFormat) Byte() uint8 {
	return uint8(f)
}

func (f HourFormat) String() string {
	if f == TwelveHour {
		return "12h"
	}
	return "24h"
}

// Theme is an LED strip colour theme.
type Theme string

const (
	ThemeOrange Theme = "orange"
	ThemeGreen  Theme = "green"
	ThemeBlue   Theme = "blue"

	DefaultTheme = ThemeOrange
)

// ErrInvalidTheme is returned by ParseTheme for unknown names.
var ErrInvalidTheme = errors.New("invalid theme")

// ParseTheme resolves a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeOrange, ThemeGreen, ThemeBlue:
		return t, nil
	default:
		return DefaultTheme, fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// ValidateTimezone checks name against the timezone database.
func ValidateTimezone(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("timezone must not be empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Snapshot is a copy of the display state.
type Snapshot struct {
	Brightness uint8  `json:"brightness"`
	Theme      Theme  `json:"theme"`
	HourFormat string `json:"hour_format"`
	Timezone   string `json:"timezone"`
	Time       string `json:"time"`
	PM         bool   `json:"pm"`
}

// Display is the mutex-guarded display state.
type Display struct {
	mu         sync.RWMutex
	brightness uint8
	theme      Theme
	hourFormat HourFormat
	tzName     string
	loc        *time.Location

	// now is replaceable in tests.
	now func() time.Time
}

// NewDisplay creates the display state in timezone tz.
func NewDisplay(tz string) (*Display, error) {
	loc, err := ValidateTimezone(tz)
	if err != nil {
		return nil, err
	}
	return &Display{
		brightness: MaxBrightness,
		theme:      DefaultTheme,
		hourFormat: DefaultHourFormat,
		tzName:     tz,
		loc:        loc,
		now:        time.Now,
	}, nil
}

// SetBrightness sets the level, 0 to MaxBrightness.
func (d *Display) SetBrightness(level uint8) error {
	if level > MaxBrightness {
		return fmt.Errorf("brightness %d out of range 0-%d", level, MaxBrightness)
	}
	d.mu.Lock()
	d.brightness = level
	d.mu.Unlock()

	logging.Info("Brightness updated", zap.Uint8("level", level))
	return nil
}

// SetTheme switches the LED strip theme.
func (d *Display) SetTheme(t Theme) {
	d.mu.Lock()
	d.theme = t
	d.mu.Unlock()

	logging.Info("Theme changed", zap.String("theme", string(t)))
}

// SetHourFormat switches between 12 and 24 hour display.
func (d *Display) SetHourFormat(f HourFormat) {
	d.mu.Lock()
	d.hourFormat = f
	d.mu.Unlock()
}

// SetTimezone validates and applies a new timezone.
func (d *Display) SetTimezone(name string) error {
	loc, err := ValidateTimezone(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.tzName = name
	d.loc = loc
	d.mu.Unlock()

	logging.Info("Timezone changed", zap.String("timezone", name))
	return nil
}

// Timezone returns the current timezone name.
func (d *Display) Timezone() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tzName
}

// Snapshot returns the current state including the formatted time.
func (d *Display) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t := d.now().In(d.loc)
	hour := t.Hour()
	pm := hour >= 12
	if d.hourFormat == TwelveHour {
		hour %= 12
		if hour == 0 {
			hour = 12
		}
	}

	return Snapshot{
		Brightness: d.brightness,
		Theme:      d.theme,
		HourFormat: d.hourFormat.String(),
		Timezone:   d.tzName,
		Time:       fmt.Sprintf("%02d:%02d", hour, t.Minute()),
		PM:         pm,
	}
}
