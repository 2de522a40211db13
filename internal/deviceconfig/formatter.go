package deviceconfig

import (
	"fmt"
	"strings"

	"github.com/espclock/espclock/internal/portal"
)

// Summary returns a one-line summary of a clock's status.
func Summary(s *portal.Status) string {
	return fmt.Sprintf("%s %s on %q (%s)", s.Time, s.Timezone, s.SSID, s.HourFormat)
}

// FormatStatus returns a multi-line report suitable for terminal display.
func FormatStatus(s *portal.Status) string {
	var b strings.Builder

	b.WriteString("=== Clock Status ===\n")
	fmt.Fprintf(&b, "Network:     %s\n", orNone(s.SSID))
	fmt.Fprintf(&b, "Time:        %s%s\n", s.Time, meridiem(s))
	fmt.Fprintf(&b, "Timezone:    %s\n", s.Timezone)
	fmt.Fprintf(&b, "Hour format: %s\n", s.HourFormat)
	fmt.Fprintf(&b, "Brightness:  %d/7 %s\n", s.Brightness, brightnessBar(s.Brightness))
	fmt.Fprintf(&b, "Theme:       %s\n", s.Theme)

	return b.String()
}

func meridiem(s *portal.Status) string {
	if s.HourFormat != "12h" {
		return ""
	}
	if s.PM {
		return " PM"
	}
	return " AM"
}

func brightnessBar(level uint8) string {
	if level > 7 {
		level = 7
	}
	return "[" + strings.Repeat("#", int(level)) + strings.Repeat(".", 7-int(level)) + "]"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
