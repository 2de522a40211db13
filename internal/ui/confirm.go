package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm shows a warning box listing warnings and asks the user to type
// phrase. It reports whether they did.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, phrase string) bool {
	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)), ""}
	for _, w := range warnings {
		lines = append(lines, ResultValueStyle.Render("   • "+w))
	}
	lines = append(lines, "")

	fmt.Fprintln(out, boxStyle(WarningColor, GetTerminalWidth()).Render(strings.Join(lines, "\n")))
	fmt.Fprintln(out)
	fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == phrase {
		return true
	}

	fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}

// ConfirmFactoryReset asks before erasing a clock's network and timezone.
func ConfirmFactoryReset(in io.Reader, out io.Writer, clock string) bool {
	return Confirm(in, out, "FACTORY RESET",
		[]string{
			"The clock at " + clock + " will forget its Wi-Fi network and timezone",
			"It will restart into setup mode on the esp-clock network",
			"You will need to run 'clock-cfg wifi' again to reconnect it",
		},
		"reset",
	)
}
