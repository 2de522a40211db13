package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Detail is one key/value line of a result box. Details render in order.
type Detail struct {
	Key   string
	Value string
}

// Result is a bordered summary printed when a command finishes.
type Result struct {
	Type    ResultType
	Title   string
	Details []Detail
	Error   error
	// Hint is multi-line troubleshooting text shown under the error.
	Hint  string
	Width int
}

func NewSuccessResult(title string, details []Detail) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

func NewFailureResult(title string, err error, hint string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Hint: hint, Width: GetTerminalWidth()}
}

func NewWarningResult(title string, details []Detail) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// Render returns the styled result box.
func (r *Result) Render() string {
	var (
		title lipgloss.Style
		label string
		color lipgloss.Color
	)
	switch r.Type {
	case ResultFailure:
		title, label, color = ErrorTitleStyle, FailureMarker+"  FAILED", ErrorColor
	case ResultWarning:
		title, label, color = WarningTitleStyle, WarningMarker+"  WARNING", WarningColor
	default:
		title, label, color = SuccessTitleStyle, SuccessMarker+"  SUCCESS", SuccessColor
	}

	lines := []string{"", title.Render(fmt.Sprintf("   %s  ─  %s", label, r.Title)), ""}

	for _, d := range r.Details {
		lines = append(lines, ResultKeyStyle.Render("   "+d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}
	if r.Hint != "" {
		for _, l := range strings.Split(r.Hint, "\n") {
			lines = append(lines, TroubleshootingStyle.Render("   "+l))
		}
		lines = append(lines, "")
	}

	return boxStyle(color, r.Width).Render(strings.Join(lines, "\n"))
}

func (r *Result) String() string {
	return r.Render()
}

func RenderSuccess(title string, details []Detail) string {
	return NewSuccessResult(title, details).Render()
}

func RenderFailure(title string, err error, hint string) string {
	return NewFailureResult(title, err, hint).Render()
}

func RenderWarning(title string, details []Detail) string {
	return NewWarningResult(title, details).Render()
}
