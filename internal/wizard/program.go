package wizard

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the wizard until the user quits or a submission succeeds.
func Run(ctx context.Context, s Submitter, clockAddr, ssid string, in io.Reader, out io.Writer) (Result, error) {
	p := tea.NewProgram(
		NewModel(ctx, s, clockAddr, ssid),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := p.Run()
	if err != nil {
		return Result{}, fmt.Errorf("setup wizard: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Result{}, fmt.Errorf("setup wizard: unexpected model %T", final)
	}
	return m.Result(), nil
}
