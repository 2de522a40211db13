package wizard

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next  key.Binding
	Back  key.Binding
	Retry key.Binding
	Edit  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Back, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Back}, {k.Retry, k.Edit, k.Quit}}
}

func defaultKeys() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next"),
		),
		Back: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "back"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// resultKeys are shown once a submission has finished.
type resultKeys struct {
	keyMap
	failed bool
}

func (k resultKeys) ShortHelp() []key.Binding {
	if k.failed {
		return []key.Binding{k.Retry, k.Edit, k.Quit}
	}
	return []key.Binding{k.Quit}
}
