package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/espclock/espclock/internal/deviceconfig"
	"github.com/espclock/espclock/internal/ui"
	"github.com/espclock/espclock/internal/wifi"
)

// Submitter sends credentials to a clock. *deviceconfig.Client implements it.
type Submitter interface {
	SubmitCredentials(ctx context.Context, creds wifi.Credentials) (string, error)
}

type step int

const (
	stepSSID step = iota
	stepPassword
	stepSubmitting
	stepDone
	stepFailed
)

type submitResultMsg struct {
	reply string
	err   error
}

// Result is what the wizard ended with.
type Result struct {
	Submitted bool
	SSID      string
	Reply     string
	Err       error
}

// Model is the bubbletea model of the setup wizard.
type Model struct {
	ctx       context.Context
	submitter Submitter
	clockAddr string

	step     step
	ssid     textinput.Model
	password textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	inputErr string
	result   Result
	width    int
}

// NewModel creates a wizard submitting to clockAddr through s. ssid
// pre-fills the first field.
func NewModel(ctx context.Context, s Submitter, clockAddr, ssid string) Model {
	ssidInput := textinput.New()
	ssidInput.Placeholder = "home network name"
	ssidInput.CharLimit = wifi.MaxSSIDLength
	ssidInput.Prompt = "SSID:     "
	ssidInput.SetValue(ssid)
	ssidInput.Focus()

	passInput := textinput.New()
	passInput.Placeholder = "leave empty for an open network"
	passInput.CharLimit = wifi.MaxPasswordLength
	passInput.Prompt = "Password: "
	passInput.EchoMode = textinput.EchoPassword
	passInput.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.TitleStyle

	return Model{
		ctx:       ctx,
		submitter: s,
		clockAddr: clockAddr,
		step:      stepSSID,
		ssid:      ssidInput,
		password:  passInput,
		spinner:   sp,
		help:      help.New(),
		keys:      defaultKeys(),
		width:     ui.GetTerminalWidth(),
	}
}

// Result returns the outcome once the program has exited.
func (m Model) Result() Result {
	return m.result
}

func (m Model) credentials() wifi.Credentials {
	return wifi.Credentials{
		SSID:     strings.TrimSpace(m.ssid.Value()),
		Password: m.password.Value(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// submit runs the submission off the update loop.
func (m Model) submit() tea.Cmd {
	ctx, s, creds := m.ctx, m.submitter, m.credentials()
	return func() tea.Msg {
		reply, err := s.SubmitCredentials(ctx, creds)
		return submitResultMsg{reply: reply, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case submitResultMsg:
		m.result = Result{SSID: m.credentials().SSID, Reply: msg.reply, Err: msg.err}
		if msg.err != nil {
			m.step = stepFailed
			return m, nil
		}
		m.result.Submitted = true
		m.step = stepDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.step != stepSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepSSID:
		if key.Matches(msg, m.keys.Next) {
			if err := (wifi.Credentials{SSID: m.credentials().SSID}).Validate(); err != nil {
				m.inputErr = err.Error()
				return m, nil
			}
			m.inputErr = ""
			m.step = stepPassword
			m.ssid.Blur()
			return m, m.password.Focus()
		}

	case stepPassword:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.inputErr = ""
			m.step = stepSSID
			m.password.Blur()
			return m, m.ssid.Focus()
		case key.Matches(msg, m.keys.Next):
			if err := deviceconfig.ValidateCredentials(m.credentials()); err != nil {
				m.inputErr = deviceconfig.GetShortErrorMessage(err)
				return m, nil
			}
			m.inputErr = ""
			m.step = stepSubmitting
			m.password.Blur()
			return m, tea.Batch(m.spinner.Tick, m.submit())
		}

	case stepSubmitting, stepDone:
		return m, nil

	case stepFailed:
		switch {
		case key.Matches(msg, m.keys.Retry):
			m.step = stepSubmitting
			return m, tea.Batch(m.spinner.Tick, m.submit())
		case key.Matches(msg, m.keys.Edit):
			m.step = stepSSID
			return m, m.ssid.Focus()
		case msg.String() == "q":
			return m, tea.Quit
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.step {
	case stepSSID:
		m.ssid, cmd = m.ssid.Update(msg)
	case stepPassword:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render("ESP-CLOCK SETUP"))
	b.WriteString("\n")
	b.WriteString(ui.SubtleStyle.Render("Join the esp-clock network, then enter your home Wi-Fi. Clock: " + m.clockAddr))
	b.WriteString("\n\n")

	switch m.step {
	case stepSSID, stepPassword:
		b.WriteString(m.ssid.View())
		b.WriteString("\n")
		if m.step == stepPassword {
			b.WriteString(m.password.View())
			b.WriteString("\n")
		}
		if m.inputErr != "" {
			b.WriteString("\n")
			b.WriteString(ui.ErrorMessageStyle.Render(m.inputErr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))

	case stepSubmitting:
		fmt.Fprintf(&b, "%s Sending credentials for %q...\n", m.spinner.View(), m.credentials().SSID)

	case stepDone:
		b.WriteString(ui.NewSuccessResult("Credentials sent", []ui.Detail{
			{Key: "Network", Value: m.result.SSID},
			{Key: "Clock", Value: m.result.Reply},
		}).Render())
		b.WriteString("\n")

	case stepFailed:
		r := ui.NewFailureResult("Submission failed", m.result.Err, deviceconfig.GetTroubleshootingHint(m.result.Err))
		r.Width = m.width
		b.WriteString(r.Render())
		b.WriteString("\n\n")
		b.WriteString(m.help.View(resultKeys{keyMap: m.keys, failed: true}))
	}

	return b.String()
}
