package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// loginForm is the username/password pair used by 'pmc login' and the
// console's login screen.
type loginForm struct {
	inputs []textinput.Model
	focus  int
}

func newLoginForm(username string) loginForm {
	user := newInput()
	user.Prompt = "Username: "
	user.Placeholder = "username"
	user.SetValue(username)

	pass := newInput()
	pass.Prompt = "Password: "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'

	f := loginForm{inputs: []textinput.Model{user, pass}}
	if username != "" {
		f.focus = 1
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f *loginForm) setFocus(i int) {
	n := len(f.inputs)
	i = ((i % n) + n) % n
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[f.focus].Focus()
}

// update feeds msg to the focused input. submit is true when enter is
// pressed on the password field.
func (f loginForm) update(msg tea.Msg) (form loginForm, cmd tea.Cmd, submit bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return f, nil, false
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return f, nil, false
		case "enter":
			if f.focus < len(f.inputs)-1 {
				f.setFocus(f.focus + 1)
				return f, nil, false
			}
			return f, nil, true
		}
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f loginForm) credentials() (username, password string) {
	return strings.TrimSpace(f.inputs[0].Value()), f.inputs[1].Value()
}

func (f loginForm) view() string {
	var b strings.Builder
	for _, in := range f.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	return b.String()
}

// loginPrompt asks for the credentials missing from the login flags.
type loginPrompt struct {
	form      loginForm
	done      bool
	cancelled bool
}

func (m loginPrompt) Init() tea.Cmd { return textinput.Blink }

func (m loginPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	var submit bool
	m.form, cmd, submit = m.form.update(msg)
	if submit {
		m.done = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m loginPrompt) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return titleStyle.Render(" pmc login ") + "\n\n" + m.form.view() + "\n" +
		helpStyle.Render("tab: next field | enter: log in | esc: cancel") + "\n"
}

// promptCredentials runs the login prompt on the command's streams.
func promptCredentials(cmd *cobra.Command, username string) (string, string, error) {
	p := tea.NewProgram(loginPrompt{form: newLoginForm(username)},
		tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.ErrOrStderr()))
	final, err := p.Run()
	if err != nil {
		return "", "", fmt.Errorf("reading credentials: %w", err)
	}
	m, ok := final.(loginPrompt)
	if !ok || m.cancelled {
		return "", "", fmt.Errorf("login cancelled")
	}
	user, pass := m.form.credentials()
	return user, pass, nil
}
