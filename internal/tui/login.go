package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

type loginScreen struct {
	email      textinput.Model
	password   textinput.Model
	focusIndex int
	submitting bool
	err        string
	previous   portal.Role
}

func newLoginScreen() *loginScreen {
	email := textinput.New()
	email.Placeholder = "email"
	email.Prompt = "Email    › "
	email.CharLimit = 254
	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password › "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	return &loginScreen{email: email, password: password}
}

func (l *loginScreen) focus() tea.Cmd {
	l.password.Blur()
	l.focusIndex = 0
	return l.email.Focus()
}

func (l *loginScreen) reset() {
	l.email.SetValue("")
	l.password.SetValue("")
	l.err = ""
	l.submitting = false
	l.previous = ""
}

func (l *loginScreen) resize(width int) {
	l.email.Width = max(20, width/2)
	l.password.Width = max(20, width/2)
}

func (l *loginScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if l.focusIndex == 0 {
			l.focusIndex = 1
			l.email.Blur()
			return l.password.Focus()
		}
		return l.focus()
	case "enter":
		if l.focusIndex == 0 && strings.TrimSpace(l.password.Value()) == "" {
			l.focusIndex = 1
			l.email.Blur()
			return l.password.Focus()
		}
		return l.submit(a)
	}
	var cmd tea.Cmd
	if l.focusIndex == 0 {
		l.email, cmd = l.email.Update(msg)
	} else {
		l.password, cmd = l.password.Update(msg)
	}
	return cmd
}

func (l *loginScreen) submit(a *App) tea.Cmd {
	if l.submitting {
		return nil
	}
	creds := portal.Credentials{Email: strings.TrimSpace(l.email.Value()), Password: l.password.Value()}
	if creds.Email == "" {
		l.err = "Email is required"
		return nil
	}
	l.submitting = true
	l.err = ""
	return a.loginCmd(creds)
}

func (l *loginScreen) view() string {
	lines := []string{titleStyle.Render("Sign in")}
	if l.previous != "" {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Switching from %s", l.previous)))
	}
	lines = append(lines, "", l.email.View(), l.password.View(), "")
	switch {
	case l.submitting:
		lines = append(lines, mutedStyle.Render("Signing in..."))
	case l.err != "":
		lines = append(lines, errorStyle.Render(l.err))
	}
	lines = append(lines, hintStyle.Render("tab → next field    enter → sign in    ctrl+c → quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
