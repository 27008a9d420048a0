package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/mortgage-portal/internal/portal"
	"github.com/kingrea/mortgage-portal/internal/workflow"
)

// borrowerScreen shows the borrower's own application and, while it has no
// status, the document submission control.
type borrowerScreen struct {
	eligibility *workflow.Eligibility
	path        textinput.Model
	choosing    bool
	record      *portal.BorrowerRecord
	loadErr     string
	notice      string
}

func newBorrowerScreen(clearOnFailure bool) *borrowerScreen {
	path := textinput.New()
	path.Placeholder = "/path/to/document.pdf"
	path.Prompt = "Document › "
	return &borrowerScreen{eligibility: workflow.NewEligibility(clearOnFailure), path: path}
}

func (b *borrowerScreen) canSubmit() bool {
	return b.record != nil && portal.CanSubmitDocument(*b.record)
}

func (b *borrowerScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	if b.choosing {
		switch msg.String() {
		case "esc":
			b.choosing = false
			b.path.Blur()
			return nil
		case "enter":
			b.choosing = false
			b.path.Blur()
			if err := b.eligibility.Attach(portal.Document{Path: b.path.Value()}); err != nil {
				b.notice = err.Error()
				return nil
			}
			doc, _ := b.eligibility.Document()
			b.notice = fmt.Sprintf("Attached %s", doc.Name())
			return nil
		}
		var cmd tea.Cmd
		b.path, cmd = b.path.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "s":
		return a.switchRole()
	case "o":
		return a.logout()
	case "R":
		return a.refreshSelf()
	case "f":
		if !b.canSubmit() || b.eligibility.Submitting() {
			return nil
		}
		b.choosing = true
		return b.path.Focus()
	case "x":
		b.eligibility.Detach()
		b.path.SetValue("")
		b.notice = ""
	case "enter":
		if b.record == nil {
			return nil
		}
		sub, err := b.eligibility.Begin(*b.record)
		if err != nil {
			b.notice = err.Error()
			return nil
		}
		b.notice = ""
		a.logInfo("Submitting %s for eligibility (%s)", sub.Document.Name(), sub.Email)
		return a.submitEligibility(sub)
	}
	return nil
}

func (b *borrowerScreen) update(a *App, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case selfLoadedMsg:
		if msg.err != nil {
			b.loadErr = msg.err.Error()
			a.logError("Refresh of own record failed: %v", msg.err)
			return nil
		}
		rec := msg.record
		b.record = &rec
		b.loadErr = ""
	case eligibilityResultMsg:
		b.eligibility.Resolve(msg.submission, msg.err)
		if msg.err != nil {
			b.notice = msg.err.Error()
			a.logError("Eligibility submission failed: %v", msg.err)
		} else {
			b.notice = "Document submitted"
			b.path.SetValue("")
			a.logInfo("Eligibility document %s submitted", msg.submission.Document.Name())
		}
		a.records.Invalidate(msg.submission.BorrowerID)
		return a.refreshSelf()
	}
	return nil
}

func (b *borrowerScreen) view(a *App) string {
	lines := []string{titleStyle.Render("My application"), ""}
	switch {
	case b.record == nil && b.loadErr != "":
		lines = append(lines, errorStyle.Render(b.loadErr))
	case b.record == nil:
		lines = append(lines, mutedStyle.Render("Loading..."))
	default:
		lines = append(lines,
			fmt.Sprintf("%s %s", labelStyle.Render("Name:"), b.record.FullName),
			fmt.Sprintf("%s %s", labelStyle.Render("Email:"), b.record.Email),
			fmt.Sprintf("%s %s", labelStyle.Render("Status:"), styledStatus(b.record.Status)),
		)
		if b.loadErr != "" {
			lines = append(lines, errorStyle.Render(b.loadErr))
		}
	}
	if b.canSubmit() {
		lines = append(lines, "", labelStyle.Render("Eligibility document"))
		switch {
		case b.choosing:
			lines = append(lines, b.path.View())
		case b.eligibility.Submitting():
			lines = append(lines, mutedStyle.Render("Submitting..."))
		default:
			if doc, ok := b.eligibility.Document(); ok {
				lines = append(lines, fmt.Sprintf("Attached: %s", doc.Name()))
			} else {
				lines = append(lines, mutedStyle.Render("No file chosen"))
			}
		}
	}
	if b.notice != "" {
		style := mutedStyle
		if b.eligibility.Err() != nil && b.eligibility.State() == workflow.EligibilityFailed {
			style = errorStyle
		}
		lines = append(lines, "", style.Render(b.notice))
	}
	hints := "s → switch role    o → log out    R → refresh"
	if b.canSubmit() {
		hints = "f → choose file    enter → submit    x → clear    " + hints
	}
	lines = append(lines, "", hintStyle.Render(hints))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
