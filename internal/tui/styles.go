package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F5A623")).
			Padding(0, 1)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#27C93F"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = map[portal.Status]lipgloss.Style{
		portal.StatusApproved:        okStyle,
		portal.StatusRejected:        errorStyle,
		portal.StatusPending:         lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")),
		portal.StatusPendingConflict: lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623")).Bold(true),
	}
)

var titleCaser = cases.Title(language.English)

// statusLabel renders a status for humans, "pending_conflict" as
// "Pending Conflict". A null status reads as no document yet.
func statusLabel(s portal.Status) string {
	if s.IsNull() {
		return "No document submitted"
	}
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

func styledStatus(s portal.Status) string {
	style, ok := statusStyle[s]
	if !ok {
		return mutedStyle.Render(statusLabel(s))
	}
	return style.Render(statusLabel(s))
}
