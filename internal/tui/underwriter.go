package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/mortgage-portal/internal/client"
	"github.com/kingrea/mortgage-portal/internal/portal"
	"github.com/kingrea/mortgage-portal/internal/workflow"
)

// borrowerItem implements list.Item for one row of the table.
type borrowerItem struct {
	record portal.BorrowerRecord
}

func (i borrowerItem) Title() string { return i.record.FullName }

func (i borrowerItem) Description() string {
	parts := []string{i.record.Email, statusLabel(i.record.Status)}
	if portal.ShowsReviewControls(i.record) {
		parts = append(parts, "e explanation · d change decision")
	}
	return strings.Join(parts, " · ")
}

func (i borrowerItem) FilterValue() string { return i.record.FullName }

// underwriterScreen is the borrower table plus the report panel, the
// decision modal and the letter editor.
type underwriterScreen struct {
	table   list.Model
	review  *workflow.Review
	letter  *workflow.LetterLifecycle
	editor  textarea.Model
	editing bool

	loaded  bool
	loadErr string
	notice  string
}

func newUnderwriterScreen(width, height int) *underwriterScreen {
	table := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	table.Title = "Borrower applications"
	table.SetShowStatusBar(false)
	table.SetFilteringEnabled(false)
	table.SetShowHelp(false)
	table.KeyMap.Quit.SetEnabled(false)
	editor := textarea.New()
	editor.Placeholder = "Generate a letter with g"
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	u := &underwriterScreen{
		table:  table,
		review: workflow.NewReview(),
		letter: workflow.NewLetterLifecycle(),
		editor: editor,
	}
	u.resize(width, height)
	return u
}

func (u *underwriterScreen) resize(width, height int) {
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 30
	}
	u.table.SetSize(max(20, width-8), max(6, height/2))
	u.editor.SetWidth(max(20, width-8))
	u.editor.SetHeight(max(4, height/4))
}

func (u *underwriterScreen) highlighted() (portal.BorrowerRecord, bool) {
	item, ok := u.table.SelectedItem().(borrowerItem)
	if !ok {
		return portal.BorrowerRecord{}, false
	}
	return item.record, true
}

func (u *underwriterScreen) modalOpen() bool {
	return u.review.OverrideState() != workflow.OverrideClosed
}

func (u *underwriterScreen) handleKey(a *App, msg tea.KeyMsg) tea.Cmd {
	if u.modalOpen() {
		return u.handleModalKey(a, msg)
	}
	if u.editing {
		return u.handleEditorKey(a, msg)
	}
	switch msg.String() {
	case "s":
		return a.switchRole()
	case "o":
		return a.logout()
	case "R":
		u.notice = "Refreshing..."
		return a.refreshBorrowers()
	case "enter":
		if rec, ok := u.highlighted(); ok {
			u.review.Select(rec)
			u.notice = fmt.Sprintf("Selected %s", rec.FullName)
		}
		return nil
	case "e":
		return u.requestExplanation(a)
	case "d":
		return u.openOverride(a)
	case "g":
		return u.generate(a)
	case "l":
		if _, ok := u.letter.Letter(); !ok {
			u.notice = "No letter yet, press g to generate one"
			return nil
		}
		u.editing = true
		return u.editor.Focus()
	case "esc":
		u.review.CloseReport()
		return nil
	case "up", "down", "k", "j", "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		u.table, cmd = u.table.Update(msg)
		return cmd
	}
	return nil
}

func (u *underwriterScreen) selectHighlighted() bool {
	rec, ok := u.highlighted()
	if !ok {
		return false
	}
	u.review.Select(rec)
	return true
}

func (u *underwriterScreen) requestExplanation(a *App) tea.Cmd {
	u.selectHighlighted()
	id, err := u.review.RequestExplanation()
	if err != nil {
		u.notice = reviewNotice(err)
		return nil
	}
	u.notice = ""
	return a.fetchExplanation(id)
}

func (u *underwriterScreen) openOverride(a *App) tea.Cmd {
	u.selectHighlighted()
	if err := u.review.OpenOverride(); err != nil {
		u.notice = reviewNotice(err)
		return nil
	}
	u.notice = ""
	return nil
}

func (u *underwriterScreen) generate(a *App) tea.Cmd {
	u.selectHighlighted()
	sel, ok := u.review.Selected()
	if !ok {
		u.notice = reviewNotice(workflow.ErrNoSelection)
		return nil
	}
	gen, err := u.letter.Generate(sel.ID)
	if err != nil {
		u.notice = reviewNotice(err)
		return nil
	}
	u.notice = fmt.Sprintf("Generating letter for %s...", sel.FullName)
	a.logInfo("Generating letter for %s", sel.ID)
	return a.generateLetter(gen)
}

func (u *underwriterScreen) handleModalKey(a *App, msg tea.KeyMsg) tea.Cmd {
	if u.review.OverrideState() == workflow.OverrideSubmitting {
		return nil
	}
	switch msg.String() {
	case "a":
		_ = u.review.Choose(portal.StatusApproved)
	case "r":
		_ = u.review.Choose(portal.StatusRejected)
	case "esc":
		u.review.CancelOverride()
	case "enter":
		o, ok := u.review.SubmitOverride(a.dash.identity.ID)
		if !ok {
			return nil
		}
		a.logInfo("Submitting decision %s for %s", o.NewStatus, o.BorrowerID)
		return a.submitDecision(o)
	}
	return nil
}

func (u *underwriterScreen) handleEditorKey(a *App, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		u.editing = false
		u.editor.Blur()
		return nil
	case "ctrl+s":
		snapshot, err := u.letter.BeginUpdate()
		if err != nil {
			u.notice = reviewNotice(err)
			return nil
		}
		a.logInfo("Saving letter %s", snapshot.ID)
		return a.updateLetter(snapshot)
	}
	var cmd tea.Cmd
	u.editor, cmd = u.editor.Update(msg)
	u.letter.Edit(u.editor.Value())
	return cmd
}

func (u *underwriterScreen) update(a *App, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case borrowersLoadedMsg:
		if msg.err != nil {
			u.loadErr = msg.err.Error()
			u.notice = ""
			a.logError("Borrower list refresh failed: %v", msg.err)
			return nil
		}
		cursor := u.table.Index()
		items := make([]list.Item, len(msg.records))
		for i, rec := range msg.records {
			items[i] = borrowerItem{record: rec}
		}
		cmd := u.table.SetItems(items)
		if cursor < len(items) {
			u.table.Select(cursor)
		}
		u.review.Resync(msg.records)
		u.loaded = true
		u.loadErr = ""
		if u.notice == "Refreshing..." {
			u.notice = ""
		}
		return cmd

	case explanationResultMsg:
		if err := u.review.ResolveExplanation(msg.borrowerID, msg.report, msg.err); errors.Is(err, workflow.ErrStale) {
			return nil
		}
		if msg.err != nil {
			a.logError("Explanation for %s failed: %v", msg.borrowerID, msg.err)
		}
		return nil

	case overrideResultMsg:
		err := u.review.ResolveOverride(msg.override, msg.err)
		if msg.err != nil {
			a.logError("Decision for %s failed: %v", msg.override.BorrowerID, msg.err)
			return nil
		}
		if err == nil {
			u.notice = fmt.Sprintf("Decision for %s set to %s", msg.override.BorrowerID, statusLabel(msg.override.NewStatus))
		}
		a.logInfo("Decision for %s set to %s", msg.override.BorrowerID, msg.override.NewStatus)
		a.records.Invalidate("")
		return a.refreshBorrowers()

	case letterGeneratedMsg:
		if err := u.letter.ResolveGenerate(msg.request, msg.letter, msg.err); errors.Is(err, workflow.ErrStale) {
			return nil
		}
		if msg.err != nil {
			u.notice = msg.err.Error()
			a.logError("Letter generation for %s failed: %v", msg.request.BorrowerID, msg.err)
			return nil
		}
		u.editor.SetValue(msg.letter.Text)
		u.notice = fmt.Sprintf("Letter %s generated", msg.letter.ID)
		a.logInfo("Letter %s generated for %s", msg.letter.ID, msg.request.BorrowerID)
		return nil

	case letterUpdatedMsg:
		if err := u.letter.ResolveUpdate(msg.snapshot, msg.err); errors.Is(err, workflow.ErrStale) {
			// The letter was replaced while saving; a failed save still has to be seen.
			if msg.err != nil {
				u.notice = fmt.Sprintf("Saving letter %s failed: %v", msg.snapshot.ID, msg.err)
				a.logError("Letter %s update failed after it was replaced: %v", msg.snapshot.ID, msg.err)
			}
			return nil
		}
		if msg.err != nil {
			u.notice = msg.err.Error()
			a.logError("Letter %s update failed: %v", msg.snapshot.ID, msg.err)
			return nil
		}
		u.notice = u.letter.Message()
		a.logInfo("Letter %s updated", msg.snapshot.ID)
		return nil
	}
	return nil
}

func reviewNotice(err error) string {
	switch {
	case errors.Is(err, workflow.ErrNoSelection):
		return "Select a borrower first"
	case errors.Is(err, workflow.ErrNotExplainable):
		return "This application has no decision to review"
	case errors.Is(err, workflow.ErrInFlight):
		return "Request already in progress"
	case errors.Is(err, workflow.ErrNoDocument):
		return "No letter to save"
	}
	return err.Error()
}

func (u *underwriterScreen) view(a *App) string {
	sections := []string{u.renderTable()}
	if panel := u.renderReport(); panel != "" {
		sections = append(sections, panel)
	}
	if modal := u.renderModal(); modal != "" {
		sections = append(sections, modal)
	}
	if editor := u.renderLetter(); editor != "" {
		sections = append(sections, editor)
	}
	if u.notice != "" {
		sections = append(sections, mutedStyle.Render(u.notice))
	}
	sections = append(sections, hintStyle.Render(u.hints()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (u *underwriterScreen) hints() string {
	switch {
	case u.modalOpen():
		return "a → approve    r → reject    enter → submit    esc → cancel"
	case u.editing:
		return "ctrl+s → save letter    esc → leave editor"
	}
	hints := []string{"enter → select", "g → letter", "R → refresh", "s → switch role", "o → log out"}
	if rec, ok := u.highlighted(); ok && portal.ShowsReviewControls(rec) {
		hints = append([]string{"e → explanation", "d → change decision"}, hints...)
	}
	if _, ok := u.letter.Letter(); ok {
		hints = append(hints, "l → edit letter")
	}
	return strings.Join(hints, "    ")
}

func (u *underwriterScreen) renderTable() string {
	switch {
	case !u.loaded && u.loadErr != "":
		return errorStyle.Render(u.loadErr)
	case !u.loaded:
		return mutedStyle.Render("Loading borrowers...")
	}
	view := u.table.View()
	if len(u.table.Items()) == 0 {
		view = mutedStyle.Render("No borrower applications")
	}
	if sel, ok := u.review.Selected(); ok {
		view = lipgloss.JoinVertical(lipgloss.Left, view,
			fmt.Sprintf("%s %s (%s)", labelStyle.Render("Selected:"), sel.FullName, styledStatus(sel.Status)))
	}
	if u.loadErr != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, errorStyle.Render(u.loadErr))
	}
	return view
}

func (u *underwriterScreen) renderReport() string {
	switch u.review.ExplainState() {
	case workflow.ExplainRequested:
		return panelStyle.Render(mutedStyle.Render("Loading explanation..."))
	case workflow.ExplainIdle:
		if err := u.review.ExplainErr(); err != nil {
			return panelStyle.Render(errorStyle.Render(err.Error()))
		}
		return ""
	}
	report, id, ok := u.review.Report()
	if !ok {
		return ""
	}
	return panelStyle.Render(renderReport(report, id))
}

// renderReport lays out the explanation. Absent sub-fields are skipped.
func renderReport(report *portal.ExplanationReport, id portal.ID) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("Explanation · %s", id))}
	if report != nil && !report.Status.IsNull() {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Status:"), styledStatus(report.Status)))
	}
	for _, section := range report.Sections() {
		lines = append(lines, "", labelStyle.Render(section.Title))
		for _, field := range section.Fields {
			lines = append(lines, fmt.Sprintf("  %s: %s", field.Label, field.Value))
		}
		if section.Text != "" {
			lines = append(lines, "  "+section.Text)
		}
	}
	lines = append(lines, "", hintStyle.Render("esc → close"))
	return strings.Join(lines, "\n")
}

func (u *underwriterScreen) renderModal() string {
	if !u.modalOpen() {
		return ""
	}
	choice := "none"
	if c := u.review.Choice(); !c.IsNull() {
		choice = statusLabel(c)
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Change decision · %s", u.review.OverrideTarget())),
		fmt.Sprintf("%s %s", labelStyle.Render("New status:"), choice),
	}
	if u.review.OverrideState() == workflow.OverrideSubmitting {
		lines = append(lines, mutedStyle.Render("Submitting..."))
	}
	if err := u.review.OverrideErr(); err != nil {
		lines = append(lines, errorStyle.Render(submissionText(err)))
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (u *underwriterScreen) renderLetter() string {
	letter, ok := u.letter.Letter()
	if !ok {
		if u.letter.Generating() {
			return panelStyle.Render(mutedStyle.Render("Generating letter..."))
		}
		return ""
	}
	head := titleStyle.Render(fmt.Sprintf("Letter %s", letter.ID))
	if u.letter.State() == workflow.LetterEditing {
		head += mutedStyle.Render("  (unsaved)")
	}
	body := u.editor.View()
	if !u.editing {
		body = letter.Text
	}
	lines := []string{head, body}
	if msg := u.letter.Message(); msg != "" {
		lines = append(lines, okStyle.Render(msg))
	}
	if err := u.letter.Err(); err != nil {
		lines = append(lines, errorStyle.Render(submissionText(err)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// submissionText prefers the backend detail over the wrapped chain.
func submissionText(err error) string {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	return err.Error()
}
