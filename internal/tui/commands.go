package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/mortgage-portal/internal/portal"
	"github.com/kingrea/mortgage-portal/internal/workflow"
)

// Results of remote calls. Each carries the dashboard generation it was
// started under so late arrivals can be dropped.

type loginResultMsg struct {
	identity portal.Identity
	err      error
}

type borrowersLoadedMsg struct {
	gen     uint64
	records []portal.BorrowerRecord
	err     error
}

type selfLoadedMsg struct {
	gen    uint64
	record portal.BorrowerRecord
	err    error
}

type eligibilityResultMsg struct {
	gen        uint64
	submission workflow.Submission
	err        error
}

type explanationResultMsg struct {
	gen        uint64
	borrowerID portal.ID
	report     *portal.ExplanationReport
	err        error
}

type overrideResultMsg struct {
	gen      uint64
	override portal.DecisionOverride
	err      error
}

type letterGeneratedMsg struct {
	gen     uint64
	request workflow.Generation
	letter  portal.Letter
	err     error
}

type letterUpdatedMsg struct {
	gen      uint64
	snapshot portal.Letter
	err      error
}

func (m borrowersLoadedMsg) generation() uint64   { return m.gen }
func (m selfLoadedMsg) generation() uint64        { return m.gen }
func (m eligibilityResultMsg) generation() uint64 { return m.gen }
func (m explanationResultMsg) generation() uint64 { return m.gen }
func (m overrideResultMsg) generation() uint64    { return m.gen }
func (m letterGeneratedMsg) generation() uint64   { return m.gen }
func (m letterUpdatedMsg) generation() uint64     { return m.gen }

func (a *App) loginCmd(creds portal.Credentials) tea.Cmd {
	store := a.session
	return func() tea.Msg {
		identity, err := store.Login(context.Background(), creds)
		return loginResultMsg{identity: identity, err: err}
	}
}

func (a *App) refreshBorrowers() tea.Cmd {
	if a.dash == nil {
		return nil
	}
	ctx, gen, cache := a.dash.ctx, a.dash.gen, a.records
	return func() tea.Msg {
		list, err := cache.RefreshAll(ctx)
		return borrowersLoadedMsg{gen: gen, records: list, err: err}
	}
}

func (a *App) refreshSelf() tea.Cmd {
	if a.dash == nil {
		return nil
	}
	ctx, gen, cache, id := a.dash.ctx, a.dash.gen, a.records, a.dash.identity.ID
	return func() tea.Msg {
		rec, err := cache.RefreshSelf(ctx, id)
		return selfLoadedMsg{gen: gen, record: rec, err: err}
	}
}

func (a *App) submitEligibility(sub workflow.Submission) tea.Cmd {
	ctx, gen, backend := a.dash.ctx, a.dash.gen, a.backend
	return func() tea.Msg {
		err := backend.SubmitEligibility(ctx, sub.Email, sub.Document)
		return eligibilityResultMsg{gen: gen, submission: sub, err: err}
	}
}

func (a *App) fetchExplanation(id portal.ID) tea.Cmd {
	ctx, gen, backend := a.dash.ctx, a.dash.gen, a.backend
	return func() tea.Msg {
		report, err := backend.GetExplanation(ctx, id)
		return explanationResultMsg{gen: gen, borrowerID: id, report: report, err: err}
	}
}

func (a *App) submitDecision(o portal.DecisionOverride) tea.Cmd {
	ctx, gen, backend := a.dash.ctx, a.dash.gen, a.backend
	return func() tea.Msg {
		err := backend.SubmitDecision(ctx, o)
		return overrideResultMsg{gen: gen, override: o, err: err}
	}
}

func (a *App) generateLetter(g workflow.Generation) tea.Cmd {
	ctx, gen, backend := a.dash.ctx, a.dash.gen, a.backend
	return func() tea.Msg {
		letter, err := backend.GenerateLetter(ctx, g.BorrowerID)
		return letterGeneratedMsg{gen: gen, request: g, letter: letter, err: err}
	}
}

func (a *App) updateLetter(snapshot portal.Letter) tea.Cmd {
	ctx, gen, backend := a.dash.ctx, a.dash.gen, a.backend
	return func() tea.Msg {
		err := backend.UpdateLetter(ctx, snapshot)
		return letterUpdatedMsg{gen: gen, snapshot: snapshot, err: err}
	}
}
