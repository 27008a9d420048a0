package workflow

import (
	"errors"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

// ExplainState tracks the explanation sub-flow.
type ExplainState string

const (
	ExplainIdle      ExplainState = "idle"
	ExplainRequested ExplainState = "explain_requested"
	ExplainShown     ExplainState = "report_shown"
)

// OverrideState tracks the manual decision sub-flow.
type OverrideState string

const (
	OverrideClosed     OverrideState = "closed"
	OverrideOpen       OverrideState = "override_open"
	OverrideSubmitting OverrideState = "submitting"
)

// ErrInvalidChoice is returned when a status other than approved or rejected
// is chosen for an override.
var ErrInvalidChoice = errors.New("workflow: decision must be approved or rejected")

// Review is the underwriter's selection plus the explanation and override
// sub-flows. Each sub-flow pins the borrower it started for; results for any
// other borrower are dropped.
type Review struct {
	selected *portal.BorrowerRecord

	explain       ExplainState
	explainTarget portal.ID
	report        *portal.ExplanationReport
	explainErr    error

	override       OverrideState
	overrideTarget portal.ID
	choice         portal.Status
	overrideErr    error
}

// NewReview returns a review with nothing selected.
func NewReview() *Review {
	return &Review{explain: ExplainIdle, override: OverrideClosed}
}

// Select replaces the selection. Last write wins.
func (r *Review) Select(rec portal.BorrowerRecord) {
	r.selected = &rec
}

// Selected returns a copy of the selection.
func (r *Review) Selected() (portal.BorrowerRecord, bool) {
	if r.selected == nil {
		return portal.BorrowerRecord{}, false
	}
	return *r.selected, true
}

// Resync refreshes the selection from a newly fetched list so its status
// stays current. A selection that vanished from the list is kept as is.
func (r *Review) Resync(list []portal.BorrowerRecord) {
	if r.selected == nil {
		return
	}
	for _, rec := range list {
		if rec.ID == r.selected.ID {
			r.Select(rec)
			return
		}
	}
}

func (r *Review) explainableSelection() (portal.BorrowerRecord, error) {
	if r.selected == nil {
		return portal.BorrowerRecord{}, ErrNoSelection
	}
	if !portal.ShowsReviewControls(*r.selected) {
		return portal.BorrowerRecord{}, ErrNotExplainable
	}
	return *r.selected, nil
}

// RequestExplanation starts a fetch for the selected borrower and returns
// the id to fetch.
func (r *Review) RequestExplanation() (portal.ID, error) {
	if r.explain == ExplainRequested {
		return "", ErrInFlight
	}
	rec, err := r.explainableSelection()
	if err != nil {
		return "", err
	}
	r.explain = ExplainRequested
	r.explainTarget = rec.ID
	r.report = nil
	r.explainErr = nil
	return rec.ID, nil
}

// ResolveExplanation applies a fetch result for borrowerID.
func (r *Review) ResolveExplanation(borrowerID portal.ID, report *portal.ExplanationReport, err error) error {
	if r.explain != ExplainRequested || borrowerID != r.explainTarget {
		return ErrStale
	}
	if err != nil {
		r.explain = ExplainIdle
		r.explainErr = err
		return nil
	}
	r.explain = ExplainShown
	r.report = report
	return nil
}

// CloseReport discards the report; reopening always re-fetches.
func (r *Review) CloseReport() {
	r.explain = ExplainIdle
	r.explainTarget = ""
	r.report = nil
	r.explainErr = nil
}

// Report returns the shown report, if any.
func (r *Review) Report() (*portal.ExplanationReport, portal.ID, bool) {
	if r.explain != ExplainShown {
		return nil, "", false
	}
	return r.report, r.explainTarget, true
}

// ExplainState returns the explanation sub-flow state.
func (r *Review) ExplainState() ExplainState { return r.explain }

// ExplainErr is the last explanation failure.
func (r *Review) ExplainErr() error { return r.explainErr }

// OpenOverride opens the decision modal with no choice made.
func (r *Review) OpenOverride() error {
	if r.override == OverrideSubmitting {
		return ErrInFlight
	}
	rec, err := r.explainableSelection()
	if err != nil {
		return err
	}
	r.override = OverrideOpen
	r.overrideTarget = rec.ID
	r.choice = portal.StatusNone
	r.overrideErr = nil
	return nil
}

// Choose records the pending decision.
func (r *Review) Choose(status portal.Status) error {
	if r.override != OverrideOpen {
		return nil
	}
	if !status.OverrideChoice() {
		return ErrInvalidChoice
	}
	r.choice = status
	return nil
}

// SubmitOverride builds the override to send. It returns ok=false, and no
// call should be made, when no choice has been made.
func (r *Review) SubmitOverride(underwriterID portal.ID) (portal.DecisionOverride, bool) {
	if r.override != OverrideOpen || !r.choice.OverrideChoice() {
		return portal.DecisionOverride{}, false
	}
	r.override = OverrideSubmitting
	r.overrideErr = nil
	return portal.DecisionOverride{
		BorrowerID:    r.overrideTarget,
		UnderwriterID: underwriterID,
		NewStatus:     r.choice,
	}, true
}

// ResolveOverride applies the submit result. Success closes the modal and
// the caller refreshes the list. Failure keeps the modal open with the
// choice intact so the user can resubmit.
func (r *Review) ResolveOverride(o portal.DecisionOverride, err error) error {
	if r.override != OverrideSubmitting || o.BorrowerID != r.overrideTarget {
		return ErrStale
	}
	if err != nil {
		r.override = OverrideOpen
		r.overrideErr = err
		return nil
	}
	r.CancelOverride()
	return nil
}

// CancelOverride closes the modal. A submission in flight still resolves
// but its result is dropped.
func (r *Review) CancelOverride() {
	r.override = OverrideClosed
	r.overrideTarget = ""
	r.choice = portal.StatusNone
	r.overrideErr = nil
}

// OverrideState returns the override sub-flow state.
func (r *Review) OverrideState() OverrideState { return r.override }

// OverrideTarget is the borrower the modal was opened for.
func (r *Review) OverrideTarget() portal.ID { return r.overrideTarget }

// Choice is the pending decision, empty until chosen.
func (r *Review) Choice() portal.Status { return r.choice }

// OverrideErr is the last submit failure shown in the modal.
func (r *Review) OverrideErr() error { return r.overrideErr }
