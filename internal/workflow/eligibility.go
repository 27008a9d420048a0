package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

var (
	// ErrNoDocument is returned when a submission starts with nothing attached.
	ErrNoDocument = errors.New("workflow: no document attached")
	// ErrInFlight is returned when a call of the same kind is still pending.
	ErrInFlight = errors.New("workflow: request already in progress")
	// ErrAlreadyDecided is returned when the borrower already has a status.
	ErrAlreadyDecided = errors.New("workflow: application already has a status")
	// ErrNoSelection is returned when an underwriter action needs a borrower.
	ErrNoSelection = errors.New("workflow: no borrower selected")
	// ErrNotExplainable is returned for statuses without a decision to review.
	ErrNotExplainable = errors.New("workflow: application has no decision to review")
	// ErrStale marks a response for a target that is no longer current.
	ErrStale = errors.New("workflow: response no longer current")
)

// EligibilityState is the position of the document submission.
type EligibilityState string

const (
	EligibilityNoFile     EligibilityState = "no_file"
	EligibilityAttached   EligibilityState = "file_attached"
	EligibilitySubmitting EligibilityState = "submitting"
	EligibilitySucceeded  EligibilityState = "succeeded"
	EligibilityFailed     EligibilityState = "failed"
)

// Submission is the snapshot a single upload works from.
type Submission struct {
	BorrowerID portal.ID
	Email      string
	Document   portal.Document
}

// Eligibility drives the borrower's document upload.
type Eligibility struct {
	state          EligibilityState
	doc            *portal.Document
	err            error
	clearOnFailure bool
}

// NewEligibility starts with no file. clearOnFailure restores the legacy
// behaviour of dropping the attachment even when the upload failed.
func NewEligibility(clearOnFailure bool) *Eligibility {
	return &Eligibility{state: EligibilityNoFile, clearOnFailure: clearOnFailure}
}

// Attach selects a document. The only check is that it is a readable file.
func (e *Eligibility) Attach(doc portal.Document) error {
	if e.state == EligibilitySubmitting {
		return ErrInFlight
	}
	doc.Path = strings.TrimSpace(doc.Path)
	if doc.Path == "" {
		return ErrNoDocument
	}
	info, err := os.Stat(doc.Path)
	if err != nil {
		return fmt.Errorf("workflow: attach document: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("workflow: attach document: %s is not a regular file", doc.Path)
	}
	e.doc = &doc
	e.err = nil
	e.state = EligibilityAttached
	return nil
}

// Detach clears the attachment.
func (e *Eligibility) Detach() {
	if e.state == EligibilitySubmitting {
		return
	}
	e.doc = nil
	e.state = EligibilityNoFile
}

// Begin checks the preconditions and moves to SUBMITTING.
func (e *Eligibility) Begin(rec portal.BorrowerRecord) (Submission, error) {
	switch {
	case e.state == EligibilitySubmitting:
		return Submission{}, ErrInFlight
	case e.doc == nil:
		return Submission{}, ErrNoDocument
	case !portal.CanSubmitDocument(rec):
		return Submission{}, ErrAlreadyDecided
	}
	e.state = EligibilitySubmitting
	e.err = nil
	return Submission{BorrowerID: rec.ID, Email: rec.Email, Document: *e.doc}, nil
}

// Resolve records the upload outcome. The caller refreshes the borrower's
// own record afterwards in both cases.
func (e *Eligibility) Resolve(sub Submission, err error) {
	if e.state != EligibilitySubmitting {
		return
	}
	if err == nil {
		e.doc = nil
		e.state = EligibilitySucceeded
		return
	}
	e.err = err
	e.state = EligibilityFailed
	if e.clearOnFailure {
		e.doc = nil
	}
}

// State returns the current state.
func (e *Eligibility) State() EligibilityState { return e.state }

// Document returns the attached document, if any.
func (e *Eligibility) Document() (portal.Document, bool) {
	if e.doc == nil {
		return portal.Document{}, false
	}
	return *e.doc, true
}

// Err is the failure of the last upload.
func (e *Eligibility) Err() error { return e.err }

// Submitting reports whether an upload is pending.
func (e *Eligibility) Submitting() bool { return e.state == EligibilitySubmitting }
