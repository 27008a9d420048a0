package workflow

import (
	"github.com/kingrea/mortgage-portal/internal/portal"
)

// LetterUpdatedMessage confirms a persisted edit.
const LetterUpdatedMessage = "Letter updated"

// LetterState tracks the held letter.
type LetterState string

const (
	LetterNone       LetterState = "no_letter"
	LetterGenerating LetterState = "generating"
	LetterLoaded     LetterState = "letter_loaded"
	LetterEditing    LetterState = "editing"
	LetterPersisting LetterState = "persisting"
)

// Generation identifies one generate call.
type Generation struct {
	Seq        uint64
	BorrowerID portal.ID
}

// LetterLifecycle holds at most one letter. Generate is never deduplicated;
// only the newest generate response replaces the held letter.
type LetterLifecycle struct {
	state   LetterState
	seq     uint64
	pending int
	letter  *portal.Letter
	// saved is the text last persisted or generated.
	saved   string
	err     error
	message string
}

// NewLetterLifecycle starts with no letter.
func NewLetterLifecycle() *LetterLifecycle {
	return &LetterLifecycle{state: LetterNone}
}

// Generate starts a new generate call. Every trigger gets its own sequence
// number, including repeats for the same borrower.
func (l *LetterLifecycle) Generate(borrowerID portal.ID) (Generation, error) {
	if borrowerID.Empty() {
		return Generation{}, ErrNoSelection
	}
	l.seq++
	l.pending++
	l.err = nil
	l.message = ""
	if l.letter == nil {
		l.state = LetterGenerating
	}
	return Generation{Seq: l.seq, BorrowerID: borrowerID}, nil
}

// ResolveGenerate applies a generate result. Older responses are dropped,
// and an applied letter discards local edits.
func (l *LetterLifecycle) ResolveGenerate(gen Generation, letter portal.Letter, err error) error {
	if l.pending > 0 {
		l.pending--
	}
	if gen.Seq != l.seq {
		return ErrStale
	}
	if err != nil {
		l.err = err
		l.settle()
		return nil
	}
	l.letter = &letter
	l.saved = letter.Text
	l.state = LetterLoaded
	return nil
}

// settle returns to the state implied by what is held.
func (l *LetterLifecycle) settle() {
	switch {
	case l.letter == nil:
		l.state = LetterNone
	case l.letter.Text != l.saved:
		l.state = LetterEditing
	default:
		l.state = LetterLoaded
	}
}

// Edit replaces the local text. Nothing is sent.
func (l *LetterLifecycle) Edit(text string) {
	if l.letter == nil || l.letter.Text == text {
		return
	}
	l.letter.Text = text
	l.message = ""
	if l.state != LetterPersisting {
		l.settle()
	}
}

// BeginUpdate snapshots the letter to persist.
func (l *LetterLifecycle) BeginUpdate() (portal.Letter, error) {
	if l.letter == nil {
		return portal.Letter{}, ErrNoDocument
	}
	if l.state == LetterPersisting {
		return portal.Letter{}, ErrInFlight
	}
	l.state = LetterPersisting
	l.err = nil
	l.message = ""
	return *l.letter, nil
}

// ResolveUpdate applies a persist result. Failure keeps the edited text.
func (l *LetterLifecycle) ResolveUpdate(snapshot portal.Letter, err error) error {
	if l.state != LetterPersisting || l.letter == nil || l.letter.ID != snapshot.ID {
		return ErrStale
	}
	if err != nil {
		l.err = err
		l.settle()
		return nil
	}
	l.saved = snapshot.Text
	l.message = LetterUpdatedMessage
	l.settle()
	return nil
}

// Letter returns a copy of the held letter.
func (l *LetterLifecycle) Letter() (portal.Letter, bool) {
	if l.letter == nil {
		return portal.Letter{}, false
	}
	return *l.letter, true
}

// State returns the current state.
func (l *LetterLifecycle) State() LetterState { return l.state }

// Generating reports whether any generate call is still outstanding.
func (l *LetterLifecycle) Generating() bool { return l.pending > 0 }

// Err is the last generate or persist failure.
func (l *LetterLifecycle) Err() error { return l.err }

// Message is the confirmation line, empty until an update succeeds.
func (l *LetterLifecycle) Message() string { return l.message }

// Reset drops the held letter, used when the dashboard unmounts.
func (l *LetterLifecycle) Reset() {
	*l = LetterLifecycle{state: LetterNone, seq: l.seq}
}
