package workflow

import (
	"errors"
	"testing"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

func TestGenerateEachTriggerIsANewCall(t *testing.T) {
	l := NewLetterLifecycle()
	if _, err := l.Generate(""); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("err = %v", err)
	}
	first, _ := l.Generate("b-101")
	second, _ := l.Generate("b-101")
	if first.Seq == second.Seq {
		t.Fatalf("repeat triggers must not be deduplicated")
	}
	if l.State() != LetterGenerating || !l.Generating() {
		t.Fatalf("state = %s", l.State())
	}
}

func TestNewestGenerationWins(t *testing.T) {
	l := NewLetterLifecycle()
	first, _ := l.Generate("b-101")
	second, _ := l.Generate("b-101")
	if err := l.ResolveGenerate(second, portal.Letter{ID: "L-2", Text: "second"}, nil); err != nil {
		t.Fatalf("resolve second: %v", err)
	}
	if err := l.ResolveGenerate(first, portal.Letter{ID: "L-1", Text: "first"}, nil); !errors.Is(err, ErrStale) {
		t.Fatalf("older response err = %v", err)
	}
	letter, _ := l.Letter()
	if letter.ID != "L-2" || l.Generating() {
		t.Fatalf("letter = %+v generating=%v", letter, l.Generating())
	}
}

func TestRegenerateDiscardsEdits(t *testing.T) {
	l := NewLetterLifecycle()
	gen, _ := l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{ID: "L-1", Text: "draft"}, nil)
	l.Edit("draft with edits")
	if l.State() != LetterEditing {
		t.Fatalf("state = %s", l.State())
	}
	gen, _ = l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{ID: "L-2", Text: "fresh"}, nil)
	letter, _ := l.Letter()
	if letter.ID != "L-2" || letter.Text != "fresh" || l.State() != LetterLoaded {
		t.Fatalf("letter = %+v state = %s", letter, l.State())
	}
}

func TestGenerateFailureKeepsHeldLetter(t *testing.T) {
	l := NewLetterLifecycle()
	gen, _ := l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{ID: "L-1", Text: "draft"}, nil)
	gen, _ = l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{}, errors.New("down"))
	letter, ok := l.Letter()
	if !ok || letter.ID != "L-1" || l.Err() == nil {
		t.Fatalf("letter = %+v err = %v", letter, l.Err())
	}
}

func TestUpdateLifecycle(t *testing.T) {
	l := NewLetterLifecycle()
	if _, err := l.BeginUpdate(); err == nil {
		t.Fatalf("nothing to persist yet")
	}
	gen, _ := l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{ID: "L-1", Text: "draft"}, nil)
	l.Edit("edited")
	snapshot, err := l.BeginUpdate()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if snapshot.Text != "edited" || l.State() != LetterPersisting {
		t.Fatalf("snapshot = %+v state = %s", snapshot, l.State())
	}
	if _, err := l.BeginUpdate(); !errors.Is(err, ErrInFlight) {
		t.Fatalf("err = %v", err)
	}
	if err := l.ResolveUpdate(snapshot, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if l.Message() != LetterUpdatedMessage || l.State() != LetterLoaded {
		t.Fatalf("message = %q state = %s", l.Message(), l.State())
	}
}

func TestUpdateFailureKeepsEditedText(t *testing.T) {
	l := NewLetterLifecycle()
	gen, _ := l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{ID: "L-1", Text: "draft"}, nil)
	l.Edit("edited")
	snapshot, _ := l.BeginUpdate()
	_ = l.ResolveUpdate(snapshot, errors.New("boom"))
	letter, _ := l.Letter()
	if letter.Text != "edited" || l.Err() == nil || l.Message() != "" {
		t.Fatalf("letter = %+v err = %v message = %q", letter, l.Err(), l.Message())
	}
	if l.State() != LetterEditing {
		t.Fatalf("state = %s", l.State())
	}
}

func TestEditDuringPersistLandsAsUnsaved(t *testing.T) {
	l := NewLetterLifecycle()
	gen, _ := l.Generate("b-101")
	_ = l.ResolveGenerate(gen, portal.Letter{ID: "L-1", Text: "draft"}, nil)
	snapshot, _ := l.BeginUpdate()
	l.Edit("typed while saving")
	_ = l.ResolveUpdate(snapshot, nil)
	if l.State() != LetterEditing {
		t.Fatalf("state = %s, want editing", l.State())
	}
}
