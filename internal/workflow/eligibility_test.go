package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

func writeDoc(t *testing.T) portal.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paystub.pdf")
	if err := os.WriteFile(path, []byte("income"), 0o644); err != nil {
		t.Fatal(err)
	}
	return portal.Document{Path: path}
}

var undecided = portal.BorrowerRecord{ID: "b-100", Email: "ana@example.com"}

func TestEligibilitySuccessClearsFile(t *testing.T) {
	e := NewEligibility(false)
	if err := e.Attach(writeDoc(t)); err != nil {
		t.Fatalf("attach: %v", err)
	}
	sub, err := e.Begin(undecided)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if sub.Email != "ana@example.com" || sub.Document.Name() != "paystub.pdf" {
		t.Fatalf("submission = %+v", sub)
	}
	if _, err := e.Begin(undecided); !errors.Is(err, ErrInFlight) {
		t.Fatalf("second begin err = %v", err)
	}
	e.Resolve(sub, nil)
	if e.State() != EligibilitySucceeded {
		t.Fatalf("state = %s", e.State())
	}
	if _, ok := e.Document(); ok {
		t.Fatalf("file should be cleared after success")
	}
}

func TestEligibilityFailureKeepsFileByDefault(t *testing.T) {
	e := NewEligibility(false)
	doc := writeDoc(t)
	_ = e.Attach(doc)
	sub, _ := e.Begin(undecided)
	e.Resolve(sub, errors.New("boom"))
	if e.State() != EligibilityFailed || e.Err() == nil {
		t.Fatalf("state = %s err = %v", e.State(), e.Err())
	}
	if kept, ok := e.Document(); !ok || kept.Path != doc.Path {
		t.Fatalf("attachment should survive a failed upload")
	}
	if _, err := e.Begin(undecided); err != nil {
		t.Fatalf("retry should be allowed: %v", err)
	}
}

func TestEligibilityLegacyClearOnFailure(t *testing.T) {
	e := NewEligibility(true)
	_ = e.Attach(writeDoc(t))
	sub, _ := e.Begin(undecided)
	e.Resolve(sub, errors.New("boom"))
	if _, ok := e.Document(); ok {
		t.Fatalf("legacy mode clears the file even on failure")
	}
}

func TestEligibilityPreconditions(t *testing.T) {
	e := NewEligibility(false)
	if _, err := e.Begin(undecided); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("err = %v, want ErrNoDocument", err)
	}
	_ = e.Attach(writeDoc(t))
	decided := undecided
	decided.Status = portal.StatusPending
	if _, err := e.Begin(decided); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("err = %v, want ErrAlreadyDecided", err)
	}
	if err := e.Attach(portal.Document{Path: t.TempDir()}); err == nil {
		t.Fatalf("directories are not attachable")
	}
	if err := e.Attach(portal.Document{Path: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("missing files are not attachable")
	}
	e.Detach()
	if e.State() != EligibilityNoFile {
		t.Fatalf("state = %s", e.State())
	}
}
