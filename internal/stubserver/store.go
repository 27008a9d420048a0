package stubserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

// Route names used for call counting and failure injection.
const (
	RouteLogin          = "login"
	RouteListBorrowers  = "list_borrowers"
	RouteGetBorrower    = "get_borrower"
	RouteEligibility    = "check_eligibility"
	RouteExplanation    = "explanation"
	RouteManualDecision = "manual_decision"
	RouteGenerateLetter = "generate_letter"
	RouteUpdateLetter   = "update_letter"
)

var (
	errNotFound        = errors.New("not found")
	errBadCredentials  = errors.New("Invalid email or password")
	errNoDecision      = errors.New("Decision log not found for user.")
	errNotUnderwriter  = errors.New("Permission denied: Only users with 'underwriter' role can update decisions.")
	errUnknownBorrower = errors.New("Borrower with provided email not found.")
)

type account struct {
	identity portal.Identity
	password string
}

// Store is the in-memory state behind the fake backend.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]account
	borrowers    []portal.BorrowerRecord
	explanations map[portal.ID]portal.ExplanationReport
	letters      map[portal.ID]portal.Letter
	documents    map[portal.ID][]string
	nextLetter   int
	calls        map[string]int
	failures     map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     map[string]account{},
		explanations: map[portal.ID]portal.ExplanationReport{},
		letters:      map[portal.ID]portal.Letter{},
		documents:    map[portal.ID][]string{},
		calls:        map[string]int{},
		failures:     map[string]int{},
	}
}

// AddAccount registers a login. Borrower accounts also get a borrower record
// with a null status.
func (s *Store) AddAccount(identity portal.Identity, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(identity.Email)] = account{identity: identity, password: password}
	if identity.Role == portal.RoleBorrower {
		s.upsertBorrowerLocked(portal.BorrowerRecord{ID: identity.ID, FullName: identity.FullName, Email: identity.Email})
	}
}

// PutBorrower inserts or replaces a borrower record, keeping list order.
func (s *Store) PutBorrower(rec portal.BorrowerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertBorrowerLocked(rec)
}

// PutExplanation sets the report served for a borrower.
func (s *Store) PutExplanation(id portal.ID, report portal.ExplanationReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explanations[id] = report
}

// FailNext makes the next n calls to route answer with a 500.
func (s *Store) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// Calls returns how many times route has been hit.
func (s *Store) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Borrower returns the stored record for id.
func (s *Store) Borrower(id portal.ID) (portal.BorrowerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.borrowerIndexLocked(id)
	if idx < 0 {
		return portal.BorrowerRecord{}, false
	}
	return s.borrowers[idx], true
}

// Letter returns the stored letter for id.
func (s *Store) Letter(id portal.ID) (portal.Letter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	letter, ok := s.letters[id]
	return letter, ok
}

// Documents returns the file names uploaded for a borrower.
func (s *Store) Documents(id portal.ID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.documents[id]...)
}

// hit counts a call and reports whether it should be failed.
func (s *Store) hit(route string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[route]++
	if s.failures[route] > 0 {
		s.failures[route]--
		return true
	}
	return false
}

func (s *Store) authenticate(email, password string) (portal.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || acct.password != password {
		return portal.Identity{}, errBadCredentials
	}
	return acct.identity, nil
}

func (s *Store) listBorrowers() []portal.BorrowerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]portal.BorrowerRecord{}, s.borrowers...)
}

func (s *Store) recordDocument(email, name string) (portal.BorrowerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.borrowers {
		if strings.EqualFold(s.borrowers[i].Email, email) {
			id := s.borrowers[i].ID
			s.documents[id] = append(s.documents[id], name)
			s.borrowers[i].Status = portal.StatusPending
			return s.borrowers[i], nil
		}
	}
	return portal.BorrowerRecord{}, errUnknownBorrower
}

func (s *Store) explanation(id portal.ID) (portal.ExplanationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.borrowerIndexLocked(id)
	if idx < 0 {
		return portal.ExplanationReport{}, errNoDecision
	}
	rec := s.borrowers[idx]
	if report, ok := s.explanations[id]; ok {
		report.Status = rec.Status
		return report, nil
	}
	if !rec.Status.Explainable() {
		return portal.ExplanationReport{}, errNoDecision
	}
	return portal.ExplanationReport{
		Status: rec.Status,
		Explanation: &portal.ExplanationDetails{
			Rule: portal.Explanation{Cases: &portal.CaseBreakdown{
				PassedCases: "credit_score, employment_length",
				Result:      string(rec.Status),
			}},
			Fairness: portal.Explanation{Text: "Fairness bias False and audit result: no disparity detected"},
		},
	}, nil
}

// override applies a manual decision. A no-op when the status already
// matches, mirroring the decision service.
func (s *Store) override(o portal.DecisionOverride) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isUnderwriterLocked(o.UnderwriterID) {
		return "", errNotUnderwriter
	}
	idx := s.borrowerIndexLocked(o.BorrowerID)
	if idx < 0 || s.borrowers[idx].Status.IsNull() {
		return "", errors.New("No decision record found for borrower.")
	}
	current := s.borrowers[idx].Status
	if strings.EqualFold(string(current), string(o.NewStatus)) {
		return fmt.Sprintf("Status is already '%s'", current), nil
	}
	s.borrowers[idx].Status = portal.Status(strings.ToLower(string(o.NewStatus)))
	return fmt.Sprintf("Status successfully updated to '%s'", o.NewStatus), nil
}

func (s *Store) generateLetter(id portal.ID) (portal.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.borrowerIndexLocked(id)
	if idx < 0 {
		return portal.Letter{}, errNotFound
	}
	rec := s.borrowers[idx]
	s.nextLetter++
	letter := portal.Letter{
		ID:   portal.ID(fmt.Sprintf("L-%d", s.nextLetter)),
		Text: letterTemplate(rec),
	}
	s.letters[letter.ID] = letter
	return letter, nil
}

func (s *Store) updateLetter(id portal.ID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	letter, ok := s.letters[id]
	if !ok {
		return errNotFound
	}
	letter.Text = text
	s.letters[id] = letter
	return nil
}

func (s *Store) upsertBorrowerLocked(rec portal.BorrowerRecord) {
	if idx := s.borrowerIndexLocked(rec.ID); idx >= 0 {
		s.borrowers[idx] = rec
		return
	}
	s.borrowers = append(s.borrowers, rec)
}

func (s *Store) borrowerIndexLocked(id portal.ID) int {
	for i := range s.borrowers {
		if s.borrowers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) isUnderwriterLocked(id portal.ID) bool {
	for _, acct := range s.accounts {
		if acct.identity.ID == id {
			return acct.identity.Role == portal.RoleUnderwriter
		}
	}
	return false
}

func letterTemplate(rec portal.BorrowerRecord) string {
	outcome := "is still under review"
	switch rec.Status {
	case portal.StatusApproved:
		outcome = "has been approved"
	case portal.StatusRejected:
		outcome = "has not been approved at this time"
	}
	return fmt.Sprintf("Dear %s,\n\nYour mortgage application %s.\n\nSincerely,\nUnderwriting Team", rec.FullName, outcome)
}

// Seed loads the demo accounts and applications.
func (s *Store) Seed() {
	s.AddAccount(portal.Identity{ID: "1", FullName: "Jane", Email: "u1", Role: portal.RoleUnderwriter}, "x")
	s.AddAccount(portal.Identity{ID: "b-100", FullName: "Ana Borrower", Email: "ana@example.com", Role: portal.RoleBorrower}, "x")
	s.PutBorrower(portal.BorrowerRecord{ID: "b-101", FullName: "Ben Okafor", Email: "ben@example.com", Status: portal.StatusApproved})
	s.PutBorrower(portal.BorrowerRecord{ID: "b-102", FullName: "Chloe Park", Email: "chloe@example.com", Status: portal.StatusRejected})
	s.PutBorrower(portal.BorrowerRecord{ID: "b-103", FullName: "Dev Singh", Email: "dev@example.com", Status: portal.StatusPendingConflict})
	s.PutBorrower(portal.BorrowerRecord{ID: "b-104", FullName: "Eve Turner", Email: "eve@example.com", Status: portal.StatusPending})
	s.PutExplanation("b-101", portal.ExplanationReport{Explanation: &portal.ExplanationDetails{
		Rule: portal.Explanation{Cases: &portal.CaseBreakdown{PassedCases: "credit_score, dti_ratio, employment_length", Result: "passed"}},
		ML: portal.Explanation{Cases: &portal.CaseBreakdown{
			PassedCases: "ML model predicted confidence score of 0.91. Best positive contributors were: income, credit_score",
			FailedCases: "Key failed contributors were: loan_amount",
			Result:      "approved",
		}},
		Fairness: portal.Explanation{Text: "Fairness bias False and audit result: no disparity detected"},
	}})
}
