// internal/portal/types.go
//
// Domain model shared by the client, the workflows and the TUI.
// All of it is transient: nothing here is persisted by the portal.

package portal

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Role identifies which dashboard an identity is routed to.
type Role string

const (
	RoleUnderwriter Role = "underwriter"
	RoleBorrower    Role = "borrower"
)

// Valid reports whether the role has a dashboard.
func (r Role) Valid() bool {
	return r == RoleUnderwriter || r == RoleBorrower
}

// ID is a backend identifier. The services hand out uuid strings but older
// fixtures use bare numbers, so both decode into the same string form.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("portal: id must be a string or number, got %s", trimmed)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Empty reports whether the identifier is unset.
func (id ID) Empty() bool { return strings.TrimSpace(string(id)) == "" }

// Status is the decision state of a borrower application. The zero value is
// the backend's null: no document has been submitted yet.
type Status string

const (
	StatusNone            Status = ""
	StatusPending         Status = "pending"
	StatusPendingConflict Status = "pending_conflict"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// IsNull reports whether the backend has no status for the application.
func (s Status) IsNull() bool { return strings.TrimSpace(string(s)) == "" }

// Explainable reports whether a decision exists that can be explained or
// overridden.
func (s Status) Explainable() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusPendingConflict:
		return true
	}
	return false
}

// OverrideChoice reports whether s may be submitted as a manual decision.
func (s Status) OverrideChoice() bool {
	return s == StatusApproved || s == StatusRejected
}

// Credentials are the login form values.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identity is the authenticated user returned by the login call.
type Identity struct {
	ID       ID     `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// BorrowerRecord is one borrower application as listed by the backend.
type BorrowerRecord struct {
	ID       ID     `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Status   Status `json:"status"`
}

// DecisionOverride is the payload of a manual decision.
type DecisionOverride struct {
	BorrowerID    ID     `json:"borrower_id"`
	UnderwriterID ID     `json:"underwriter_id"`
	NewStatus     Status `json:"new_status"`
}

// Validate rejects overrides that must never reach the backend.
func (o DecisionOverride) Validate() error {
	if o.BorrowerID.Empty() {
		return fmt.Errorf("portal: override borrower id is required")
	}
	if o.UnderwriterID.Empty() {
		return fmt.Errorf("portal: override underwriter id is required")
	}
	if !o.NewStatus.OverrideChoice() {
		return fmt.Errorf("portal: override status must be approved or rejected, got %q", o.NewStatus)
	}
	return nil
}

// Letter is a generated notice. The text is editable locally until an update
// persists it; the last update wins.
type Letter struct {
	ID   ID     `json:"letter_id"`
	Text string `json:"letter_text"`
}

// Document is a file attached for eligibility checking.
type Document struct {
	Path string
}

// Name is the file name sent in the multipart body.
func (d Document) Name() string {
	if strings.TrimSpace(d.Path) == "" {
		return ""
	}
	return filepath.Base(d.Path)
}
