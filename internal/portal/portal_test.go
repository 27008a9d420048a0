package portal

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVisibilityRules(t *testing.T) {
	cases := []struct {
		status      Status
		submit      bool
		reviewCtrls bool
	}{
		{StatusNone, true, false},
		{StatusPending, false, false},
		{StatusPendingConflict, false, true},
		{StatusApproved, false, true},
		{StatusRejected, false, true},
		{Status("escalated"), false, false},
	}
	for _, tc := range cases {
		rec := BorrowerRecord{ID: "b1", Status: tc.status}
		if got := CanSubmitDocument(rec); got != tc.submit {
			t.Fatalf("CanSubmitDocument(%q) = %v, want %v", tc.status, got, tc.submit)
		}
		if got := ShowsReviewControls(rec); got != tc.reviewCtrls {
			t.Fatalf("ShowsReviewControls(%q) = %v, want %v", tc.status, got, tc.reviewCtrls)
		}
	}
}

func TestBorrowerRecordDecodesNullStatusAndNumericID(t *testing.T) {
	var rec BorrowerRecord
	if err := json.Unmarshal([]byte(`{"id":1,"full_name":"Ana","email":"ana@example.com","status":null}`), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ID != "1" {
		t.Fatalf("id = %q, want 1", rec.ID)
	}
	if !rec.Status.IsNull() {
		t.Fatalf("expected null status, got %q", rec.Status)
	}
	var bad ID
	if err := json.Unmarshal([]byte(`{"x":1}`), &bad); err == nil {
		t.Fatalf("expected object id to be rejected")
	}
}

func TestDecisionOverrideValidate(t *testing.T) {
	ok := DecisionOverride{BorrowerID: "b1", UnderwriterID: "u1", NewStatus: StatusRejected}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid override rejected: %v", err)
	}
	for _, o := range []DecisionOverride{
		{BorrowerID: "b1", UnderwriterID: "u1"},
		{BorrowerID: "b1", UnderwriterID: "u1", NewStatus: StatusPending},
		{UnderwriterID: "u1", NewStatus: StatusApproved},
	} {
		if err := o.Validate(); err == nil {
			t.Fatalf("expected %+v to be rejected", o)
		}
	}
}

func TestReportSectionsOmitAbsentFields(t *testing.T) {
	payload := `{
		"status": "approved",
		"explanation": {
			"rule_explanation": {"passed_cases": "income, credit_score", "failed_cases": null, "result": "passed"},
			"ml_explanation": null
		}
	}`
	var report ExplanationReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sections := report.Sections()
	if len(sections) != 2 {
		t.Fatalf("expected rule and fairness sections, got %d: %+v", len(sections), sections)
	}
	rule := sections[0]
	if rule.Title != "Rule Explanation" {
		t.Fatalf("first section = %s", rule.Title)
	}
	if len(rule.Fields) != 2 {
		t.Fatalf("expected passed and result fields, got %+v", rule.Fields)
	}
	for _, f := range rule.Fields {
		if f.Label == "Failed Cases" {
			t.Fatalf("absent failed cases must be omitted")
		}
	}
	if sections[1].Text != NoFairnessExplanation {
		t.Fatalf("fairness fallback = %q", sections[1].Text)
	}
	for _, s := range sections {
		for _, f := range s.Fields {
			if strings.Contains(f.Value, "undefined") || strings.Contains(f.Value, "<nil>") || f.Value == "" {
				t.Fatalf("unexpected placeholder value in %+v", f)
			}
		}
	}
}

func TestReportSectionsAcceptPlainStrings(t *testing.T) {
	payload := `{"explanation":{"rule_explanation":"all rules passed","ml_explanation":{"result":"approved","passed_cases":["income","tenure"]},"fairness_explanation":"Fairness bias False and audit result: ok"}}`
	var report ExplanationReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sections := report.Sections()
	if len(sections) != 3 {
		t.Fatalf("expected three sections, got %d", len(sections))
	}
	if sections[0].Text != "all rules passed" {
		t.Fatalf("rule text = %q", sections[0].Text)
	}
	if got := sections[1].Fields[0].Value; got != "income, tenure" {
		t.Fatalf("ml passed cases = %q", got)
	}
	if !strings.HasPrefix(sections[2].Text, "Fairness bias") {
		t.Fatalf("fairness text = %q", sections[2].Text)
	}
}

func TestReportSectionsWithoutExplanation(t *testing.T) {
	var report *ExplanationReport
	sections := report.Sections()
	if len(sections) != 1 || sections[0].Text != NoFairnessExplanation {
		t.Fatalf("nil report should render the fairness fallback only, got %+v", sections)
	}
}
