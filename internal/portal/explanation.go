package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NoFairnessExplanation is shown when the report carries no fairness text.
const NoFairnessExplanation = "No fairness explanation available."

// ExplanationReport is the explanation service response. Every level may be
// missing, so callers go through Sections rather than the raw fields.
type ExplanationReport struct {
	Status      Status              `json:"status,omitempty"`
	Explanation *ExplanationDetails `json:"explanation"`
}

// ExplanationDetails groups the three explainers.
type ExplanationDetails struct {
	Rule     Explanation `json:"rule_explanation"`
	ML       Explanation `json:"ml_explanation"`
	Fairness Explanation `json:"fairness_explanation"`
}

// Explanation is either a plain string or a case breakdown. Both are empty
// when the backend sent null or omitted the field.
type Explanation struct {
	Text  string
	Cases *CaseBreakdown
}

// CaseBreakdown lists which checks passed and failed plus the verdict.
type CaseBreakdown struct {
	PassedCases string `json:"passed_cases,omitempty"`
	FailedCases string `json:"failed_cases,omitempty"`
	Result      string `json:"result,omitempty"`
}

// HasAny reports whether at least one case field is set.
func (c *CaseBreakdown) HasAny() bool {
	if c == nil {
		return false
	}
	return c.PassedCases != "" || c.FailedCases != "" || c.Result != ""
}

// Present reports whether the explanation has anything to show.
func (e Explanation) Present() bool {
	return strings.TrimSpace(e.Text) != "" || e.Cases.HasAny()
}

// UnmarshalJSON decodes null, a string, an object of cases, or any other
// scalar (kept as its literal text).
func (e *Explanation) UnmarshalJSON(data []byte) error {
	*e = Explanation{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &e.Text)
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("portal: decode explanation: %w", err)
		}
		cases := &CaseBreakdown{
			PassedCases: scalarText(raw["passed_cases"]),
			FailedCases: scalarText(raw["failed_cases"]),
			Result:      scalarText(raw["result"]),
		}
		if cases.HasAny() {
			e.Cases = cases
		}
		return nil
	default:
		e.Text = scalarText(trimmed)
		return nil
	}
}

// MarshalJSON mirrors UnmarshalJSON so fixtures round-trip.
func (e Explanation) MarshalJSON() ([]byte, error) {
	if e.Cases.HasAny() {
		return json.Marshal(e.Cases)
	}
	if e.Text != "" {
		return json.Marshal(e.Text)
	}
	return []byte("null"), nil
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			parts = append(parts, strings.TrimSpace(fmt.Sprint(item)))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return ""
	default:
		return string(raw)
	}
}

// Field is one labelled line of a report section.
type Field struct {
	Label string
	Value string
}

// Section is a titled block of the report panel.
type Section struct {
	Title  string
	Fields []Field
	Text   string
}

// Sections lays out the report for display. Rule and ML blocks are dropped
// when empty; the fairness block is always present.
func (r *ExplanationReport) Sections() []Section {
	var details ExplanationDetails
	if r != nil && r.Explanation != nil {
		details = *r.Explanation
	}
	var sections []Section
	if details.Rule.Present() {
		sections = append(sections, explanationSection("Rule Explanation", details.Rule))
	}
	if details.ML.Present() {
		sections = append(sections, explanationSection("ML Explanation", details.ML))
	}
	fairness := explanationSection("Fairness Explanation", details.Fairness)
	if !details.Fairness.Present() {
		fairness.Text = NoFairnessExplanation
	}
	sections = append(sections, fairness)
	return sections
}

func explanationSection(title string, e Explanation) Section {
	section := Section{Title: title, Text: strings.TrimSpace(e.Text)}
	if e.Cases != nil {
		add := func(label, value string) {
			if value != "" {
				section.Fields = append(section.Fields, Field{Label: label, Value: value})
			}
		}
		add("Passed Cases", e.Cases.PassedCases)
		add("Failed Cases", e.Cases.FailedCases)
		add("Result", e.Cases.Result)
	}
	return section
}
