package model

import "encoding/json"

// Severity is the actionability tier attached to a finding
type Severity string

const (
	SeverityInformational Severity = "informational"
	SeverityModerate      Severity = "moderate"
	SeverityCritical      Severity = "critical"
	SeverityIndeterminate Severity = "indeterminate" // not enough usable markers to decide
)

// Rank orders severities for reporting: critical first, informational last.
// Indeterminate sits above informational so missing coverage stays visible.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityModerate:
		return 2
	case SeverityIndeterminate:
		return 1
	default:
		return 0
	}
}

// Tier reports whether s is one a rule may declare (everything but indeterminate)
func (s Severity) Tier() bool {
	switch s {
	case SeverityInformational, SeverityModerate, SeverityCritical:
		return true
	}
	return false
}

// Aggregate state labels shared by the aggregator and the default catalog
const (
	StateIndeterminate = "indeterminate"
	StateNoFinding     = "no significant finding"
	StatePartialPanel  = "partial panel"
)

// AggregateState is the combined result of evaluating one rule's markers
type AggregateState struct {
	Label         string   `json:"label"`
	Indeterminate bool     `json:"indeterminate,omitempty"`
	Zygosity      Zygosity `json:"zygosity,omitempty"`        // single-marker rules
	RiskAlleles   int      `json:"risk_alleles,omitempty"`    // counting rules
	Counted       int      `json:"markers_counted,omitempty"` // counting rules
	PartialPanel  bool     `json:"partial_panel,omitempty"`
	Missing       []string `json:"missing,omitempty"`
}

// MarkerCall is the per-marker evidence carried on a finding
type MarkerCall struct {
	RSID          string     `json:"rsid"`
	Genotype      AllelePair `json:"genotype"`
	Zygosity      Zygosity   `json:"zygosity"`
	StrandFlipped bool       `json:"strand_flipped"`
}

// Finding is the classified outcome of one interpretation rule
type Finding struct {
	RuleID         string       `json:"rule_id"`
	Label          string       `json:"label"`
	Panel          Panel        `json:"panel"`
	Severity       Severity     `json:"severity"`
	AggregateState string       `json:"aggregate_state"`
	CaveatText     string       `json:"caveat_text,omitempty"`
	MarkersUsed    []MarkerCall `json:"markers_used"`
	Notes          []string     `json:"notes,omitempty"`
}

// FindingSet is the ordered, deduplicated collection of findings for one run
type FindingSet struct {
	Findings []Finding
}

// Len returns the number of findings
func (s FindingSet) Len() int {
	return len(s.Findings)
}

// CriticalFindings returns only findings classified critical. It is empty unless at
// least one finding is critical.
func (s FindingSet) CriticalFindings() []Finding {
	var critical []Finding
	for _, f := range s.Findings {
		if f.Severity == SeverityCritical {
			critical = append(critical, f)
		}
	}
	return critical
}

// BySeverity counts findings per severity
func (s FindingSet) BySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range s.Findings {
		counts[f.Severity]++
	}
	return counts
}

// MarshalJSON encodes the set as an ordered list of finding records
func (s FindingSet) MarshalJSON() ([]byte, error) {
	if s.Findings == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Findings)
}

// UnmarshalJSON decodes an ordered list of finding records
func (s *FindingSet) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.Findings)
}
