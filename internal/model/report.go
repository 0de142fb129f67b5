package model

import "time"

// Report is the complete interpretation artifact for one sample run
type Report struct {
	RunID       string     `json:"run_id"`
	Sample      string     `json:"sample"` // Input name (usually the file base name)
	GeneratedAt time.Time  `json:"generated_at"`
	Catalog     CatalogRef `json:"catalog"`

	Findings     FindingSet    `json:"findings"`                // Ordered: severity desc, panel, rule id
	MarkerIssues []MarkerIssue `json:"marker_issues,omitempty"` // Markers that could not contribute fully
	Coverage     []string      `json:"coverage_notes,omitempty"`
	TrialQueries []TrialGate   `json:"trial_queries,omitempty"` // Only populated when critical findings exist

	Stats      RunStats   `json:"stats"`
	Principles Principles `json:"principles"`
}

// CatalogRef identifies the reference catalog a run was evaluated against
type CatalogRef struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Markers int    `json:"markers"`
	Rules   int    `json:"rules"`
}

// IssueKind classifies why a marker could not contribute a concrete call
type IssueKind string

const (
	IssueReferenceMismatch   IssueKind = "reference_mismatch"   // allele pair fits neither strand of the catalog pair
	IssueMalformedGenotype   IssueKind = "malformed_genotype"   // non-ACGT base in the call
	IssueStrandUnresolved    IssueKind = "strand_unresolved"    // palindromic, provider had no answer
	IssueProviderUnavailable IssueKind = "provider_unavailable" // palindromic, provider failed after retries
)

// Unusable reports whether the issue removes the marker from aggregation entirely
func (k IssueKind) Unusable() bool {
	return k == IssueReferenceMismatch || k == IssueMalformedGenotype
}

// MarkerIssue records a marker-level problem surfaced during a run
type MarkerIssue struct {
	RSID   string    `json:"rsid"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

// TrialGate is a trial search the report recommends for a critical finding
type TrialGate struct {
	RuleID    string `json:"rule_id"`
	Label     string `json:"label"`
	Condition string `json:"condition"`
	Term      string `json:"term,omitempty"`
}

// RunStats summarizes marker processing for one run
type RunStats struct {
	Observed        int `json:"observed"`         // Genotypes supplied as input
	Referenced      int `json:"referenced"`       // Distinct markers referenced by rules
	Reconciled      int `json:"reconciled"`       // Markers with a concrete forward-strand call
	Flipped         int `json:"flipped"`          // Reconciled markers reported on the minus strand
	Ambiguous       int `json:"ambiguous"`        // Palindromic markers left unresolved
	Unusable        int `json:"unusable"`         // Mismatched or malformed markers
	Missing         int `json:"missing"`          // Referenced markers absent from the input
	ProviderLookups int `json:"provider_lookups"` // Strand-truth queries issued for this run
}

// Principles documents the interpretation guarantees applied to every report
type Principles struct {
	NonDiagnostic  bool `json:"non_diagnostic"`   // Findings are screening-level associations
	NoImputation   bool `json:"no_imputation"`    // Missing markers are never filled in
	AmbiguityIsGap bool `json:"ambiguity_is_gap"` // Ambiguous calls never count as negative
}

// DefaultPrinciples returns the standard interpretation principles
func DefaultPrinciples() Principles {
	return Principles{
		NonDiagnostic:  true,
		NoImputation:   true,
		AmbiguityIsGap: true,
	}
}
