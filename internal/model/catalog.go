package model

// Panel groups markers and rules for reporting
type Panel string

const (
	PanelWellness         Panel = "wellness"
	PanelPharmacogenomic  Panel = "pharmacogenomic"
	PanelDiseaseRisk      Panel = "disease-risk"
	PanelClotting         Panel = "clotting"
	PanelHereditaryCancer Panel = "hereditary-cancer"
	PanelCardiometabolic  Panel = "cardiometabolic"
	PanelMethylation      Panel = "methylation"
	PanelAppearance       Panel = "appearance"
)

// Panels lists every known panel in display order
var Panels = []Panel{
	PanelPharmacogenomic,
	PanelClotting,
	PanelHereditaryCancer,
	PanelDiseaseRisk,
	PanelCardiometabolic,
	PanelMethylation,
	PanelWellness,
	PanelAppearance,
}

// Valid reports whether p is a known panel
func (p Panel) Valid() bool {
	for _, known := range Panels {
		if p == known {
			return true
		}
	}
	return false
}

// Marker is a catalog entry for one SNP, with reference alleles on the forward strand
type Marker struct {
	RSID             string     `json:"rsid" yaml:"rsid"`
	Gene             string     `json:"gene,omitempty" yaml:"gene,omitempty"`
	Chromosome       string     `json:"chromosome" yaml:"chromosome"`
	Position         int64      `json:"position,omitempty" yaml:"position,omitempty"`
	ReferenceAlleles AllelePair `json:"reference_alleles" yaml:"reference_alleles"`
	EffectAllele     string     `json:"effect_allele" yaml:"effect_allele"`
	Panel            Panel      `json:"panel" yaml:"panel"`
	Note             string     `json:"note,omitempty" yaml:"note,omitempty"` // e.g. proxy-marker disclosure
}

// EffectBase returns the effect allele as a single base
func (m Marker) EffectBase() byte {
	if len(m.EffectAllele) != 1 {
		return 0
	}
	return upper(m.EffectAllele[0])
}

// Palindromic reports whether the marker's reference pair is A/T or C/G
func (m Marker) Palindromic() bool {
	return m.ReferenceAlleles.Palindromic()
}

// CombinationPolicy selects how a rule combines its markers
type CombinationPolicy string

const (
	PolicySingleMarker      CombinationPolicy = "single-marker"
	PolicyZygosityThreshold CombinationPolicy = "all-required-zygosity-threshold"
	PolicyCountRiskAlleles  CombinationPolicy = "count-risk-alleles"
)

// Valid reports whether c is a known policy
func (c CombinationPolicy) Valid() bool {
	switch c {
	case PolicySingleMarker, PolicyZygosityThreshold, PolicyCountRiskAlleles:
		return true
	}
	return false
}

// TableEntry maps a tuple of zygosities (in rule marker order) to a named state
type TableEntry struct {
	When  []Zygosity `json:"when" yaml:"when"`
	State string     `json:"state" yaml:"state"`
}

// Threshold assigns a tier to risk-allele counts at or above Min
type Threshold struct {
	Min      int      `json:"min" yaml:"min"`
	Severity Severity `json:"severity" yaml:"severity"`
	State    string   `json:"state,omitempty" yaml:"state,omitempty"`
}

// SeverityPolicy is the declarative mapping from aggregate state to tier.
// States and Default serve single-marker and table rules; Thresholds serve counting rules.
type SeverityPolicy struct {
	States     map[string]Severity `json:"states,omitempty" yaml:"states,omitempty"`
	Default    Severity            `json:"default,omitempty" yaml:"default,omitempty"`
	Thresholds []Threshold         `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// TrialQuery describes a clinical-trial search for a finding
type TrialQuery struct {
	Condition string `json:"condition" yaml:"condition"`
	Term      string `json:"term,omitempty" yaml:"term,omitempty"`
}

// InterpretationRule turns one or more marker calls into a labelled finding
type InterpretationRule struct {
	ID               string            `json:"id" yaml:"id"`
	Label            string            `json:"label" yaml:"label"`
	Panel            Panel             `json:"panel" yaml:"panel"`
	Policy           CombinationPolicy `json:"policy" yaml:"policy"`
	Markers          []string          `json:"markers" yaml:"markers"`
	RequireFullPanel bool              `json:"require_full_panel,omitempty" yaml:"require_full_panel,omitempty"`
	Table            []TableEntry      `json:"table,omitempty" yaml:"table,omitempty"`
	Severity         SeverityPolicy    `json:"severity" yaml:"severity"`
	Caveat           string            `json:"caveat,omitempty" yaml:"caveat,omitempty"`
	Trial            *TrialQuery       `json:"trial,omitempty" yaml:"trial,omitempty"`
}

// ThresholdFor returns the highest threshold whose Min is at or below count
func (p SeverityPolicy) ThresholdFor(count int) (Threshold, bool) {
	var best Threshold
	found := false
	for _, t := range p.Thresholds {
		if t.Min <= count && (!found || t.Min > best.Min) {
			best = t
			found = true
		}
	}
	return best, found
}
