package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/strandline/internal/model"
)

// validate runs the semantic checks the schema cannot express. All problems are
// collected so a catalog author sees every issue in one pass.
func validate(meta Meta, markers []model.Marker, rules []model.InterpretationRule) error {
	var errs []error
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if meta.Version == "" {
		errs = append(errs, errors.New("catalog version is required"))
	}
	if len(markers) == 0 {
		errs = append(errs, errors.New("catalog has no markers"))
	}
	if len(rules) == 0 {
		errs = append(errs, errors.New("catalog has no rules"))
	}

	known := make(map[string]model.Marker, len(markers))
	for _, m := range markers {
		if _, dup := known[m.RSID]; dup {
			addf("marker %s: duplicate rsid", m.RSID)
			continue
		}
		known[m.RSID] = m
		for _, err := range checkMarker(m) {
			addf("marker %s: %v", m.RSID, err)
		}
	}

	ruleIDs := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			addf("rule with label %q: missing id", r.Label)
			continue
		}
		if ruleIDs[r.ID] {
			addf("rule %s: duplicate rule_id", r.ID)
			continue
		}
		ruleIDs[r.ID] = true
		for _, err := range checkRule(r, known) {
			addf("rule %s: %v", r.ID, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}

func checkMarker(m model.Marker) []error {
	var errs []error
	if !strings.HasPrefix(m.RSID, "rs") {
		errs = append(errs, errors.New("rsid must start with rs"))
	}
	if !m.ReferenceAlleles.Valid() {
		errs = append(errs, fmt.Errorf("reference alleles %q must be two of A, C, G, T", m.ReferenceAlleles))
	} else if m.ReferenceAlleles.Homozygous() {
		errs = append(errs, fmt.Errorf("reference alleles %q must be two different bases", m.ReferenceAlleles))
	}
	if m.EffectBase() == 0 || !m.ReferenceAlleles.Has(m.EffectBase()) {
		errs = append(errs, fmt.Errorf("effect allele %q is not one of reference alleles %q", m.EffectAllele, m.ReferenceAlleles))
	}
	if !m.Panel.Valid() {
		errs = append(errs, fmt.Errorf("unknown panel %q", m.Panel))
	}
	return errs
}

func checkRule(r model.InterpretationRule, known map[string]model.Marker) []error {
	var errs []error
	if r.Label == "" {
		errs = append(errs, errors.New("label is required"))
	}
	if !r.Panel.Valid() {
		errs = append(errs, fmt.Errorf("unknown panel %q", r.Panel))
	}
	if len(r.Markers) == 0 {
		errs = append(errs, errors.New("at least one marker is required"))
	}

	seen := make(map[string]bool, len(r.Markers))
	for _, rsid := range r.Markers {
		if seen[rsid] {
			errs = append(errs, fmt.Errorf("marker %s listed twice", rsid))
		}
		seen[rsid] = true
		if _, ok := known[rsid]; !ok {
			errs = append(errs, fmt.Errorf("marker %s is not in the catalog", rsid))
		}
	}

	if r.Severity.Default != "" && !r.Severity.Default.Tier() {
		errs = append(errs, fmt.Errorf("default severity %q is not a tier", r.Severity.Default))
	}
	for state, tier := range r.Severity.States {
		if !tier.Tier() {
			errs = append(errs, fmt.Errorf("state %q: severity %q is not a tier", state, tier))
		}
	}
	if r.RequireFullPanel && r.Policy != model.PolicyCountRiskAlleles {
		errs = append(errs, fmt.Errorf("require_full_panel only applies to %s rules", model.PolicyCountRiskAlleles))
	}

	switch r.Policy {
	case model.PolicySingleMarker:
		errs = append(errs, checkSingle(r)...)
	case model.PolicyZygosityThreshold:
		errs = append(errs, checkTable(r)...)
	case model.PolicyCountRiskAlleles:
		errs = append(errs, checkCount(r)...)
	default:
		errs = append(errs, fmt.Errorf("unknown combination policy %q", r.Policy))
	}
	return errs
}

var singleStates = []string{
	string(model.ZygosityHomRef),
	string(model.ZygosityHet),
	string(model.ZygosityHomAlt),
}

func checkSingle(r model.InterpretationRule) []error {
	var errs []error
	if len(r.Markers) != 1 {
		errs = append(errs, fmt.Errorf("%s rules take exactly one marker, got %d", r.Policy, len(r.Markers)))
	}
	if len(r.Table) > 0 || len(r.Severity.Thresholds) > 0 {
		errs = append(errs, fmt.Errorf("%s rules take neither a table nor thresholds", r.Policy))
	}
	return append(errs, checkTotal(r, singleStates)...)
}

func checkTable(r model.InterpretationRule) []error {
	var errs []error
	if len(r.Markers) < 2 {
		errs = append(errs, fmt.Errorf("%s rules need at least two markers", r.Policy))
	}
	if len(r.Table) == 0 {
		errs = append(errs, fmt.Errorf("%s rules need a lookup table", r.Policy))
	}
	if len(r.Severity.Thresholds) > 0 {
		errs = append(errs, fmt.Errorf("%s rules take no thresholds", r.Policy))
	}

	reachable := []string{model.StateNoFinding}
	tuples := make(map[string]bool, len(r.Table))
	for i, entry := range r.Table {
		if entry.State == "" {
			errs = append(errs, fmt.Errorf("table entry %d: state is required", i))
		}
		if len(entry.When) != len(r.Markers) {
			errs = append(errs, fmt.Errorf("table entry %d: %d zygosities for %d markers", i, len(entry.When), len(r.Markers)))
			continue
		}
		keyParts := make([]string, len(entry.When))
		for j, z := range entry.When {
			if !z.Determined() {
				errs = append(errs, fmt.Errorf("table entry %d: %q is not a determined zygosity", i, z))
			}
			keyParts[j] = string(z)
		}
		key := strings.Join(keyParts, ",")
		if tuples[key] {
			errs = append(errs, fmt.Errorf("table entry %d: tuple (%s) mapped twice", i, key))
		}
		tuples[key] = true
		if !contains(reachable, entry.State) {
			reachable = append(reachable, entry.State)
		}
	}
	return append(errs, checkTotal(r, reachable)...)
}

func checkCount(r model.InterpretationRule) []error {
	var errs []error
	if len(r.Table) > 0 || len(r.Severity.States) > 0 || r.Severity.Default != "" {
		errs = append(errs, fmt.Errorf("%s rules are classified by thresholds only", r.Policy))
	}
	if len(r.Severity.Thresholds) == 0 {
		return append(errs, fmt.Errorf("%s rules need thresholds", r.Policy))
	}

	thresholds := make([]model.Threshold, len(r.Severity.Thresholds))
	copy(thresholds, r.Severity.Thresholds)
	sort.SliceStable(thresholds, func(i, j int) bool { return thresholds[i].Min < thresholds[j].Min })

	maxCount := 2 * len(r.Markers)
	if thresholds[0].Min != 0 {
		errs = append(errs, errors.New("thresholds must start at min 0 so every count is classified"))
	}
	for i, t := range thresholds {
		if !t.Severity.Tier() {
			errs = append(errs, fmt.Errorf("threshold min %d: severity %q is not a tier", t.Min, t.Severity))
		}
		if t.Min > maxCount {
			errs = append(errs, fmt.Errorf("threshold min %d exceeds %d possible risk alleles", t.Min, maxCount))
		}
		if i == 0 {
			continue
		}
		prev := thresholds[i-1]
		if t.Min == prev.Min {
			errs = append(errs, fmt.Errorf("threshold min %d declared twice", t.Min))
		}
		if t.Severity.Rank() < prev.Severity.Rank() {
			errs = append(errs, fmt.Errorf("threshold min %d: severity %s is lower than %s at min %d", t.Min, t.Severity, prev.Severity, prev.Min))
		}
	}
	return errs
}

// checkTotal verifies the severity policy maps every reachable state to a tier
// and names no state the rule can never produce.
func checkTotal(r model.InterpretationRule, reachable []string) []error {
	var errs []error
	for state := range r.Severity.States {
		if !contains(reachable, state) {
			errs = append(errs, fmt.Errorf("severity names unreachable state %q", state))
		}
	}
	if r.Severity.Default != "" {
		return errs
	}
	for _, state := range reachable {
		if _, ok := r.Severity.States[state]; !ok {
			errs = append(errs, fmt.Errorf("no severity for state %q and no default", state))
		}
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
