// Package haplotype combines the zygosity calls of a rule's markers into one state.
package haplotype

import (
	"fmt"

	"github.com/ppiankov/strandline/internal/model"
)

// Aggregate evaluates rule over the run's determined calls. A marker that is absent
// from calls, or present but not determined (ambiguous), is missing: it never counts
// as zero risk alleles.
func Aggregate(rule model.InterpretationRule, calls map[string]model.Zygosity) model.AggregateState {
	present, missing := split(rule.Markers, calls)

	switch rule.Policy {
	case model.PolicySingleMarker:
		return single(rule, present, missing)
	case model.PolicyZygosityThreshold:
		return table(rule, present, missing)
	case model.PolicyCountRiskAlleles:
		return count(rule, present, missing)
	default:
		return indeterminate(missing)
	}
}

func split(markers []string, calls map[string]model.Zygosity) (map[string]model.Zygosity, []string) {
	present := make(map[string]model.Zygosity, len(markers))
	var missing []string
	for _, rsid := range markers {
		z, ok := calls[rsid]
		if !ok || !z.Determined() {
			missing = append(missing, rsid)
			continue
		}
		present[rsid] = z
	}
	return present, missing
}

func indeterminate(missing []string) model.AggregateState {
	return model.AggregateState{
		Label:         model.StateIndeterminate,
		Indeterminate: true,
		Missing:       missing,
	}
}

func single(rule model.InterpretationRule, present map[string]model.Zygosity, missing []string) model.AggregateState {
	if len(rule.Markers) != 1 || len(missing) > 0 {
		return indeterminate(missing)
	}
	z := present[rule.Markers[0]]
	return model.AggregateState{Label: string(z), Zygosity: z}
}

func table(rule model.InterpretationRule, present map[string]model.Zygosity, missing []string) model.AggregateState {
	if len(missing) > 0 {
		return indeterminate(missing)
	}

	tuple := make([]model.Zygosity, len(rule.Markers))
	for i, rsid := range rule.Markers {
		tuple[i] = present[rsid]
	}

	for _, entry := range rule.Table {
		if matches(entry.When, tuple) {
			return model.AggregateState{Label: entry.State}
		}
	}
	// Unmapped tuples never become a positive risk state
	return model.AggregateState{Label: model.StateNoFinding}
}

func matches(when, tuple []model.Zygosity) bool {
	if len(when) != len(tuple) {
		return false
	}
	for i := range when {
		if when[i] != tuple[i] {
			return false
		}
	}
	return true
}

func count(rule model.InterpretationRule, present map[string]model.Zygosity, missing []string) model.AggregateState {
	if len(present) == 0 {
		return indeterminate(missing)
	}
	if len(missing) > 0 && rule.RequireFullPanel {
		return indeterminate(missing)
	}

	risk := 0
	for _, z := range present {
		risk += z.EffectAlleles()
	}

	state := model.AggregateState{
		RiskAlleles:  risk,
		Counted:      len(present),
		PartialPanel: len(missing) > 0,
		Missing:      missing,
	}

	label := riskLabel(risk)
	if t, ok := rule.Severity.ThresholdFor(risk); ok && t.State != "" {
		label = t.State
	}
	if state.PartialPanel {
		label = fmt.Sprintf("%s (%s: %d of %d markers)", label, model.StatePartialPanel, len(present), len(rule.Markers))
	}
	state.Label = label
	return state
}

func riskLabel(n int) string {
	if n == 1 {
		return "1 risk allele"
	}
	return fmt.Sprintf("%d risk alleles", n)
}
