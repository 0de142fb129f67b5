// Package classify assigns severity tiers to aggregate states.
package classify

import "github.com/ppiankov/strandline/internal/model"

// Classify applies the rule's severity policy to an aggregate state.
// An indeterminate state is always indeterminate, whatever the policy says.
func Classify(rule model.InterpretationRule, state model.AggregateState) model.Severity {
	if state.Indeterminate {
		return model.SeverityIndeterminate
	}

	if rule.Policy == model.PolicyCountRiskAlleles {
		t, ok := rule.Severity.ThresholdFor(state.RiskAlleles)
		if !ok {
			return model.SeverityIndeterminate
		}
		return t.Severity
	}

	if tier, ok := rule.Severity.States[state.Label]; ok {
		return tier
	}
	if rule.Severity.Default != "" {
		return rule.Severity.Default
	}
	// Validated catalogs are total; an unmapped state here means the rule was built by hand
	return model.SeverityIndeterminate
}
