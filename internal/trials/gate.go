// Package trials turns critical findings into clinical-trial search queries.
package trials

import "github.com/ppiankov/strandline/internal/model"

// RuleSource looks up interpretation rules by id
type RuleSource interface {
	Rule(id string) (model.InterpretationRule, bool)
}

// Gate emits trial queries only when a finding set contains critical findings
type Gate struct {
	rules RuleSource
}

// NewGate creates a gate over rules
func NewGate(rules RuleSource) *Gate {
	return &Gate{rules: rules}
}

// Queries returns one query per critical finding whose rule declares a trial
// search, in finding order. It returns nil when nothing is critical.
func (g *Gate) Queries(set model.FindingSet) []model.TrialGate {
	critical := set.CriticalFindings()
	if len(critical) == 0 {
		return nil
	}

	var out []model.TrialGate
	for _, f := range critical {
		rule, ok := g.rules.Rule(f.RuleID)
		if !ok || rule.Trial == nil || rule.Trial.Condition == "" {
			continue
		}
		out = append(out, model.TrialGate{
			RuleID:    f.RuleID,
			Label:     f.Label,
			Condition: rule.Trial.Condition,
			Term:      rule.Trial.Term,
		})
	}
	return out
}
