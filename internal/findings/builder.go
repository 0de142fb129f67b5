// Package findings assembles classified rule results into the ordered finding set.
package findings

import (
	"sort"

	"github.com/ppiankov/strandline/internal/model"
)

// Raw is one classified rule evaluation
type Raw struct {
	Rule     model.InterpretationRule
	State    model.AggregateState
	Severity model.Severity
	Calls    []model.MarkerCall // markers the rule actually used
	Notes    []string
}

// Build deduplicates by rule id, keeping the latest evaluation, and orders findings by
// severity (critical first), panel, then rule id. The same input always yields the same set.
func Build(raw []Raw) model.FindingSet {
	latest := make(map[string]int, len(raw))
	for i, r := range raw {
		latest[r.Rule.ID] = i
	}

	out := make([]model.Finding, 0, len(latest))
	for i, r := range raw {
		if latest[r.Rule.ID] != i {
			continue
		}
		out = append(out, toFinding(r))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if pa, pb := panelOrder(a.Panel), panelOrder(b.Panel); pa != pb {
			return pa < pb
		}
		if a.Panel != b.Panel {
			return a.Panel < b.Panel
		}
		return a.RuleID < b.RuleID
	})

	return model.FindingSet{Findings: out}
}

func toFinding(r Raw) model.Finding {
	f := model.Finding{
		RuleID:         r.Rule.ID,
		Label:          r.Rule.Label,
		Panel:          r.Rule.Panel,
		Severity:       r.Severity,
		AggregateState: r.State.Label,
		CaveatText:     r.Rule.Caveat,
		MarkersUsed:    make([]model.MarkerCall, len(r.Calls)),
	}
	copy(f.MarkersUsed, r.Calls)
	if len(r.Notes) > 0 {
		f.Notes = append([]string(nil), r.Notes...)
	}
	return f
}

// panelOrder ranks panels in display order; unknown panels sort last
func panelOrder(p model.Panel) int {
	for i, known := range model.Panels {
		if p == known {
			return i
		}
	}
	return len(model.Panels)
}
