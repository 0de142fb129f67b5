package trials

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/strandline/internal/model"
)

type ruleMap map[string]model.InterpretationRule

func (m ruleMap) Rule(id string) (model.InterpretationRule, bool) {
	r, ok := m[id]
	return r, ok
}

var rules = ruleMap{
	"f5-leiden": {ID: "f5-leiden", Trial: &model.TrialQuery{Condition: "venous thromboembolism"}},
	"dpyd":      {ID: "dpyd", Trial: &model.TrialQuery{Condition: "cancer", Term: "fluoropyrimidine pharmacogenomics"}},
	"hla-b5701": {ID: "hla-b5701"},
	"apoe":      {ID: "apoe", Trial: &model.TrialQuery{Condition: "alzheimer disease"}},
}

func finding(id string, sev model.Severity) model.Finding {
	return model.Finding{RuleID: id, Label: id + " label", Severity: sev}
}

func TestQueriesOnlyForCriticalFindings(t *testing.T) {
	set := model.FindingSet{Findings: []model.Finding{
		finding("dpyd", model.SeverityCritical),
		finding("f5-leiden", model.SeverityCritical),
		finding("hla-b5701", model.SeverityCritical),
		finding("apoe", model.SeverityModerate),
	}}

	got := NewGate(rules).Queries(set)

	assert.Equal(t, []model.TrialGate{
		{RuleID: "dpyd", Label: "dpyd label", Condition: "cancer", Term: "fluoropyrimidine pharmacogenomics"},
		{RuleID: "f5-leiden", Label: "f5-leiden label", Condition: "venous thromboembolism"},
	}, got)
}

func TestNoQueriesWithoutCriticalFindings(t *testing.T) {
	set := model.FindingSet{Findings: []model.Finding{
		finding("apoe", model.SeverityModerate),
		finding("f5-leiden", model.SeverityIndeterminate),
	}}

	assert.Empty(t, NewGate(rules).Queries(set))
	assert.Empty(t, NewGate(rules).Queries(model.FindingSet{}))
}

func TestUnknownRuleIsSkipped(t *testing.T) {
	set := model.FindingSet{Findings: []model.Finding{finding("retired-rule", model.SeverityCritical)}}
	assert.Empty(t, NewGate(rules).Queries(set))
}
