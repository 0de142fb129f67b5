package findings

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/strandline/internal/model"
)

func raw(id string, panel model.Panel, sev model.Severity, state string) Raw {
	return Raw{
		Rule:     model.InterpretationRule{ID: id, Label: id + " label", Panel: panel, Caveat: id + " caveat"},
		State:    model.AggregateState{Label: state},
		Severity: sev,
		Calls:    []model.MarkerCall{{RSID: "rs" + id, Zygosity: model.ZygosityHet}},
	}
}

func sample() []Raw {
	return []Raw{
		raw("lactase", model.PanelWellness, model.SeverityInformational, "heterozygous"),
		raw("nat2", model.PanelPharmacogenomic, model.SeverityIndeterminate, model.StateIndeterminate),
		raw("apoe", model.PanelDiseaseRisk, model.SeverityModerate, "ε3/ε4"),
		raw("f5-leiden", model.PanelClotting, model.SeverityCritical, "heterozygous"),
		raw("dpyd", model.PanelPharmacogenomic, model.SeverityCritical, "DPYD variant carrier"),
		raw("actn3", model.PanelWellness, model.SeverityInformational, "homozygous-alt"),
	}
}

func ids(set model.FindingSet) []string {
	var out []string
	for _, f := range set.Findings {
		out = append(out, f.RuleID)
	}
	return out
}

func TestBuildOrdering(t *testing.T) {
	set := Build(sample())

	assert.Equal(t, []string{"dpyd", "f5-leiden", "apoe", "nat2", "actn3", "lactase"}, ids(set))
}

func TestBuildIsIdempotent(t *testing.T) {
	in := sample()
	first := Build(in)
	second := Build(in)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Build not idempotent (-first +second):\n%s", diff)
	}

	// Input order does not matter either
	reversed := make([]Raw, len(in))
	for i := range in {
		reversed[len(in)-1-i] = in[i]
	}
	if diff := cmp.Diff(first, Build(reversed)); diff != "" {
		t.Errorf("Build depends on input order (-want +got):\n%s", diff)
	}
}

func TestBuildDeduplicatesKeepingLatest(t *testing.T) {
	in := sample()
	in = append(in, raw("apoe", model.PanelDiseaseRisk, model.SeverityInformational, "ε3/ε3"))

	set := Build(in)
	require.Equal(t, 6, set.Len())

	var apoe model.Finding
	for _, f := range set.Findings {
		if f.RuleID == "apoe" {
			apoe = f
		}
	}
	assert.Equal(t, "ε3/ε3", apoe.AggregateState)
	assert.Equal(t, model.SeverityInformational, apoe.Severity)
}

func TestCriticalFindingsIffCritical(t *testing.T) {
	set := Build(sample())
	critical := set.CriticalFindings()
	require.Len(t, critical, 2)
	for _, f := range critical {
		assert.Equal(t, model.SeverityCritical, f.Severity)
	}

	var noCritical []Raw
	for _, r := range sample() {
		if r.Severity != model.SeverityCritical {
			noCritical = append(noCritical, r)
		}
	}
	assert.Empty(t, Build(noCritical).CriticalFindings())
	assert.Empty(t, Build(nil).CriticalFindings())
}

func TestFindingCarriesRuleFields(t *testing.T) {
	set := Build([]Raw{raw("f5-leiden", model.PanelClotting, model.SeverityCritical, "heterozygous")})
	f := set.Findings[0]

	assert.Equal(t, "f5-leiden label", f.Label)
	assert.Equal(t, "f5-leiden caveat", f.CaveatText)
	assert.Equal(t, model.PanelClotting, f.Panel)
	assert.Equal(t, []model.MarkerCall{{RSID: "rsf5-leiden", Zygosity: model.ZygosityHet}}, f.MarkersUsed)
}

func TestFindingSetJSONIsOrderedList(t *testing.T) {
	set := Build(sample())

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 6)
	assert.Equal(t, "dpyd", records[0]["rule_id"])
	for _, key := range []string{"rule_id", "label", "panel", "severity", "aggregate_state", "markers_used"} {
		assert.Contains(t, records[0], key)
	}

	empty, err := json.Marshal(Build(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
