package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/strandline/internal/model"
)

const minimalCatalog = `
version: "test"
build: GRCh37
markers:
  - {rsid: rs1, gene: G1, chromosome: "1", position: 100, reference_alleles: AG, effect_allele: A, panel: wellness}
  - {rsid: rs2, gene: G2, chromosome: "2", position: 200, reference_alleles: CT, effect_allele: T, panel: wellness}
rules:
  - id: one
    label: One
    panel: wellness
    policy: single-marker
    markers: [rs1]
    severity: {default: informational}
`

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "GRCh37", c.Build())
	assert.NotEmpty(t, c.Version())
	assert.GreaterOrEqual(t, len(c.Markers()), 50)
	assert.GreaterOrEqual(t, len(c.Rules()), 30)

	for _, id := range []string{"f5-leiden", "apoe", "mthfr", "nat2", "dpyd", "lactase"} {
		_, ok := c.Rule(id)
		assert.True(t, ok, "rule %s should exist", id)
	}

	nat2, _ := c.Rule("nat2")
	assert.Equal(t, model.PolicyCountRiskAlleles, nat2.Policy)
	assert.True(t, nat2.RequireFullPanel)
	assert.Equal(t, []string{"rs1801280", "rs1799930", "rs1799931"}, nat2.Markers)

	apoe, _ := c.Rule("apoe")
	assert.Equal(t, model.SeverityModerate, apoe.Severity.States["ε3/ε4"])

	f5, ok := c.Marker("rs6025")
	require.True(t, ok)
	assert.Equal(t, model.NewAllelePair('C', 'T'), f5.ReferenceAlleles)
	assert.Equal(t, byte('T'), f5.EffectBase())
	assert.False(t, f5.Palindromic())

	apc, _ := c.Marker("rs1801155")
	assert.True(t, apc.Palindromic())
}

func TestReferencedMarkersAreDistinct(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	refs := c.ReferencedMarkers()
	seen := make(map[string]bool)
	for _, rsid := range refs {
		assert.False(t, seen[rsid], "%s referenced twice", rsid)
		seen[rsid] = true
		_, ok := c.Marker(rsid)
		assert.True(t, ok, "%s not in catalog", rsid)
	}
}

func TestRef(t *testing.T) {
	c, err := Parse([]byte(minimalCatalog))
	require.NoError(t, err)

	assert.Equal(t, model.CatalogRef{Version: "test", Build: "GRCh37", Markers: 2, Rules: 1}, c.Ref())
	assert.Equal(t, []string{"rs1"}, c.ReferencedMarkers())
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown field",
			doc:  strings.Replace(minimalCatalog, "panel: wellness}", "panel: wellness, colour: red}", 1),
		},
		{
			name: "bad rsid",
			doc:  strings.Replace(minimalCatalog, "rsid: rs2,", "rsid: x2,", 1),
		},
		{
			name: "unknown panel",
			doc:  strings.Replace(minimalCatalog, "panel: wellness}", "panel: astrology}", 1),
		},
		{
			name: "non-ACGT reference",
			doc:  strings.Replace(minimalCatalog, "reference_alleles: CT", "reference_alleles: CN", 1),
		},
		{
			name: "unknown policy",
			doc:  strings.Replace(minimalCatalog, "policy: single-marker", "policy: vibes", 1),
		},
		{
			name: "missing version",
			doc:  strings.Replace(minimalCatalog, `version: "test"`, "", 1),
		},
		{
			name: "not yaml",
			doc:  "version: [unclosed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestParseSemanticErrors(t *testing.T) {
	tests := []struct {
		name    string
		rules   string
		wantErr string
	}{
		{
			name: "duplicate rule id",
			rules: `
  - {id: one, label: One, panel: wellness, policy: single-marker, markers: [rs1], severity: {default: informational}}
  - {id: one, label: Again, panel: wellness, policy: single-marker, markers: [rs2], severity: {default: informational}}`,
			wantErr: "duplicate rule_id",
		},
		{
			name: "marker not in catalog",
			rules: `
  - {id: one, label: One, panel: wellness, policy: single-marker, markers: [rs9], severity: {default: informational}}`,
			wantErr: "not in the catalog",
		},
		{
			name: "single rule with two markers",
			rules: `
  - {id: one, label: One, panel: wellness, policy: single-marker, markers: [rs1, rs2], severity: {default: informational}}`,
			wantErr: "exactly one marker",
		},
		{
			name: "single rule not total",
			rules: `
  - id: one
    label: One
    panel: wellness
    policy: single-marker
    markers: [rs1]
    severity: {states: {heterozygous: moderate}}`,
			wantErr: `no severity for state "homozygous-reference"`,
		},
		{
			name: "table arity",
			rules: `
  - id: pair
    label: Pair
    panel: wellness
    policy: all-required-zygosity-threshold
    markers: [rs1, rs2]
    table:
      - {when: [heterozygous], state: odd}
    severity: {default: informational}`,
			wantErr: "1 zygosities for 2 markers",
		},
		{
			name: "table tuple twice",
			rules: `
  - id: pair
    label: Pair
    panel: wellness
    policy: all-required-zygosity-threshold
    markers: [rs1, rs2]
    table:
      - {when: [heterozygous, heterozygous], state: a}
      - {when: [heterozygous, heterozygous], state: b}
    severity: {default: informational}`,
			wantErr: "mapped twice",
		},
		{
			name: "table severity names unreachable state",
			rules: `
  - id: pair
    label: Pair
    panel: wellness
    policy: all-required-zygosity-threshold
    markers: [rs1, rs2]
    table:
      - {when: [heterozygous, heterozygous], state: compound}
    severity: {default: informational, states: {typo: moderate}}`,
			wantErr: `unreachable state "typo"`,
		},
		{
			name: "table without no-finding severity",
			rules: `
  - id: pair
    label: Pair
    panel: wellness
    policy: all-required-zygosity-threshold
    markers: [rs1, rs2]
    table:
      - {when: [heterozygous, heterozygous], state: compound}
    severity: {states: {compound: moderate}}`,
			wantErr: `no severity for state "no significant finding"`,
		},
		{
			name: "count without zero threshold",
			rules: `
  - id: count
    label: Count
    panel: wellness
    policy: count-risk-alleles
    markers: [rs1, rs2]
    severity: {thresholds: [{min: 1, severity: moderate}]}`,
			wantErr: "start at min 0",
		},
		{
			name: "count not monotonic",
			rules: `
  - id: count
    label: Count
    panel: wellness
    policy: count-risk-alleles
    markers: [rs1, rs2]
    severity:
      thresholds:
        - {min: 0, severity: informational}
        - {min: 1, severity: critical}
        - {min: 2, severity: moderate}`,
			wantErr: "severity moderate is lower than critical",
		},
		{
			name: "count threshold out of range",
			rules: `
  - id: count
    label: Count
    panel: wellness
    policy: count-risk-alleles
    markers: [rs1]
    severity: {thresholds: [{min: 0, severity: informational}, {min: 3, severity: moderate}]}`,
			wantErr: "exceeds 2 possible risk alleles",
		},
		{
			name: "require full panel on table rule",
			rules: `
  - id: pair
    label: Pair
    panel: wellness
    policy: all-required-zygosity-threshold
    markers: [rs1, rs2]
    require_full_panel: true
    table:
      - {when: [heterozygous, heterozygous], state: compound}
    severity: {default: informational}`,
			wantErr: "require_full_panel only applies",
		},
	}

	head := minimalCatalog[:strings.Index(minimalCatalog, "rules:")]
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(head + "rules:" + tt.rules + "\n"))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRejectsBadMarkers(t *testing.T) {
	rule := model.InterpretationRule{
		ID:       "one",
		Label:    "One",
		Panel:    model.PanelWellness,
		Policy:   model.PolicySingleMarker,
		Markers:  []string{"rs1"},
		Severity: model.SeverityPolicy{Default: model.SeverityInformational},
	}

	tests := []struct {
		name    string
		markers []model.Marker
		wantErr string
	}{
		{
			name: "effect allele outside reference",
			markers: []model.Marker{
				{RSID: "rs1", Chromosome: "1", ReferenceAlleles: model.NewAllelePair('A', 'G'), EffectAllele: "T", Panel: model.PanelWellness},
			},
			wantErr: "effect allele",
		},
		{
			name: "homozygous reference pair",
			markers: []model.Marker{
				{RSID: "rs1", Chromosome: "1", ReferenceAlleles: model.NewAllelePair('A', 'A'), EffectAllele: "A", Panel: model.PanelWellness},
			},
			wantErr: "two different bases",
		},
		{
			name: "duplicate rsid",
			markers: []model.Marker{
				{RSID: "rs1", Chromosome: "1", ReferenceAlleles: model.NewAllelePair('A', 'G'), EffectAllele: "A", Panel: model.PanelWellness},
				{RSID: "rs1", Chromosome: "1", ReferenceAlleles: model.NewAllelePair('A', 'G'), EffectAllele: "A", Panel: model.PanelWellness},
			},
			wantErr: "duplicate rsid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Meta{Version: "t", Build: "GRCh37"}, tt.markers, []model.InterpretationRule{rule})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalog), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Version())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "GRCh37", def.Build())
}

func TestRulesReturnsCopy(t *testing.T) {
	c, err := Parse([]byte(minimalCatalog))
	require.NoError(t, err)

	rules := c.Rules()
	rules[0].Label = "changed"

	again, _ := c.Rule("one")
	assert.Equal(t, "One", again.Label)
}
