package catalog

import (
	"errors"

	"github.com/ppiankov/strandline/internal/model"
)

// ErrInvalidCatalog marks any catalog that fails structural or semantic validation.
// It is a configuration-level error: a run must not start with an invalid catalog.
var ErrInvalidCatalog = errors.New("invalid reference catalog")

// Catalog is the validated, immutable set of markers and interpretation rules for a run
type Catalog struct {
	version string
	build   string

	markers     map[string]model.Marker
	markerOrder []string
	rules       []model.InterpretationRule
	ruleIndex   map[string]int
}

// Meta identifies a catalog release
type Meta struct {
	Version string
	Build   string // genome build of reference alleles, e.g. GRCh37
}

// New validates markers and rules and returns an immutable catalog
func New(meta Meta, markers []model.Marker, rules []model.InterpretationRule) (*Catalog, error) {
	if err := validate(meta, markers, rules); err != nil {
		return nil, err
	}

	c := &Catalog{
		version:     meta.Version,
		build:       meta.Build,
		markers:     make(map[string]model.Marker, len(markers)),
		markerOrder: make([]string, 0, len(markers)),
		rules:       make([]model.InterpretationRule, len(rules)),
		ruleIndex:   make(map[string]int, len(rules)),
	}
	for _, m := range markers {
		c.markers[m.RSID] = m
		c.markerOrder = append(c.markerOrder, m.RSID)
	}
	copy(c.rules, rules)
	for i, r := range c.rules {
		c.ruleIndex[r.ID] = i
	}
	return c, nil
}

// Version returns the catalog release version
func (c *Catalog) Version() string { return c.version }

// Build returns the genome build of the catalog's reference alleles
func (c *Catalog) Build() string { return c.build }

// Marker looks up a marker by rsid
func (c *Catalog) Marker(rsid string) (model.Marker, bool) {
	m, ok := c.markers[rsid]
	return m, ok
}

// Markers returns all markers in catalog order
func (c *Catalog) Markers() []model.Marker {
	out := make([]model.Marker, 0, len(c.markerOrder))
	for _, rsid := range c.markerOrder {
		out = append(out, c.markers[rsid])
	}
	return out
}

// Rules returns all rules in catalog order
func (c *Catalog) Rules() []model.InterpretationRule {
	out := make([]model.InterpretationRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Rule looks up a rule by id
func (c *Catalog) Rule(id string) (model.InterpretationRule, bool) {
	i, ok := c.ruleIndex[id]
	if !ok {
		return model.InterpretationRule{}, false
	}
	return c.rules[i], true
}

// ReferencedMarkers returns the distinct rsids used by any rule, in order of first use.
// Markers shared between rules appear once, so each is reconciled exactly once per run.
func (c *Catalog) ReferencedMarkers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.rules {
		for _, rsid := range r.Markers {
			if !seen[rsid] {
				seen[rsid] = true
				out = append(out, rsid)
			}
		}
	}
	return out
}

// Ref summarizes the catalog for reports
func (c *Catalog) Ref() model.CatalogRef {
	return model.CatalogRef{
		Version: c.version,
		Build:   c.build,
		Markers: len(c.markers),
		Rules:   len(c.rules),
	}
}
