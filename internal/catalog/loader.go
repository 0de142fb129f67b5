package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/ppiankov/strandline/internal/model"
)

//go:embed data/default.yaml
var defaultCatalog []byte

// document mirrors the on-disk YAML layout before conversion to model types
type document struct {
	Version string      `yaml:"version"`
	Build   string      `yaml:"build"`
	Markers []markerDoc `yaml:"markers"`
	Rules   []ruleDoc   `yaml:"rules"`
}

type markerDoc struct {
	RSID             string `yaml:"rsid"`
	Gene             string `yaml:"gene"`
	Chromosome       string `yaml:"chromosome"`
	Position         int64  `yaml:"position"`
	ReferenceAlleles string `yaml:"reference_alleles"`
	EffectAllele     string `yaml:"effect_allele"`
	Panel            string `yaml:"panel"`
	Note             string `yaml:"note"`
}

type ruleDoc struct {
	ID               string            `yaml:"id"`
	Label            string            `yaml:"label"`
	Panel            string            `yaml:"panel"`
	Policy           string            `yaml:"policy"`
	Markers          []string          `yaml:"markers"`
	RequireFullPanel bool              `yaml:"require_full_panel"`
	Table            []tableDoc        `yaml:"table"`
	Severity         severityDoc       `yaml:"severity"`
	Caveat           string            `yaml:"caveat"`
	Trial            *model.TrialQuery `yaml:"trial"`
}

type tableDoc struct {
	When  []string `yaml:"when"`
	State string   `yaml:"state"`
}

type severityDoc struct {
	States     map[string]string `yaml:"states"`
	Default    string            `yaml:"default"`
	Thresholds []thresholdDoc    `yaml:"thresholds"`
}

type thresholdDoc struct {
	Min      int    `yaml:"min"`
	Severity string `yaml:"severity"`
	State    string `yaml:"state"`
}

// Default returns the embedded reference catalog
func Default() (*Catalog, error) {
	c, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("load embedded catalog: %w", err)
	}
	return c, nil
}

// LoadFile reads and validates a catalog from disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// Load returns the catalog at path, or the embedded default when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse validates a YAML catalog document structurally (CUE schema) and semantically
func Parse(data []byte) (*Catalog, error) {
	jsonDoc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidCatalog, err)
	}
	if err := checkSchema(jsonDoc); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}

	markers, err := doc.markers()
	if err != nil {
		return nil, err
	}
	return New(Meta{Version: doc.Version, Build: doc.Build}, markers, doc.rules())
}

func (d document) markers() ([]model.Marker, error) {
	out := make([]model.Marker, 0, len(d.Markers))
	for _, m := range d.Markers {
		pair, err := model.ParseAllelePair(m.ReferenceAlleles)
		if err != nil {
			return nil, fmt.Errorf("%w: marker %s: %v", ErrInvalidCatalog, m.RSID, err)
		}
		out = append(out, model.Marker{
			RSID:             m.RSID,
			Gene:             m.Gene,
			Chromosome:       m.Chromosome,
			Position:         m.Position,
			ReferenceAlleles: pair,
			EffectAllele:     m.EffectAllele,
			Panel:            model.Panel(m.Panel),
			Note:             m.Note,
		})
	}
	return out, nil
}

func (d document) rules() []model.InterpretationRule {
	out := make([]model.InterpretationRule, 0, len(d.Rules))
	for _, r := range d.Rules {
		rule := model.InterpretationRule{
			ID:               r.ID,
			Label:            r.Label,
			Panel:            model.Panel(r.Panel),
			Policy:           model.CombinationPolicy(r.Policy),
			Markers:          r.Markers,
			RequireFullPanel: r.RequireFullPanel,
			Caveat:           r.Caveat,
			Trial:            r.Trial,
			Severity: model.SeverityPolicy{
				Default: model.Severity(r.Severity.Default),
			},
		}
		for _, t := range r.Table {
			entry := model.TableEntry{State: t.State}
			for _, z := range t.When {
				entry.When = append(entry.When, model.Zygosity(z))
			}
			rule.Table = append(rule.Table, entry)
		}
		if len(r.Severity.States) > 0 {
			rule.Severity.States = make(map[string]model.Severity, len(r.Severity.States))
			for state, tier := range r.Severity.States {
				rule.Severity.States[state] = model.Severity(tier)
			}
		}
		for _, t := range r.Severity.Thresholds {
			rule.Severity.Thresholds = append(rule.Severity.Thresholds, model.Threshold{
				Min:      t.Min,
				Severity: model.Severity(t.Severity),
				State:    t.State,
			})
		}
		out = append(out, rule)
	}
	return out
}
