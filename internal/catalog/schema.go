package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaSource is the structural contract for catalog documents. Definitions are closed,
// so unknown keys are rejected along with missing fields and out-of-range enums.
const schemaSource = `
#Panel: "wellness" | "pharmacogenomic" | "disease-risk" | "clotting" |
	"hereditary-cancer" | "cardiometabolic" | "methylation" | "appearance"

#Tier: "informational" | "moderate" | "critical"

#Zygosity: "homozygous-reference" | "heterozygous" | "homozygous-alt"

#RSID: =~"^rs[0-9]+$"

#Marker: {
	rsid:              #RSID
	gene?:             string
	chromosome:        =~"^([1-9]|1[0-9]|2[0-2]|X|Y|MT)$"
	position?:         int & >0
	reference_alleles: =~"^[ACGT]{2}$"
	effect_allele:     =~"^[ACGT]$"
	panel:             #Panel
	note?:             string
}

#TableEntry: {
	when: [#Zygosity, ...#Zygosity]
	state: string & !=""
}

#Threshold: {
	min:      int & >=0
	severity: #Tier
	state?:   string
}

#Severity: {
	states?: [string]: #Tier
	default?: #Tier
	thresholds?: [...#Threshold]
}

#Trial: {
	condition: string & !=""
	term?:     string
}

#Rule: {
	id:                  =~"^[a-z0-9][a-z0-9_.-]*$"
	label:               string & !=""
	panel:               #Panel
	policy:              "single-marker" | "all-required-zygosity-threshold" | "count-risk-alleles"
	markers: [#RSID, ...#RSID]
	require_full_panel?: bool
	table?: [...#TableEntry]
	severity:            #Severity
	caveat?:             string
	trial?:              #Trial
}

#Catalog: {
	version: string & !=""
	build:   "GRCh37" | "GRCh38"
	markers: [#Marker, ...#Marker]
	rules: [#Rule, ...#Rule]
}
`

// checkSchema validates a JSON rendering of a catalog document against #Catalog
func checkSchema(doc []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Catalog"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup catalog definition: %w", err)
	}

	value := ctx.CompileBytes(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, cueerrors.Details(err, nil))
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, cueerrors.Details(err, nil))
	}
	return nil
}
