// Package resolve turns forward-strand allele calls into zygosity relative to a marker's
// effect allele.
package resolve

import (
	"errors"
	"fmt"

	"github.com/ppiankov/strandline/internal/model"
)

var (
	// ErrMalformedGenotype is returned for calls containing a base outside A, C, G, T
	ErrMalformedGenotype = errors.New("malformed genotype")
	// ErrReferenceMismatch is returned when a call's alleles are not the marker's reference alleles
	ErrReferenceMismatch = errors.New("reference mismatch")
)

// Resolve classifies a reconciled call against the marker's effect allele.
// Ambiguous calls stay ambiguous; they carry no allele evidence.
func Resolve(call model.ReconciledCall, marker model.Marker) (model.Zygosity, error) {
	if call.Ambiguous() {
		return model.ZygosityAmbiguous, nil
	}

	alleles := call.NormalizedAlleles
	if !alleles.Valid() {
		return "", fmt.Errorf("%w: %s has %q", ErrMalformedGenotype, marker.RSID, alleles)
	}
	if !alleles.SubsetOf(marker.ReferenceAlleles) {
		return "", fmt.Errorf("%w: %s call %s is not within reference %s", ErrReferenceMismatch, marker.RSID, alleles, marker.ReferenceAlleles)
	}

	effect := marker.EffectBase()
	if effect == 0 {
		return "", fmt.Errorf("marker %s has no single-base effect allele", marker.RSID)
	}

	switch alleles.Count(effect) {
	case 0:
		return model.ZygosityHomRef, nil
	case 1:
		return model.ZygosityHet, nil
	default:
		return model.ZygosityHomAlt, nil
	}
}

// ResolveCall returns call with zygosity and effect allele count filled in
func ResolveCall(call model.ReconciledCall, marker model.Marker) (model.ReconciledCall, error) {
	z, err := Resolve(call, marker)
	if err != nil {
		return call, err
	}
	call.Zygosity = z
	call.EffectAlleleCount = z.EffectAlleles()
	return call, nil
}
