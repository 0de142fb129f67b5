package model

import (
	"fmt"
	"strings"
)

// AllelePair is an unordered pair of bases, stored sorted so "GA" and "AG" compare equal
type AllelePair struct {
	A byte
	B byte
}

// NewAllelePair builds a canonical (upper-case, sorted) pair
func NewAllelePair(a, b byte) AllelePair {
	a, b = upper(a), upper(b)
	if a > b {
		a, b = b, a
	}
	return AllelePair{A: a, B: b}
}

// ParseAllelePair accepts "AG", "A/G", "A|G" and "A G"
func ParseAllelePair(s string) (AllelePair, error) {
	cleaned := strings.NewReplacer("/", "", "|", "", " ", "", "\t", "").Replace(strings.TrimSpace(s))
	if len(cleaned) != 2 {
		return AllelePair{}, fmt.Errorf("allele pair %q: want exactly two bases", s)
	}
	return NewAllelePair(cleaned[0], cleaned[1]), nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// String renders the pair as two adjacent bases ("AG")
func (p AllelePair) String() string {
	if p.IsZero() {
		return ""
	}
	return string([]byte{p.A, p.B})
}

// IsZero reports whether the pair is unset
func (p AllelePair) IsZero() bool {
	return p.A == 0 && p.B == 0
}

// Valid reports whether both bases are A, C, G or T
func (p AllelePair) Valid() bool {
	return IsBase(p.A) && IsBase(p.B)
}

// Homozygous reports whether both bases are identical
func (p AllelePair) Homozygous() bool {
	return p.A == p.B
}

// Has reports whether base appears in the pair
func (p AllelePair) Has(base byte) bool {
	base = upper(base)
	return p.A == base || p.B == base
}

// Count returns how many copies of base the pair carries (0, 1 or 2)
func (p AllelePair) Count(base byte) int {
	base = upper(base)
	n := 0
	if p.A == base {
		n++
	}
	if p.B == base {
		n++
	}
	return n
}

// SubsetOf reports whether every base of p appears in q
func (p AllelePair) SubsetOf(q AllelePair) bool {
	return q.Has(p.A) && q.Has(p.B)
}

// Complement replaces each base by its Watson-Crick partner. Non-ACGT bases are kept
// as-is; callers check Valid first.
func (p AllelePair) Complement() AllelePair {
	return NewAllelePair(ComplementBase(p.A), ComplementBase(p.B))
}

// Palindromic reports whether the pair is {A,T} or {C,G}, where the complement of the
// pair is the pair itself and strand cannot be read from allele identity
func (p AllelePair) Palindromic() bool {
	if p.Homozygous() || !p.Valid() {
		return false
	}
	return ComplementBase(p.A) == p.B
}

// MarshalText implements encoding.TextMarshaler
func (p AllelePair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *AllelePair) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = AllelePair{}
		return nil
	}
	parsed, err := ParseAllelePair(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

var complementBase = map[byte]byte{
	'A': 'T', 'T': 'A',
	'C': 'G', 'G': 'C',
}

// ComplementBase returns the complementary base, or b unchanged if it is not A/C/G/T
func ComplementBase(b byte) byte {
	if c, ok := complementBase[upper(b)]; ok {
		return c
	}
	return b
}

// IsBase reports whether b is one of A, C, G, T
func IsBase(b byte) bool {
	_, ok := complementBase[upper(b)]
	return ok
}

// ObservedGenotype is a genotype call as read from the array, on an unknown strand
type ObservedGenotype struct {
	RSID              string     `json:"rsid"`
	Chromosome        string     `json:"chromosome,omitempty"`
	Position          int64      `json:"position,omitempty"`
	Alleles           AllelePair `json:"alleles"`
	SourceStrandKnown bool       `json:"source_strand_known"`
}

// Zygosity describes how many copies of a marker's effect allele a call carries
type Zygosity string

const (
	ZygosityHomRef    Zygosity = "homozygous-reference"
	ZygosityHet       Zygosity = "heterozygous"
	ZygosityHomAlt    Zygosity = "homozygous-alt"
	ZygosityAmbiguous Zygosity = "ambiguous" // palindromic marker, strand truth unavailable
)

// Valid reports whether z is one of the declared zygosity states
func (z Zygosity) Valid() bool {
	switch z {
	case ZygosityHomRef, ZygosityHet, ZygosityHomAlt, ZygosityAmbiguous:
		return true
	}
	return false
}

// Determined reports whether z is a concrete call usable by rules
func (z Zygosity) Determined() bool {
	return z == ZygosityHomRef || z == ZygosityHet || z == ZygosityHomAlt
}

// EffectAlleles returns the effect allele copy count implied by a determined zygosity
func (z Zygosity) EffectAlleles() int {
	switch z {
	case ZygosityHet:
		return 1
	case ZygosityHomAlt:
		return 2
	default:
		return 0
	}
}

// StrandSource records how strand orientation was decided
type StrandSource string

const (
	StrandFromAlleles  StrandSource = "allele-identity"
	StrandFromProvider StrandSource = "truth-provider"
	StrandUnresolved   StrandSource = "unresolved"
)

// ReconciledCall is an observed genotype normalized to the forward strand
type ReconciledCall struct {
	RSID              string       `json:"rsid"`
	Observed          AllelePair   `json:"observed"`
	NormalizedAlleles AllelePair   `json:"normalized_alleles"`
	StrandFlipped     bool         `json:"strand_flipped"`
	StrandSource      StrandSource `json:"strand_source"`
	Zygosity          Zygosity     `json:"zygosity,omitempty"`
	EffectAlleleCount int          `json:"effect_allele_count"`
	Caveat            string       `json:"caveat,omitempty"`
}

// Ambiguous reports whether the call could not be placed on a strand
func (c ReconciledCall) Ambiguous() bool {
	return c.Zygosity == ZygosityAmbiguous
}
