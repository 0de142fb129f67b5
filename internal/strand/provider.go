package strand

import (
	"context"
	"sync"

	"github.com/ppiankov/strandline/internal/model"
)

// Orientation is the strand an allele statement is written on, relative to the
// reference assembly's forward strand
type Orientation int

const (
	Plus  Orientation = 1
	Minus Orientation = -1
)

// Truth is an authoritative allele statement for one rsid. Strand is the orientation
// of the provider's own mapping, recorded for the cache and reports.
type Truth struct {
	Alleles model.AllelePair `json:"alleles"`
	Strand  Orientation      `json:"strand"`
}

// Provider answers forward-strand allele questions for palindromic markers.
// found=false with a nil error is a definitive "no answer"; a non-nil error means
// the source itself could not be reached.
type Provider interface {
	LookupForwardAlleles(ctx context.Context, rsid string) (truth Truth, found bool, err error)
}

// StaticProvider answers from a fixed in-memory table
type StaticProvider struct {
	mu      sync.RWMutex
	answers map[string]Truth
}

// NewStaticProvider creates a provider that knows only the given answers
func NewStaticProvider(answers map[string]Truth) *StaticProvider {
	copied := make(map[string]Truth, len(answers))
	for rsid, t := range answers {
		copied[rsid] = t
	}
	return &StaticProvider{answers: copied}
}

// Set records an answer
func (p *StaticProvider) Set(rsid string, truth Truth) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers[rsid] = truth
}

// LookupForwardAlleles implements Provider
func (p *StaticProvider) LookupForwardAlleles(ctx context.Context, rsid string) (Truth, bool, error) {
	if err := ctx.Err(); err != nil {
		return Truth{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.answers[rsid]
	return t, ok, nil
}
