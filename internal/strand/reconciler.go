// Package strand places array genotype calls on the reference forward strand.
package strand

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/resolve"
)

// Reconciler normalizes observed genotypes to the catalog's forward strand
type Reconciler struct {
	provider Provider
	logger   *zap.Logger
	lookups  atomic.Int64
}

// NewReconciler creates a reconciler. A nil provider never answers, so palindromic
// markers always come back ambiguous.
func NewReconciler(provider Provider, logger *zap.Logger) *Reconciler {
	if provider == nil {
		provider = NewStaticProvider(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{provider: provider, logger: logger}
}

// Lookups returns how many strand-truth queries this reconciler has issued
func (r *Reconciler) Lookups() int {
	return int(r.lookups.Load())
}

// Reconcile normalizes one observed genotype against its catalog marker and resolves
// zygosity. The returned error, when non-nil, is always a *MarkerError:
// mismatch and malformed calls return a zero call; unresolved and unavailable strand
// lookups return a usable ambiguous call alongside the error.
func (r *Reconciler) Reconcile(ctx context.Context, observed model.ObservedGenotype, marker model.Marker) (model.ReconciledCall, error) {
	obs := observed.Alleles
	ref := marker.ReferenceAlleles
	call := model.ReconciledCall{RSID: marker.RSID, Observed: obs}

	if !obs.Valid() {
		return model.ReconciledCall{}, markerErr(marker.RSID, ErrMalformedGenotype,
			"observed %q contains a base outside A, C, G, T", obs)
	}

	switch {
	case marker.Palindromic() && obs.SubsetOf(ref):
		// Observed pair and its complement both fit the reference; only a truth source can orient it
		return r.reconcilePalindromic(ctx, call, marker)

	case obs.SubsetOf(ref):
		call.NormalizedAlleles = obs
		call.StrandSource = model.StrandFromAlleles

	case obs.Complement().SubsetOf(ref):
		call.NormalizedAlleles = obs.Complement()
		call.StrandFlipped = true
		call.StrandSource = model.StrandFromAlleles
		r.logger.Debug("strand flipped", zap.String("rsid", marker.RSID),
			zap.Stringer("observed", obs), zap.Stringer("normalized", call.NormalizedAlleles))

	default:
		return model.ReconciledCall{}, markerErr(marker.RSID, ErrReferenceMismatch,
			"observed %s (complement %s) does not fit reference %s", obs, obs.Complement(), ref)
	}

	return r.resolve(call, marker)
}

func (r *Reconciler) reconcilePalindromic(ctx context.Context, call model.ReconciledCall, marker model.Marker) (model.ReconciledCall, error) {
	r.lookups.Add(1)
	truth, found, err := r.provider.LookupForwardAlleles(ctx, marker.RSID)

	switch {
	case err != nil:
		r.logger.Warn("strand provider unavailable; re-run with connectivity to resolve",
			zap.String("rsid", marker.RSID), zap.Error(err))
		return ambiguous(call, marker), markerErr(marker.RSID, ErrProviderUnavailable, "%v", err)

	case !found:
		r.logger.Debug("no strand answer", zap.String("rsid", marker.RSID))
		return ambiguous(call, marker), markerErr(marker.RSID, ErrStrandUnresolved,
			"palindromic %s marker and no strand answer from provider", marker.ReferenceAlleles)

	case truth.Alleles != marker.ReferenceAlleles:
		r.logger.Debug("strand answer disagrees with catalog", zap.String("rsid", marker.RSID),
			zap.Stringer("provider", truth.Alleles), zap.Stringer("reference", marker.ReferenceAlleles))
		return ambiguous(call, marker), markerErr(marker.RSID, ErrStrandUnresolved,
			"provider alleles %s disagree with reference %s", truth.Alleles, marker.ReferenceAlleles)
	}

	// A matching answer confirms the forward reading. The mapping strand describes the
	// provider's record, not the array, so it never flips a palindromic call.
	call.StrandSource = model.StrandFromProvider
	call.NormalizedAlleles = call.Observed
	return r.resolve(call, marker)
}

func (r *Reconciler) resolve(call model.ReconciledCall, marker model.Marker) (model.ReconciledCall, error) {
	resolved, err := resolve.ResolveCall(call, marker)
	if err != nil {
		var target error = ErrMalformedGenotype
		if errors.Is(err, ErrReferenceMismatch) {
			target = ErrReferenceMismatch
		}
		return model.ReconciledCall{}, &MarkerError{RSID: marker.RSID, Err: target, Detail: err.Error()}
	}
	return resolved, nil
}

func ambiguous(call model.ReconciledCall, marker model.Marker) model.ReconciledCall {
	call.NormalizedAlleles = model.AllelePair{}
	call.StrandFlipped = false
	call.StrandSource = model.StrandUnresolved
	call.Zygosity = model.ZygosityAmbiguous
	call.EffectAlleleCount = 0
	call.Caveat = fmt.Sprintf("%s is a palindromic %s/%s marker and its strand could not be confirmed; the call was not used",
		marker.RSID, string(marker.ReferenceAlleles.A), string(marker.ReferenceAlleles.B))
	return call
}
