package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/strandline/internal/catalog"
	"github.com/ppiankov/strandline/internal/classify"
	"github.com/ppiankov/strandline/internal/findings"
	"github.com/ppiankov/strandline/internal/haplotype"
	"github.com/ppiankov/strandline/internal/input"
	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/strand"
	"github.com/ppiankov/strandline/internal/trials"
	"github.com/ppiankov/strandline/internal/worker"
)

// Pipeline orchestrates one interpretation run: reconcile, resolve, aggregate,
// classify, build findings, gate trial queries
type Pipeline struct {
	catalog  *catalog.Catalog
	provider strand.Provider
	gate     *trials.Gate
	workers  int
	logger   *zap.Logger
	closers  []func() error
}

// New creates a pipeline over a validated catalog. provider may be nil, in which
// case palindromic markers are always ambiguous.
func New(cat *catalog.Catalog, provider strand.Provider, workers int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		catalog:  cat,
		provider: provider,
		gate:     trials.NewGate(cat),
		workers:  workers,
		logger:   logger,
	}
}

// Catalog returns the catalog the pipeline evaluates against
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Close releases resources opened by NewFromConfig
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// InterpretFile reads a normalized genotype file and interprets it
func (p *Pipeline) InterpretFile(ctx context.Context, path string) (*model.Report, error) {
	sample, err := input.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("genotypes loaded",
		zap.String("sample", sample.Name),
		zap.Int("kept", sample.Stats.Kept),
		zap.Int("no_calls", sample.Stats.NoCalls),
		zap.Int("duplicates", sample.Stats.Duplicates),
		zap.Int("non_snp", sample.Stats.NonSNP))

	return p.Run(ctx, sample.Name, sample.Genotypes)
}

// markerJob reconciles one observed genotype on the worker pool
type markerJob struct {
	reconciler *strand.Reconciler
	observed   model.ObservedGenotype
	marker     model.Marker
}

type markerResult struct {
	rsid string
	call model.ReconciledCall
	err  error
}

func (r *markerResult) GetError() error { return r.err }

func (j *markerJob) Execute(ctx context.Context) worker.Result {
	call, err := j.reconciler.Reconcile(ctx, j.observed, j.marker)
	return &markerResult{rsid: j.marker.RSID, call: call, err: err}
}

// reconciled is the per-marker outcome of the reconciliation stage
type reconciled struct {
	calls    map[string]model.ReconciledCall // concrete and ambiguous calls
	unusable map[string]model.MarkerIssue
	issues   []model.MarkerIssue
	stats    model.RunStats
}

// Run interprets one sample's genotypes. Marker-level problems never fail the run;
// only cancellation does.
func (p *Pipeline) Run(ctx context.Context, sample string, genotypes map[string]model.ObservedGenotype) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	rec, err := p.reconcile(ctx, genotypes)
	if err != nil {
		return nil, err
	}

	raw, coverage := p.evaluate(rec)
	set := findings.Build(raw)

	report := &model.Report{
		RunID:        uuid.NewString(),
		Sample:       sample,
		GeneratedAt:  time.Now().UTC(),
		Catalog:      p.catalog.Ref(),
		Findings:     set,
		MarkerIssues: rec.issues,
		Coverage:     coverage,
		TrialQueries: p.gate.Queries(set),
		Stats:        rec.stats,
		Principles:   model.DefaultPrinciples(),
	}

	p.logger.Info("interpretation complete",
		zap.String("sample", sample),
		zap.String("run_id", report.RunID),
		zap.Int("findings", set.Len()),
		zap.Int("critical", len(set.CriticalFindings())),
		zap.Int("ambiguous", rec.stats.Ambiguous),
		zap.Int("unusable", rec.stats.Unusable),
		zap.Duration("elapsed", time.Since(start)))

	return report, nil
}

func (p *Pipeline) reconcile(ctx context.Context, genotypes map[string]model.ObservedGenotype) (*reconciled, error) {
	referenced := p.catalog.ReferencedMarkers()
	reconciler := strand.NewReconciler(p.provider, p.logger)

	out := &reconciled{
		calls:    make(map[string]model.ReconciledCall, len(referenced)),
		unusable: make(map[string]model.MarkerIssue),
	}
	out.stats.Observed = len(genotypes)
	out.stats.Referenced = len(referenced)

	pool := worker.NewPool(ctx, p.workers)
	pool.Start()
	for _, rsid := range referenced {
		obs, ok := genotypes[rsid]
		if !ok {
			out.stats.Missing++
			continue
		}
		marker, _ := p.catalog.Marker(rsid)
		if !pool.Submit(&markerJob{reconciler: reconciler, observed: obs, marker: marker}) {
			break
		}
	}
	results := pool.Wait()

	if err := pool.Err(); err != nil {
		p.logger.Info("run cancelled", zap.Int("markers_done", len(results)), zap.Int("markers_skipped", pool.Skipped()))
		return nil, err
	}

	for _, r := range results {
		res := r.(*markerResult)
		if res.err != nil {
			var me *strand.MarkerError
			if !errors.As(res.err, &me) {
				return nil, fmt.Errorf("reconcile %s: %w", res.rsid, res.err)
			}
			issue := me.Issue()
			out.issues = append(out.issues, issue)
			if issue.Kind.Unusable() {
				out.unusable[res.rsid] = issue
				out.stats.Unusable++
				p.logger.Debug("marker unusable", zap.String("rsid", res.rsid),
					zap.String("kind", string(issue.Kind)), zap.String("detail", issue.Detail))
				continue
			}
		}

		out.calls[res.rsid] = res.call
		switch {
		case res.call.Ambiguous():
			out.stats.Ambiguous++
		default:
			out.stats.Reconciled++
			if res.call.StrandFlipped {
				out.stats.Flipped++
			}
		}
	}
	out.stats.ProviderLookups = reconciler.Lookups()

	sort.Slice(out.issues, func(i, j int) bool { return out.issues[i].RSID < out.issues[j].RSID })
	return out, nil
}

// evaluate aggregates and classifies every catalog rule over the reconciled calls
func (p *Pipeline) evaluate(rec *reconciled) ([]findings.Raw, []string) {
	rules := p.catalog.Rules()
	raw := make([]findings.Raw, 0, len(rules))
	var coverage []string

	for _, rule := range rules {
		zygosities := make(map[string]model.Zygosity, len(rule.Markers))
		var used []model.MarkerCall
		var notes []string

		for _, rsid := range rule.Markers {
			if issue, bad := rec.unusable[rsid]; bad {
				notes = append(notes, fmt.Sprintf("marker unusable: %s (%s)", rsid, issue.Detail))
				continue
			}
			call, ok := rec.calls[rsid]
			if !ok {
				continue
			}
			zygosities[rsid] = call.Zygosity
			if call.Ambiguous() {
				notes = append(notes, call.Caveat)
				continue
			}
			used = append(used, model.MarkerCall{
				RSID:          rsid,
				Genotype:      call.NormalizedAlleles,
				Zygosity:      call.Zygosity,
				StrandFlipped: call.StrandFlipped,
			})
			if m, ok := p.catalog.Marker(rsid); ok && m.Note != "" {
				notes = append(notes, m.Note)
			}
		}

		state := haplotype.Aggregate(rule, zygosities)
		severity := classify.Classify(rule, state)

		if len(state.Missing) > 0 {
			verb := "Not assessed"
			if !state.Indeterminate {
				verb = "Partially assessed"
			}
			coverage = append(coverage, fmt.Sprintf("%s: %s (missing %s)", verb, rule.Label, strings.Join(state.Missing, ", ")))
		}

		raw = append(raw, findings.Raw{
			Rule:     rule,
			State:    state,
			Severity: severity,
			Calls:    used,
			Notes:    notes,
		})
	}
	return raw, coverage
}
