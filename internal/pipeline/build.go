package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/strandline/internal/cache"
	"github.com/ppiankov/strandline/internal/catalog"
	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/strand"
	"github.com/ppiankov/strandline/internal/worker"
)

// NewFromConfig loads the configured catalog and assembles the strand-truth
// provider chain: Ensembl behind the cache when the provider is enabled, the
// cache alone when it is not (offline mode). Callers must Close the pipeline.
func NewFromConfig(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Debug("catalog loaded",
		zap.String("version", cat.Version()),
		zap.String("build", cat.Build()),
		zap.Int("markers", len(cat.Markers())),
		zap.Int("rules", len(cat.Rules())))

	var closers []func() error
	var c cache.Cache
	if cfg.Cache.Enabled {
		c, err = cache.New(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		closers = append(closers, c.Close)
	}

	var provider strand.Provider
	switch {
	case cfg.Provider.Enabled:
		limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
		ensembl := strand.NewEnsemblProvider(cfg.Provider, limiter, logger)
		if c != nil {
			provider = strand.NewCachedProvider(ensembl, c, cfg.Cache.TTL, logger)
		} else {
			provider = ensembl
		}
	case c != nil:
		logger.Info("strand provider disabled; palindromic markers resolve from cache only")
		provider = strand.NewCacheOnlyProvider(c)
	default:
		logger.Warn("strand provider and cache disabled; palindromic markers will be ambiguous")
	}

	p := New(cat, provider, cfg.Concurrency.Workers, logger)
	p.closers = closers
	return p, nil
}
