package strand

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/strandline/internal/cache"
)

const cacheNamespace = "strand"

// cacheEntry is the persisted shape of one strand-truth answer
type cacheEntry struct {
	RSID      string    `json:"rsid"`
	Alleles   string    `json:"alleles,omitempty"`
	Strand    int       `json:"strand,omitempty"`
	Found     bool      `json:"found"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CachedProvider answers from a cache, falling back to a source provider.
// Concurrent lookups for the same rsid share one in-flight source request.
// Answers and definitive no-answers are cached; source failures are not.
type CachedProvider struct {
	source Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps source with c
func NewCachedProvider(source Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{source: source, cache: c, ttl: ttl, logger: logger}
}

// NewCacheOnlyProvider answers purely from c; a miss is a definitive no-answer
func NewCacheOnlyProvider(c cache.Cache) *CachedProvider {
	return NewCachedProvider(nil, c, 0, nil)
}

type lookupResult struct {
	truth Truth
	found bool
}

// LookupForwardAlleles implements Provider
func (p *CachedProvider) LookupForwardAlleles(ctx context.Context, rsid string) (Truth, bool, error) {
	key := cache.Key(cacheNamespace, rsid)

	if truth, found, ok := p.get(key); ok {
		p.hits.Add(1)
		return truth, found, nil
	}
	if p.source == nil {
		return Truth{}, false, nil
	}

	ch := p.group.DoChan(rsid, func() (any, error) {
		// A caller that lost the race may find the answer already stored
		if truth, found, ok := p.get(key); ok {
			return lookupResult{truth: truth, found: found}, nil
		}

		p.misses.Add(1)
		truth, found, err := p.source.LookupForwardAlleles(ctx, rsid)
		if err != nil {
			return nil, err
		}
		p.put(key, rsid, truth, found)
		return lookupResult{truth: truth, found: found}, nil
	})

	select {
	case <-ctx.Done():
		return Truth{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Truth{}, false, res.Err
		}
		r := res.Val.(lookupResult)
		return r.truth, r.found, nil
	}
}

// Stats reports cache hits and source lookups
func (p *CachedProvider) Stats() (hits, misses int) {
	return int(p.hits.Load()), int(p.misses.Load())
}

// Seed stores an answer directly, for offline cache preparation and tests
func (p *CachedProvider) Seed(rsid string, truth Truth, found bool) {
	p.put(cache.Key(cacheNamespace, rsid), rsid, truth, found)
}

func (p *CachedProvider) get(key string) (Truth, bool, bool) {
	data, ok := p.cache.Get(key)
	if !ok {
		return Truth{}, false, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		p.logger.Debug("dropping unreadable strand cache entry", zap.String("key", key), zap.Error(err))
		_ = p.cache.Delete(key)
		return Truth{}, false, false
	}
	if !entry.Found {
		return Truth{}, false, true
	}

	alleles, ok := parseAlleleString(entry.Alleles)
	if !ok {
		_ = p.cache.Delete(key)
		return Truth{}, false, false
	}
	strand := Plus
	if entry.Strand < 0 {
		strand = Minus
	}
	return Truth{Alleles: alleles, Strand: strand}, true, true
}

func (p *CachedProvider) put(key, rsid string, truth Truth, found bool) {
	entry := cacheEntry{RSID: rsid, Found: found, FetchedAt: time.Now().UTC()}
	if found {
		entry.Alleles = string(truth.Alleles.A) + "/" + string(truth.Alleles.B)
		entry.Strand = int(truth.Strand)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := p.cache.Set(key, data, p.ttl); err != nil {
		p.logger.Warn("strand cache write failed", zap.String("rsid", rsid), zap.Error(err))
	}
}
