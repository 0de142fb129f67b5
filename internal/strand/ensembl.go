package strand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/util"
	"github.com/ppiankov/strandline/internal/worker"
)

const (
	defaultEnsemblURL = "https://grch37.rest.ensembl.org"
	maxResponseBytes  = 1 << 20
)

// ensemblSleepFunc waits between retries (injectable for tests)
var ensemblSleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EnsemblProvider looks up variant alleles from the Ensembl REST variation endpoint
type EnsemblProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *worker.Limiter
	timeout    time.Duration
	maxRetries int
	userAgent  string
	logger     *zap.Logger
}

// NewEnsemblProvider creates a provider from configuration. limiter may be nil.
func NewEnsemblProvider(cfg model.ProviderConfig, limiter *worker.Limiter, logger *zap.Logger) *EnsemblProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultEnsemblURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EnsemblProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		limiter:    limiter,
		timeout:    timeout,
		maxRetries: retries,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

type variationResponse struct {
	Mappings []struct {
		AlleleString string `json:"allele_string"`
		Strand       int    `json:"strand"`
		AssemblyName string `json:"assembly_name"`
	} `json:"mappings"`
}

// attempt is the outcome of one HTTP round trip
type attempt struct {
	truth      Truth
	found      bool
	retryable  bool
	retryAfter time.Duration
	err        error
}

// LookupForwardAlleles implements Provider. 400 and 404 are definitive "no answer";
// network errors, 5xx and 429 are retried with backoff capped at the per-call timeout
// and end in ErrProviderUnavailable. A Retry-After beyond that cap fails at once.
func (p *EnsemblProvider) LookupForwardAlleles(ctx context.Context, rsid string) (Truth, bool, error) {
	endpoint := p.baseURL + "/variation/homo_sapiens/" + url.PathEscape(rsid)

	var last attempt
	for i := 0; i < p.maxRetries; i++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx, endpoint); err != nil {
				return Truth{}, false, fmt.Errorf("%w: rate limiter: %v", ErrProviderUnavailable, err)
			}
		}

		last = p.lookupOnce(ctx, endpoint)
		if !last.retryable {
			if last.err != nil {
				return Truth{}, false, fmt.Errorf("%w: %v", ErrProviderUnavailable, last.err)
			}
			return last.truth, last.found, nil
		}

		if i < p.maxRetries-1 {
			// Waits are bounded by the per-call timeout; in-flight lookups outlive
			// run cancellation.
			if last.retryAfter > p.timeout {
				return Truth{}, false, fmt.Errorf("%w: retry after %v exceeds lookup budget %v: %v",
					ErrProviderUnavailable, last.retryAfter, p.timeout, last.err)
			}
			backoff := time.Duration(1<<uint(i)) * time.Second
			if last.retryAfter > backoff {
				backoff = last.retryAfter
			}
			if backoff > p.timeout {
				backoff = p.timeout
			}
			p.logger.Debug("retrying strand lookup", zap.String("rsid", rsid),
				zap.Int("attempt", i+1), zap.Duration("backoff", backoff), zap.Error(last.err))
			if err := ensemblSleepFunc(ctx, backoff); err != nil {
				return Truth{}, false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			}
		}
	}

	return Truth{}, false, fmt.Errorf("%w: %d attempts: %v", ErrProviderUnavailable, p.maxRetries, last.err)
}

func (p *EnsemblProvider) lookupOnce(ctx context.Context, endpoint string) attempt {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return attempt{err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// The parent context ending is not a transient failure
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return attempt{err: fmt.Errorf("request: %w", err)}
		}
		return attempt{retryable: true, err: fmt.Errorf("request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return attempt{found: false}
	case resp.StatusCode == http.StatusTooManyRequests:
		return attempt{
			retryable:  true,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			err:        fmt.Errorf("rate limited: %s", resp.Status),
		}
	case resp.StatusCode >= 500:
		return attempt{retryable: true, err: fmt.Errorf("server error: %s", resp.Status)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return attempt{err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return attempt{retryable: true, err: fmt.Errorf("read body: %w", err)}
	}

	var parsed variationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return attempt{err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Mappings) == 0 {
		return attempt{found: false}
	}

	m := parsed.Mappings[0]
	alleles, ok := parseAlleleString(m.AlleleString)
	if !ok {
		// Indels and multi-allelic sites give no usable SNP strand statement
		return attempt{found: false}
	}
	strand := Plus
	if m.Strand < 0 {
		strand = Minus
	}
	return attempt{truth: Truth{Alleles: alleles, Strand: strand}, found: true}
}

// parseAlleleString accepts biallelic SNP strings such as "C/T"
func parseAlleleString(s string) (model.AllelePair, bool) {
	parts := strings.Split(strings.ReplaceAll(strings.TrimSpace(s), "|", "/"), "/")
	if len(parts) != 2 {
		return model.AllelePair{}, false
	}
	a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if len(a) != 1 || len(b) != 1 {
		return model.AllelePair{}, false
	}
	pair := model.NewAllelePair(a[0], b[0])
	if !pair.Valid() || pair.Homozygous() {
		return model.AllelePair{}, false
	}
	return pair, true
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
