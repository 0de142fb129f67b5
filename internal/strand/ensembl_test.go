package strand

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/strandline/internal/model"
	"github.com/ppiankov/strandline/internal/worker"
)

// recordSleeps replaces the retry sleep with a recorder for the test's duration
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := ensemblSleepFunc
	ensemblSleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	t.Cleanup(func() { ensemblSleepFunc = orig })
	return &slept
}

func newTestProvider(url string) *EnsemblProvider {
	return NewEnsemblProvider(model.ProviderConfig{
		BaseURL:    url,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		UserAgent:  "strandline-test",
	}, worker.NewLimiter(1000, 100), nil)
}

func TestEnsemblLookup(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"rs1801155","mappings":[{"allele_string":"T/A","strand":1,"assembly_name":"GRCh37"}]}`)
	}))
	defer server.Close()

	truth, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1801155")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, Truth{Alleles: pair("AT"), Strand: Plus}, truth)
	assert.Equal(t, "/variation/homo_sapiens/rs1801155", gotPath)
	assert.Equal(t, "strandline-test", gotUA)
}

func TestEnsemblMinusStrand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mappings":[{"allele_string":"G/C","strand":-1}]}`)
	}))
	defer server.Close()

	truth, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Minus, truth.Strand)
	assert.Equal(t, pair("CG"), truth.Alleles)
}

func TestEnsemblNoAnswer(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"rs0 not found"}`},
		{"bad request", http.StatusBadRequest, `{"error":"bad id"}`},
		{"no mappings", http.StatusOK, `{"mappings":[]}`},
		{"multi-allelic", http.StatusOK, `{"mappings":[{"allele_string":"C/A/T","strand":1}]}`},
		{"indel", http.StatusOK, `{"mappings":[{"allele_string":"-/AT","strand":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slept := recordSleeps(t)
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs0")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Equal(t, int32(1), requests.Load(), "data answers are not retried")
			assert.Empty(t, *slept)
		})
	}
}

func TestEnsemblRetriesServerErrors(t *testing.T) {
	slept := recordSleeps(t)
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, found)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestEnsemblRecoversAfterTransientError(t *testing.T) {
	recordSleeps(t)
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"mappings":[{"allele_string":"C/G","strand":1}]}`)
	}))
	defer server.Close()

	truth, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, pair("CG"), truth.Alleles)
	assert.Equal(t, int32(2), requests.Load())
}

func TestEnsemblHonorsRetryAfter(t *testing.T) {
	slept := recordSleeps(t)
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"mappings":[{"allele_string":"A/G","strand":1}]}`)
	}))
	defer server.Close()

	_, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestEnsemblNonRetryableStatus(t *testing.T) {
	slept := recordSleeps(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, _, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, *slept)
}

func TestEnsemblRetryAfterBeyondBudget(t *testing.T) {
	slept := recordSleeps(t)
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Retry-After", "86400")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, found, err := newTestProvider(server.URL).LookupForwardAlleles(context.Background(), "rs1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.False(t, found)
	assert.Equal(t, int32(1), requests.Load())
	assert.Empty(t, *slept)
}

func TestEnsemblBackoffCappedAtTimeout(t *testing.T) {
	slept := recordSleeps(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewEnsemblProvider(model.ProviderConfig{
		BaseURL:    server.URL,
		Timeout:    3 * time.Second,
		MaxRetries: 5,
	}, nil, nil)

	_, _, err := p.LookupForwardAlleles(context.Background(), "rs1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, *slept)
}

func TestEnsemblCancelledContext(t *testing.T) {
	recordSleeps(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mappings":[{"allele_string":"A/G","strand":1}]}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, found, err := newTestProvider(server.URL).LookupForwardAlleles(ctx, "rs1")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestParseAlleleString(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"C/T", "CT", true},
		{"T/C", "CT", true},
		{"a|g", "AG", true},
		{"C/A/T", "", false},
		{"-/A", "", false},
		{"A/A", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseAlleleString(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got.String(), tt.in)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	assert.Greater(t, parseRetryAfter(future), 30*time.Second)
}
