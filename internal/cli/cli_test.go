package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/strandline/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	cfg, err := loadConfig()
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.Provider.Timeout, cfg.Provider.Timeout)
	assert.Equal(t, def.Cache.TTL, cfg.Cache.TTL)
	assert.Equal(t, def.RateLimiting.RequestsPerSecond, cfg.RateLimiting.RequestsPerSecond)
	assert.Equal(t, def.Cache.Backend, cfg.Cache.Backend)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	viper.SetEnvPrefix("STRANDLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	t.Setenv("STRANDLINE_PROVIDER_ENABLED", "false")
	t.Setenv("STRANDLINE_PROVIDER_TIMEOUT", "3s")
	t.Setenv("STRANDLINE_CACHE_BACKEND", "sqlite")
	t.Setenv("STRANDLINE_CONCURRENCY_WORKERS", "3")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Provider.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, model.CacheBackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.Concurrency.Workers)
}

func TestCatalogValidateCommand(t *testing.T) {
	out, err := execute(t, "catalog", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "embedded catalog valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: x\n"), 0o644))
	_, err = execute(t, "catalog", "validate", bad)
	assert.Error(t, err)
}

func TestCatalogRulesCommand(t *testing.T) {
	out, err := execute(t, "catalog", "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "f5-leiden")
	assert.Contains(t, out, "count-risk-alleles")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "strandline v"+Version+"\n", out)
}

func TestInterpretCommandOffline(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "bob.tsv")
	require.NoError(t, os.WriteFile(sample, []byte("rs6025\t1\t169519049\tT\tT\n"), 0o644))
	report := filepath.Join(dir, "reports", "bob.json")

	_, err := execute(t, "interpret", sample, "--offline", "--no-cache", "--json", report)
	require.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "bob", decoded.Sample)
	require.NotEmpty(t, decoded.Findings.Findings)
	assert.Equal(t, "f5-leiden", decoded.Findings.Findings[0].RuleID)
	assert.Equal(t, model.SeverityCritical, decoded.Findings.Findings[0].Severity)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b-c", sanitizeFilename("a/b c"))
	assert.Equal(t, "sample", sanitizeFilename(".."))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 300)), 100)
}
