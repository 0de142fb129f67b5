package model

import (
	"runtime"
	"time"
)

// Config holds all strandline configuration
type Config struct {
	Catalog      CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Provider     ProviderConfig    `yaml:"provider" mapstructure:"provider"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// CatalogConfig selects the reference catalog
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty uses the embedded default catalog
}

// ProviderConfig configures the remote strand-truth provider
type ProviderConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per lookup attempt
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig bounds request rate against the provider host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig configures the strand-truth cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend string        `yaml:"backend" mapstructure:"backend"` // memory, disk, sqlite
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig sizes the marker reconciliation pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls report output
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// LoggingConfig controls structured log output
type LoggingConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`       // debug, info, warn, error
	Encoding string `yaml:"encoding" mapstructure:"encoding"` // json or console
}

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendDisk   = "disk"
	CacheBackendSQLite = "sqlite"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Enabled:    true,
			BaseURL:    "https://grch37.rest.ensembl.org",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			UserAgent:  "strandline/0.3 (+https://github.com/ppiankov/strandline)",
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 10, // Ensembl allows 15/s per client
			BurstSize:         5,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: CacheBackendDisk,
			Dir:     defaultCacheDir(),
			TTL:     30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			Dir: "./strandline-reports",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

func defaultCacheDir() string {
	return ".strandline/cache"
}
