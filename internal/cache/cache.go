package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ppiankov/strandline/internal/model"
)

// SQLiteFile is the database file name of the sqlite backend inside the cache dir
const SQLiteFile = "strand.db"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Close() error
}

// Key generates a versioned cache key for an identifier within a namespace
func Key(namespace, id string) string {
	hash := sha256.Sum256([]byte(namespace + "\x00" + id))
	return "strandline-v1-" + namespace + "-" + hex.EncodeToString(hash[:16])
}

// New builds the cache described by cfg. Every backend is fronted by a per-run
// memory layer; disk and sqlite add persistence across runs.
func New(cfg model.CacheConfig) (Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	// No janitor: the memory layer lives for one run and expiry is checked on read
	memory := NewMemoryCache(ttl, 0)

	switch cfg.Backend {
	case "", model.CacheBackendMemory:
		return memory, nil
	case model.CacheBackendDisk:
		return NewLayeredCache(memory, NewDiskCache(cfg.Dir, ttl)), nil
	case model.CacheBackendSQLite:
		store, err := NewSQLiteCache(filepath.Join(cfg.Dir, SQLiteFile), ttl)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(memory, store), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
