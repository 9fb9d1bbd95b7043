package scoring

import (
	"time"

	"github.com/liamcoop/ivfsuccess/formulas"
)

// RecordCache holds parsed coefficient records by selector key.
// Implementations other than the in-memory one can be swapped in.
type RecordCache interface {
	// Get returns the cached record, false on a miss or expired entry
	Get(key formulas.SelectorKey) (formulas.CoefficientRecord, bool)

	// Set stores a parsed record
	Set(key formulas.SelectorKey, rec formulas.CoefficientRecord)

	// Invalidate drops every entry
	Invalidate()

	// Len returns the number of live entries
	Len() int
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the lifetime of a cached record.
	// Zero keeps records until Invalidate.
	TTL time.Duration
}

// DefaultCacheConfig never expires entries; the table is immutable
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
