package mmu

import "fmt"

// Config holds the geometry of the translation structures.
type Config struct {
	// TLB0Sets is the number of sets in the fixed 4 KiB array.
	// Default: 128 (e500v2, 512 entries).
	TLB0Sets int `json:"tlb0_sets"`

	// TLB0Ways is the associativity of the fixed array. Default: 4.
	TLB0Ways int `json:"tlb0_ways"`

	// TLB1Entries is the size of the fully associative variable-page
	// array. Default: 16.
	TLB1Entries int `json:"tlb1_entries"`

	// CacheSets is the number of sets in the translation cache.
	// Default: 16.
	CacheSets int `json:"cache_sets"`

	// CacheWays is the associativity of the translation cache.
	// Default: 8.
	CacheWays int `json:"cache_ways"`
}

// DefaultConfig returns the e500v2 geometry.
func DefaultConfig() Config {
	return Config{
		TLB0Sets:    128,
		TLB0Ways:    4,
		TLB1Entries: 16,
		CacheSets:   16,
		CacheWays:   8,
	}
}

// Validate checks the geometry.
func (c Config) Validate() error {
	if c.TLB0Sets <= 0 || c.TLB0Sets&(c.TLB0Sets-1) != 0 {
		return fmt.Errorf("tlb0_sets must be a positive power of two")
	}
	if c.TLB0Ways <= 0 {
		return fmt.Errorf("tlb0_ways must be > 0")
	}
	if c.TLB1Entries <= 0 || c.TLB1Entries > 1<<MAS0ESel.Width {
		return fmt.Errorf("tlb1_entries must be in 1..%d", 1<<MAS0ESel.Width)
	}
	if c.CacheSets <= 0 {
		return fmt.Errorf("cache_sets must be > 0")
	}
	if c.CacheWays <= 0 {
		return fmt.Errorf("cache_ways must be > 0")
	}
	return nil
}
