package mmu

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sarchlab/akita/v4/mem/vm"
)

// cacheBlockSize spreads page-aligned tags across sets. It equals the
// smallest page size, so every tag is a multiple of it.
const cacheBlockSize = 4096

// CacheKey identifies one cached translation.
type CacheKey struct {
	User   bool
	Access Access
	AS     uint8
	PID    uint32
	TSize  uint8
	Page   uint64 // EA masked to the page size of TSize
}

// pid packs everything but the page address into the directory's PID
// field: 14 bits of process id, then AS, privilege, access and size code.
func (k CacheKey) pid() vm.PID {
	v := k.PID & 0x3FFF
	v |= uint32(k.AS&1) << 14
	if k.User {
		v |= 1 << 15
	}
	v |= uint32(k.Access&3) << 16
	v |= uint32(k.TSize&0xF) << 18
	return vm.PID(v)
}

// Translation is the result of a successful translation.
type Translation struct {
	RA    uint64 // real address of the access
	WIMGE uint8
	Size  uint64 // page size in bytes
}

type cachedTranslation struct {
	base  uint64 // real page address
	wimge uint8
	size  uint64
}

// CacheStats holds translation cache statistics.
type CacheStats struct {
	Lookups uint64
	Hits    uint64
	Inserts uint64
	Flushes uint64
}

// TranslationCache is an LRU cache of successful translations in front of
// the TLB arrays, built on the Akita cache directory.
type TranslationCache struct {
	numWays   int
	directory *akitacache.DirectoryImpl
	data      []cachedTranslation
	stats     CacheStats
}

// NewTranslationCache creates an empty cache of numSets × numWays entries.
func NewTranslationCache(numSets, numWays int) *TranslationCache {
	return &TranslationCache{
		numWays: numWays,
		directory: akitacache.NewDirectory(
			numSets,
			numWays,
			cacheBlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		data: make([]cachedTranslation, numSets*numWays),
	}
}

func (c *TranslationCache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.numWays + block.WayID
}

// Lookup returns the cached translation for key and ea.
func (c *TranslationCache) Lookup(key CacheKey, ea uint64) (Translation, bool) {
	c.stats.Lookups++

	block := c.directory.Lookup(key.pid(), key.Page)
	if block == nil || !block.IsValid {
		return Translation{}, false
	}

	c.stats.Hits++
	c.directory.Visit(block)

	d := c.data[c.blockIndex(block)]
	return Translation{
		RA:    d.base | ea&(d.size-1),
		WIMGE: d.wimge,
		Size:  d.size,
	}, true
}

// Insert records a translation, evicting the least recently used entry of
// the set when it is full.
func (c *TranslationCache) Insert(key CacheKey, base uint64, wimge uint8, size uint64) {
	victim := c.directory.FindVictim(key.Page)
	if victim == nil {
		return
	}

	victim.Tag = key.Page
	victim.PID = key.pid()
	victim.IsValid = true
	victim.IsDirty = false
	c.data[c.blockIndex(victim)] = cachedTranslation{
		base:  base,
		wimge: wimge,
		size:  size,
	}
	c.directory.Visit(victim)
	c.stats.Inserts++
}

// Flush drops every cached translation.
func (c *TranslationCache) Flush() {
	c.directory.Reset()
	c.stats.Flushes++
}

// Len returns the number of valid cached translations.
func (c *TranslationCache) Len() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				n++
			}
		}
	}
	return n
}

// Stats returns cache statistics.
func (c *TranslationCache) Stats() CacheStats {
	return c.stats
}
