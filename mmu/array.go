package mmu

// Array is a fixed-capacity TLB array organized as sets × ways. Entries
// are overwritten in place.
type Array struct {
	numSets int
	numWays int
	entries []Entry

	// nextVictim holds the round-robin replacement hint per set.
	nextVictim []int
}

// NewArray creates an array with every entry invalid.
func NewArray(numSets, numWays int) *Array {
	return &Array{
		numSets:    numSets,
		numWays:    numWays,
		entries:    make([]Entry, numSets*numWays),
		nextVictim: make([]int, numSets),
	}
}

// NumSets returns the number of sets.
func (a *Array) NumSets() int {
	return a.numSets
}

// NumWays returns the associativity.
func (a *Array) NumWays() int {
	return a.numWays
}

// SetIndex returns the set an effective address maps to.
func (a *Array) SetIndex(ea uint64) int {
	return int((ea >> 12) % uint64(a.numSets))
}

// Entry returns the entry at (set, way).
func (a *Array) Entry(set, way int) *Entry {
	return &a.entries[set*a.numWays+way]
}

// Put overwrites the entry at (set, way) and advances the set's victim
// hint past it.
func (a *Array) Put(set, way int, e Entry) {
	a.entries[set*a.numWays+way] = e
	if a.nextVictim[set] == way {
		a.nextVictim[set] = (way + 1) % a.numWays
	}
}

// NextVictim returns the replacement hint for a set.
func (a *Array) NextVictim(set int) int {
	return a.nextVictim[set]
}

// Find returns the first way in set whose entry matches.
func (a *Array) Find(set int, ea uint64, as uint8, pid uint32) (int, bool) {
	for way := 0; way < a.numWays; way++ {
		if a.Entry(set, way).Matches(ea, as, pid) {
			return way, true
		}
	}
	return 0, false
}

// InvalidatePage clears the valid bit of every entry covering ea and
// returns how many were cleared.
func (a *Array) InvalidatePage(ea uint64) int {
	n := 0
	for i := range a.entries {
		e := &a.entries[i]
		if e.Valid && e.Covers(ea) {
			e.Valid = false
			n++
		}
	}
	return n
}

// InvalidateAll clears every entry, sparing protected ones when
// honorIPROT is set.
func (a *Array) InvalidateAll(honorIPROT bool) int {
	n := 0
	for i := range a.entries {
		e := &a.entries[i]
		if !e.Valid || (honorIPROT && e.IPROT) {
			continue
		}
		e.Valid = false
		n++
	}
	return n
}
