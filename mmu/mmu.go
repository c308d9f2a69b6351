package mmu

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/e500sim/fault"
)

// Array selectors.
const (
	TLB0 = 0
	TLB1 = 1
)

// Boot mapping installed in TLB1 entry 0 at reset.
const (
	BootPage  uint64 = 0xFFFFF000
	BootWIMGE        = AttrI
)

// ErrBadSelector is returned when MAS0 names an array or entry that does
// not exist, or MAS1 a page size the array does not support.
var ErrBadSelector = errors.New("bad TLB selector")

// Request describes one translation.
type Request struct {
	EA     uint64
	AS     uint8
	PID    uint32
	Access Access
	User   bool
}

// SearchResult locates an entry found by Search.
type SearchResult struct {
	TLBSel int
	Set    int
	Way    int
}

// MMU holds one core's translation state.
type MMU struct {
	config Config
	logger logrus.FieldLogger

	tlb0  *Array
	tlb1  *Array
	cache *TranslationCache
}

// Option configures an MMU.
type Option func(*MMU)

// WithLogger sets the logger used for TLB maintenance tracing.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *MMU) {
		m.logger = logger
	}
}

// New creates an MMU with the boot mapping installed.
func New(config Config, opts ...Option) *MMU {
	m := &MMU{config: config}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		m.logger = l
	}
	m.Reset()
	return m
}

// Reset invalidates everything and reinstalls the boot mapping.
func (m *MMU) Reset() {
	m.tlb0 = NewArray(m.config.TLB0Sets, m.config.TLB0Ways)
	m.tlb1 = NewArray(1, m.config.TLB1Entries)
	m.cache = NewTranslationCache(m.config.CacheSets, m.config.CacheWays)

	boot := Entry{
		WIMGE: BootWIMGE,
		Perms: PermSupervisorAll,
		IPROT: true,
		Valid: true,
	}
	boot.setPage(TSize4K, BootPage, BootPage)
	m.tlb1.Put(0, 0, boot)
}

// Config returns the MMU geometry.
func (m *MMU) Config() Config {
	return m.config
}

// Cache returns the translation cache.
func (m *MMU) Cache() *TranslationCache {
	return m.cache
}

// Entry returns the entry stored at (tlbsel, set, way). TLB1 has one set.
func (m *MMU) Entry(tlbsel, set, way int) (Entry, error) {
	a, err := m.array(tlbsel)
	if err != nil {
		return Entry{}, err
	}
	if set < 0 || set >= a.NumSets() || way < 0 || way >= a.NumWays() {
		return Entry{}, fmt.Errorf("%w: set %d way %d", ErrBadSelector, set, way)
	}
	return *a.Entry(set, way), nil
}

func (m *MMU) array(tlbsel int) (*Array, error) {
	switch tlbsel {
	case TLB0:
		return m.tlb0, nil
	case TLB1:
		return m.tlb1, nil
	}
	return nil, fmt.Errorf("%w: tlbsel %d", ErrBadSelector, tlbsel)
}

// slot resolves the entry MAS0 and MAS2 select.
func (m *MMU) slot(mas MAS) (*Array, int, int, error) {
	a, err := m.array(mas.TLBSel())
	if err != nil {
		return nil, 0, 0, err
	}
	esel := mas.ESel()
	if a == m.tlb0 {
		return a, a.SetIndex(mas.EffectiveAddress()), esel % a.NumWays(), nil
	}
	if esel >= a.NumWays() {
		return nil, 0, 0, fmt.Errorf("%w: esel %d", ErrBadSelector, esel)
	}
	return a, 0, esel, nil
}

// Read copies the selected entry into MAS1-MAS3 and MAS7. MAS0[NV]
// reports the replacement hint of the selected set.
func (m *MMU) Read(mas MAS) (MAS, error) {
	a, set, way, err := m.slot(mas)
	if err != nil {
		return mas, err
	}

	out := mas
	out.load(a.Entry(set, way))
	nv := 0
	if a == m.tlb0 {
		nv = a.NextVictim(set)
	}
	out.MAS0 = MAS0NV.Set(out.MAS0, uint32(nv))
	return out, nil
}

// Write installs an entry built from MAS1-MAS3 and MAS7 into the slot
// MAS0 selects. TLB0 entries are always 4 KiB and never protected.
// Every write flushes the translation cache.
func (m *MMU) Write(mas MAS) error {
	a, set, way, err := m.slot(mas)
	if err != nil {
		return err
	}

	tsize := uint8(MAS1TSize.Get(mas.MAS1))
	if a == m.tlb0 {
		tsize = TSize4K
	} else if !ValidTSize(tsize) {
		return fmt.Errorf("%w: tsize %d", ErrBadSelector, tsize)
	}

	e := mas.entry(tsize)
	if a == m.tlb0 {
		e.IPROT = false
	}
	a.Put(set, way, e)
	m.cache.Flush()

	m.logger.WithFields(logrus.Fields{
		"tlbsel": mas.TLBSel(),
		"set":    set,
		"way":    way,
		"ea":     fmt.Sprintf("0x%X", e.EA),
		"ra":     fmt.Sprintf("0x%X", e.RA),
		"size":   e.Size,
		"valid":  e.Valid,
	}).Debug("tlbwe")

	return nil
}

// Search scans both arrays for a valid entry mapping ea in address space
// as for process pid. When several entries match, the first one found
// wins; hardware leaves that case undefined.
func (m *MMU) Search(ea uint64, as uint8, pid uint32) (SearchResult, bool) {
	set := m.tlb0.SetIndex(ea)
	if way, ok := m.tlb0.Find(set, ea, as, pid); ok {
		return SearchResult{TLBSel: TLB0, Set: set, Way: way}, true
	}
	if way, ok := m.tlb1.Find(0, ea, as, pid); ok {
		return SearchResult{TLBSel: TLB1, Set: 0, Way: way}, true
	}
	return SearchResult{}, false
}

// SearchMAS performs tlbsx: process id and address space come from MAS6.
// On a hit the entry is loaded into the MAS registers; on a miss the MAS
// registers receive the MAS4 defaults with MAS1[V] clear and TID from
// MAS6[SPID]. MAS4[TIDSELD] applies only to TLB miss exceptions.
func (m *MMU) SearchMAS(ea uint64, mas MAS) (MAS, bool) {
	pid := MAS6SPID.Get(mas.MAS6)
	as := uint8(MAS6SAS.Get(mas.MAS6))
	out := mas

	r, ok := m.Search(ea, as, pid)
	if ok {
		a, _ := m.array(r.TLBSel)
		out.load(a.Entry(r.Set, r.Way))

		nv := 0
		if r.TLBSel == TLB0 {
			nv = a.NextVictim(r.Set)
		}
		var mas0 uint32
		mas0 = MAS0TLBSel.Set(mas0, uint32(r.TLBSel))
		mas0 = MAS0ESel.Set(mas0, uint32(r.Way))
		mas0 = MAS0NV.Set(mas0, uint32(nv))
		out.MAS0 = mas0
		return out, true
	}

	return m.defaults(ea, as, pid, mas), false
}

// TIDSELD value that loads TID 0 instead of a PID register.
const tidSelZero = 3

// MissMAS returns the MAS contents an instruction or data TLB miss leaves
// behind: the MAS4 defaults for the missing page, with TID taken from the
// PID register MAS4[TIDSELD] names, or zero, and MAS6 set to search the
// failing access's address space with PID0.
func (m *MMU) MissMAS(ea uint64, as uint8, pids [3]uint32, mas MAS) MAS {
	var tid uint32
	if sel := MAS4TIDSelD.Get(mas.MAS4); sel != tidSelZero {
		tid = pids[sel]
	}

	out := m.defaults(ea, as, tid, mas)
	var mas6 uint32
	mas6 = MAS6SPID.Set(mas6, pids[0])
	mas6 = MAS6SAS.Set(mas6, uint32(as))
	out.MAS6 = mas6
	return out
}

// defaults fills MAS0-MAS3 and MAS7 from MAS4 for a page at ea that no
// entry maps. The new entry is invalid and has no permissions.
func (m *MMU) defaults(ea uint64, as uint8, tid uint32, mas MAS) MAS {
	out := mas
	tlbsel := MAS4TLBSelD.Get(mas.MAS4)
	nv := 0
	if tlbsel == TLB0 {
		nv = m.tlb0.NextVictim(m.tlb0.SetIndex(ea))
	}
	var mas0 uint32
	mas0 = MAS0TLBSel.Set(mas0, tlbsel)
	mas0 = MAS0ESel.Set(mas0, uint32(nv))
	mas0 = MAS0NV.Set(mas0, uint32(nv))
	out.MAS0 = mas0

	var mas1 uint32
	mas1 = MAS1TID.Set(mas1, tid)
	mas1 = MAS1TS.Set(mas1, uint32(as))
	mas1 = MAS1TSize.Set(mas1, MAS4TSizeD.Get(mas.MAS4))
	out.MAS1 = mas1

	var mas2 uint32
	mas2 = MAS2EPN.Set(mas2, uint32(ea>>12))
	mas2 = MAS2X.Set(mas2, MAS4XD.Get(mas.MAS4))
	mas2 = MAS2WIMGE.Set(mas2, MAS4WIMGED.Get(mas.MAS4))
	out.MAS2 = mas2

	out.MAS3 = 0
	out.MAS7 = 0
	return out
}

// Invalidate implements tlbivax. The single-entry form invalidates every
// entry in either array whose page covers ea, protected or not. The
// invalidate-all form clears the selected array, sparing protected TLB1
// entries. The translation cache is flushed either way.
func (m *MMU) Invalidate(ea uint64, all bool, tlbsel int) error {
	var n int
	if all {
		a, err := m.array(tlbsel)
		if err != nil {
			return err
		}
		n = a.InvalidateAll(a == m.tlb1)
	} else {
		n = m.tlb0.InvalidatePage(ea) + m.tlb1.InvalidatePage(ea)
	}
	m.cache.Flush()

	m.logger.WithFields(logrus.Fields{
		"ea":     fmt.Sprintf("0x%X", ea),
		"all":    all,
		"tlbsel": tlbsel,
		"count":  n,
	}).Debug("tlbivax")

	return nil
}

// Translate maps req.EA to a real address. The translation cache is
// probed first for every supported page size; on a miss both arrays are
// scanned. A matching entry that denies the access yields a storage
// exception. found is false when no entry matches; that is a TLB miss the
// caller may retry with another process id.
func (m *MMU) Translate(req Request) (Translation, bool, error) {
	for tsize := minTSize; tsize <= maxTSize; tsize++ {
		key := m.cacheKey(req, tsize)
		if hit, ok := m.cache.Lookup(key, req.EA); ok {
			return hit, true, nil
		}
	}

	r, ok := m.Search(req.EA, req.AS, req.PID)
	if !ok {
		return Translation{}, false, nil
	}

	a, _ := m.array(r.TLBSel)
	e := a.Entry(r.Set, r.Way)
	if !e.Perms.Allows(req.Access, req.User) {
		switch req.Access {
		case AccessExecute:
			return Translation{}, true, fault.InstructionStorage(req.EA)
		case AccessWrite:
			return Translation{}, true, fault.DataStorage(req.EA, true)
		default:
			return Translation{}, true, fault.DataStorage(req.EA, false)
		}
	}

	m.cache.Insert(m.cacheKey(req, e.TSize), e.RA, e.WIMGE, e.Size)

	return Translation{
		RA:    e.RA | req.EA&(e.Size-1),
		WIMGE: e.WIMGE,
		Size:  e.Size,
	}, true, nil
}

func (m *MMU) cacheKey(req Request, tsize uint8) CacheKey {
	return CacheKey{
		User:   req.User,
		Access: req.Access,
		AS:     req.AS,
		PID:    req.PID,
		TSize:  tsize,
		Page:   req.EA &^ (PageSize(tsize) - 1),
	}
}
