// Package mmu models the e500v2 memory management unit: two TLB arrays, a
// translation cache in front of them, and the MAS register protocol used
// by tlbre, tlbwe and tlbsx.
package mmu

// Access is the kind of memory access being translated.
type Access uint8

// Access kinds.
const (
	AccessRead Access = iota
	AccessWrite
	AccessExecute
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	}
	return "access(?)"
}

// Perm is a permission vector in lane layout: supervisor read/write/execute
// in bits 0-2, user read/write/execute in bits 3-5.
type Perm uint8

// Permission bits in lane layout.
const (
	PermSR Perm = 1 << iota
	PermSW
	PermSX
	PermUR
	PermUW
	PermUX

	PermSupervisorAll = PermSR | PermSW | PermSX
	PermUserAll       = PermUR | PermUW | PermUX
	PermAll           = PermSupervisorAll | PermUserAll
)

// Permission bits in MAS3 order (UX SX UW SW UR SR, most significant first).
const (
	mas3SR uint32 = 1 << iota
	mas3UR
	mas3SW
	mas3UW
	mas3SX
	mas3UX
)

// DecodePerms converts the low six MAS3 permission bits into lane layout.
func DecodePerms(bits uint32) Perm {
	var p Perm
	if bits&mas3SR != 0 {
		p |= PermSR
	}
	if bits&mas3SW != 0 {
		p |= PermSW
	}
	if bits&mas3SX != 0 {
		p |= PermSX
	}
	if bits&mas3UR != 0 {
		p |= PermUR
	}
	if bits&mas3UW != 0 {
		p |= PermUW
	}
	if bits&mas3UX != 0 {
		p |= PermUX
	}
	return p
}

// EncodePerms converts a lane-layout vector back into MAS3 order.
func EncodePerms(p Perm) uint32 {
	var bits uint32
	if p&PermSR != 0 {
		bits |= mas3SR
	}
	if p&PermSW != 0 {
		bits |= mas3SW
	}
	if p&PermSX != 0 {
		bits |= mas3SX
	}
	if p&PermUR != 0 {
		bits |= mas3UR
	}
	if p&PermUW != 0 {
		bits |= mas3UW
	}
	if p&PermUX != 0 {
		bits |= mas3UX
	}
	return bits
}

// Allows reports whether the vector grants access at the given privilege.
func (p Perm) Allows(access Access, user bool) bool {
	lane := uint(access)
	if user {
		lane += 3
	}
	return p&(1<<lane) != 0
}

// WIMGE attribute bits.
const (
	AttrW uint8 = 0x10 // write-through
	AttrI uint8 = 0x08 // cache-inhibited
	AttrM uint8 = 0x04 // memory coherence required
	AttrG uint8 = 0x02 // guarded
	AttrE uint8 = 0x01 // little-endian
)

// Page size codes.
const (
	TSize4K   uint8 = 1
	TSize16K  uint8 = 2
	TSize64K  uint8 = 3
	TSize256K uint8 = 4
	TSize1M   uint8 = 5
	TSize4M   uint8 = 6
	TSize16M  uint8 = 7
	TSize64M  uint8 = 8
	TSize256M uint8 = 9
	TSize1G   uint8 = 10
	TSize4G   uint8 = 11

	minTSize = TSize4K
	maxTSize = TSize4G
)

// PageSize returns the page size in bytes for a size code (4^tsize KiB).
func PageSize(tsize uint8) uint64 {
	return 1024 << (2 * uint64(tsize))
}

// ValidTSize reports whether the variable-size array supports tsize.
func ValidTSize(tsize uint8) bool {
	return tsize >= minTSize && tsize <= maxTSize
}

// Entry is one TLB entry.
type Entry struct {
	TID   uint32
	EPN   uint64 // effective page number, EA >> 12
	RPN   uint64 // real page number, RA >> 12
	EA    uint64 // page-aligned effective address
	RA    uint64 // page-aligned real address
	Size  uint64 // page size in bytes
	TSize uint8
	WIMGE uint8
	X     uint8 // X0 in bit 1, X1 in bit 0
	U     uint8 // U0..U3, U0 most significant
	Perms Perm
	TS    uint8
	IPROT bool
	Valid bool
}

// setPage fills the derived address fields from a size code and raw
// effective and real addresses.
func (e *Entry) setPage(tsize uint8, ea, ra uint64) {
	e.TSize = tsize
	e.Size = PageSize(tsize)
	mask := ^(e.Size - 1)
	e.EA = ea & mask
	e.RA = ra & mask
	e.EPN = e.EA >> 12
	e.RPN = e.RA >> 12
}

// Covers reports whether ea falls in the entry's page, ignoring TID, TS
// and the valid bit.
func (e *Entry) Covers(ea uint64) bool {
	return ea&^(e.Size-1) == e.EA
}

// Matches applies the translation match rule: valid, same translation
// space, TID equal to pid or zero, and ea inside the page.
func (e *Entry) Matches(ea uint64, as uint8, pid uint32) bool {
	if !e.Valid || e.TS != as {
		return false
	}
	if e.TID != 0 && e.TID != pid {
		return false
	}
	return e.Covers(ea)
}
