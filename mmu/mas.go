package mmu

// Field is a bit-field window inside a 32-bit MAS register.
type Field struct {
	Shift uint
	Width uint
}

func (f Field) mask() uint32 {
	return (1<<f.Width - 1) << f.Shift
}

// Get extracts the field from reg.
func (f Field) Get(reg uint32) uint32 {
	return (reg & f.mask()) >> f.Shift
}

// Set returns reg with the field replaced by v.
func (f Field) Set(reg, v uint32) uint32 {
	return reg&^f.mask() | (v<<f.Shift)&f.mask()
}

// MAS register fields.
var (
	MAS0TLBSel = Field{28, 2}
	MAS0ESel   = Field{16, 12}
	MAS0NV     = Field{0, 12}

	MAS1V     = Field{31, 1}
	MAS1IProt = Field{30, 1}
	MAS1TID   = Field{16, 8}
	MAS1TS    = Field{12, 1}
	MAS1TSize = Field{8, 4}

	MAS2EPN   = Field{12, 20}
	MAS2X     = Field{5, 2}
	MAS2WIMGE = Field{0, 5}

	MAS3RPN   = Field{12, 20}
	MAS3U     = Field{6, 4}
	MAS3Perms = Field{0, 6}

	MAS4TLBSelD = Field{28, 2}
	MAS4TIDSelD = Field{16, 2}
	MAS4TSizeD  = Field{8, 4}
	MAS4XD      = Field{5, 2}
	MAS4WIMGED  = Field{0, 5}

	MAS6SPID = Field{16, 8}
	MAS6SAS  = Field{0, 1}

	MAS7RPNU = Field{0, 4}
)

// MAS holds the MMU assist registers exchanged by the TLB management
// instructions. e500 has no MAS5.
type MAS struct {
	MAS0 uint32
	MAS1 uint32
	MAS2 uint32
	MAS3 uint32
	MAS4 uint32
	MAS6 uint32
	MAS7 uint32
}

// TLBSel returns MAS0[TLBSEL].
func (m MAS) TLBSel() int {
	return int(MAS0TLBSel.Get(m.MAS0))
}

// ESel returns MAS0[ESEL].
func (m MAS) ESel() int {
	return int(MAS0ESel.Get(m.MAS0))
}

// EffectiveAddress returns the page address held in MAS2[EPN].
func (m MAS) EffectiveAddress() uint64 {
	return uint64(MAS2EPN.Get(m.MAS2)) << 12
}

// RealAddress returns the 36-bit real page address held in MAS3 and MAS7.
func (m MAS) RealAddress() uint64 {
	return uint64(MAS7RPNU.Get(m.MAS7))<<32 | uint64(MAS3RPN.Get(m.MAS3))<<12
}

// entry builds a TLB entry from MAS1-MAS3 and MAS7 using tsize.
func (m MAS) entry(tsize uint8) Entry {
	e := Entry{
		TID:   MAS1TID.Get(m.MAS1),
		TS:    uint8(MAS1TS.Get(m.MAS1)),
		Valid: MAS1V.Get(m.MAS1) == 1,
		IPROT: MAS1IProt.Get(m.MAS1) == 1,
		WIMGE: uint8(MAS2WIMGE.Get(m.MAS2)),
		X:     uint8(MAS2X.Get(m.MAS2)),
		U:     uint8(MAS3U.Get(m.MAS3)),
		Perms: DecodePerms(MAS3Perms.Get(m.MAS3)),
	}
	e.setPage(tsize, m.EffectiveAddress(), m.RealAddress())
	return e
}

// load copies an entry into MAS1-MAS3 and MAS7, leaving MAS0, MAS4 and
// MAS6 untouched.
func (m *MAS) load(e *Entry) {
	var mas1 uint32
	mas1 = MAS1V.Set(mas1, boolBit(e.Valid))
	mas1 = MAS1IProt.Set(mas1, boolBit(e.IPROT))
	mas1 = MAS1TID.Set(mas1, e.TID)
	mas1 = MAS1TS.Set(mas1, uint32(e.TS))
	mas1 = MAS1TSize.Set(mas1, uint32(e.TSize))
	m.MAS1 = mas1

	var mas2 uint32
	mas2 = MAS2EPN.Set(mas2, uint32(e.EPN))
	mas2 = MAS2X.Set(mas2, uint32(e.X))
	mas2 = MAS2WIMGE.Set(mas2, uint32(e.WIMGE))
	m.MAS2 = mas2

	var mas3 uint32
	mas3 = MAS3RPN.Set(mas3, uint32(e.RPN))
	mas3 = MAS3U.Set(mas3, uint32(e.U))
	mas3 = MAS3Perms.Set(mas3, EncodePerms(e.Perms))
	m.MAS3 = mas3

	m.MAS7 = MAS7RPNU.Set(0, uint32(e.RPN>>20))
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
