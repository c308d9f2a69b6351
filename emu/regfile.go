// Package emu provides functional e500v2 emulation.
package emu

// MSR bits.
const (
	MSRCM  uint64 = 0x80000000 // 64-bit computation mode
	MSRSPE uint64 = 0x02000000 // SPE available
	MSRWE  uint64 = 0x00040000 // wait state enable
	MSRCE  uint64 = 0x00020000 // critical interrupt enable
	MSREE  uint64 = 0x00008000 // external interrupt enable
	MSRPR  uint64 = 0x00004000 // problem (user) state
	MSRFP  uint64 = 0x00002000 // floating point available
	MSRME  uint64 = 0x00001000 // machine check enable
	MSRDE  uint64 = 0x00000200 // debug interrupt enable
	MSRIS  uint64 = 0x00000020 // instruction address space
	MSRDS  uint64 = 0x00000010 // data address space
)

// XER bits.
const (
	XERSO uint64 = 0x80000000
	XEROV uint64 = 0x40000000
	XERCA uint64 = 0x20000000
	XERBC uint64 = 0x0000007F // byte count for string instructions
)

// CR field bits.
const (
	CRLT uint8 = 0x8
	CRGT uint8 = 0x4
	CREQ uint8 = 0x2
	CRSO uint8 = 0x1
)

// SPEFSCR status bits.
const (
	SPEFSCRSOVH uint64 = 0x80000000
	SPEFSCROVH  uint64 = 0x40000000
	SPEFSCRSOV  uint64 = 0x00008000
	SPEFSCROV   uint64 = 0x00004000
)

// RegFile represents the e500 register file.
//
// GPRs are 64 bits wide: the upper word is the SPE high lane. The named
// fields hold the registers the instruction behaviors touch on every
// path; every other SPR lives in the SPR bank indexed by SPR number and
// is reached through mfspr/mtspr with the permissions in sprTable.
type RegFile struct {
	// GPR holds general-purpose registers r0-r31.
	GPR [32]uint64

	// PC is the next instruction pointer.
	PC uint64

	// MSR is the machine state register.
	MSR uint64

	// CR holds eight 4-bit condition fields, field 0 most significant.
	CR uint32

	// XER holds SO, OV, CA and the byte count.
	XER uint64

	// LR and CTR are the link and count registers.
	LR  uint64
	CTR uint64

	// ACC is the SPE accumulator.
	ACC uint64

	// SPR is the special-purpose register bank.
	SPR [1024]uint64

	// PMR is the performance monitor register bank.
	PMR [512]uint64
}

// ReadGPR reads a general-purpose register.
func (r *RegFile) ReadGPR(reg uint8) uint64 {
	return r.GPR[reg&31]
}

// WriteGPR writes a general-purpose register.
func (r *RegFile) WriteGPR(reg uint8, value uint64) {
	r.GPR[reg&31] = value
}

// ReadGPR32 reads the low word of a general-purpose register.
func (r *RegFile) ReadGPR32(reg uint8) uint32 {
	return uint32(r.GPR[reg&31])
}

// CRField returns CR field n (0-7).
func (r *RegFile) CRField(n uint8) uint8 {
	return uint8(r.CR>>(28-4*uint32(n&7))) & 0xF
}

// SetCRField replaces CR field n.
func (r *RegFile) SetCRField(n uint8, v uint8) {
	shift := 28 - 4*uint32(n&7)
	r.CR = r.CR&^(0xF<<shift) | uint32(v&0xF)<<shift
}

// CRBit returns CR bit i, numbered from the most significant bit.
func (r *RegFile) CRBit(i uint8) bool {
	return r.CR>>(31-uint32(i&31))&1 == 1
}

// SetCRBit sets CR bit i, numbered from the most significant bit.
func (r *RegFile) SetCRBit(i uint8, v bool) {
	mask := uint32(1) << (31 - uint32(i&31))
	if v {
		r.CR |= mask
	} else {
		r.CR &^= mask
	}
}

// SO returns XER[SO].
func (r *RegFile) SO() bool {
	return r.XER&XERSO != 0
}

// OV returns XER[OV].
func (r *RegFile) OV() bool {
	return r.XER&XEROV != 0
}

// CA returns XER[CA].
func (r *RegFile) CA() bool {
	return r.XER&XERCA != 0
}

// UserMode reports whether MSR[PR] is set.
func (r *RegFile) UserMode() bool {
	return r.MSR&MSRPR != 0
}

// GetBits extracts width bits of v starting at shift.
func GetBits(v uint64, shift, width uint) uint64 {
	return v >> shift & (1<<width - 1)
}

// SetBits returns v with width bits at shift replaced by field.
func SetBits(v uint64, shift, width uint, field uint64) uint64 {
	mask := uint64(1<<width-1) << shift
	return v&^mask | field<<shift&mask
}
