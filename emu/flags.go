package emu

import "math/bits"

// is64 reports whether the core computes in 64-bit mode.
func (e *Emulator) is64() bool {
	return e.regFile.MSR&MSRCM != 0
}

// maskAddr truncates an address to the current computation width.
func (e *Emulator) maskAddr(addr uint64) uint64 {
	if e.is64() {
		return addr
	}
	return addr & 0xFFFFFFFF
}

// compareResult returns the LT/GT/EQ bits for a signed comparison of a and
// b, plus SO copied from XER.
func (e *Emulator) compareResult(lt, gt bool) uint8 {
	var f uint8
	switch {
	case lt:
		f = CRLT
	case gt:
		f = CRGT
	default:
		f = CREQ
	}
	if e.regFile.SO() {
		f |= CRSO
	}
	return f
}

// updateCR0 sets CR0 from a result compared against zero at the current
// width.
func (e *Emulator) updateCR0(v uint64) {
	var s int64
	if e.is64() {
		s = int64(v)
	} else {
		s = int64(int32(v))
	}
	e.regFile.SetCRField(0, e.compareResult(s < 0, s > 0))
}

// setCA sets or clears XER[CA].
func (e *Emulator) setCA(ca bool) {
	if ca {
		e.regFile.XER |= XERCA
	} else {
		e.regFile.XER &^= XERCA
	}
}

// setOV sets or clears XER[OV]. SO is sticky: it is set with OV and only
// cleared by an explicit XER write.
func (e *Emulator) setOV(ov bool) {
	var code uint8
	if e.regFile.SO() {
		code = 2
	}
	if ov {
		code = 3
	}
	e.setSOOV(code)
}

// addWithCarry computes a + b + cin. The sum is the full 64-bit result;
// carry and overflow are taken at the given width. Overflow is the XOR of
// the carry into and the carry out of the sign bit.
func addWithCarry(a, b, cin uint64, width uint) (sum uint64, ca, ov bool) {
	if width == 64 {
		var cout uint64
		sum, cout = bits.Add64(a, b, cin)
		cinSign := (a ^ b ^ sum) >> 63 & 1
		return sum, cout == 1, cinSign != cout
	}

	sum = a + b + cin
	a32, b32 := a&0xFFFFFFFF, b&0xFFFFFFFF
	wide := a32 + b32 + cin
	cout := wide >> 32 & 1
	cinSign := (a32 ^ b32 ^ wide) >> 31 & 1
	return sum, cout == 1, cinSign != cout
}

func (e *Emulator) width() uint {
	if e.is64() {
		return 64
	}
	return 32
}

// setSOOV writes XER[SO] and XER[OV] from a two-bit code: bit 1 is SO,
// bit 0 is OV.
func (e *Emulator) setSOOV(code uint8) {
	e.regFile.XER &^= XERSO | XEROV
	if code&2 != 0 {
		e.regFile.XER |= XERSO
	}
	if code&1 != 0 {
		e.regFile.XER |= XEROV
	}
}
