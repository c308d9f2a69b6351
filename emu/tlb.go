package emu

import (
	"errors"

	"github.com/sarchlab/e500sim/insts"
	"github.com/sarchlab/e500sim/mmu"
)

// tlbivax effective-address fields.
const (
	tlbivaxAll      uint64 = 0x4
	tlbivaxSelShift        = 3
	tlbivaxSelMask  uint64 = 0x3
)

func registerTLB(t *DispatchTable) {
	t.register("tlbre", 0, privileged("tlbre", tlbre))
	t.register("tlbwe", 0, privileged("tlbwe", tlbwe))
	t.register("tlbsx", 2, privileged("tlbsx", tlbsx))
	t.register("tlbivax", 2, privileged("tlbivax", tlbivax))
	t.register("tlbsync", 0, privileged("tlbsync", nop))
}

// MAS returns the MMU assist registers held in the SPR bank.
func (e *Emulator) MAS() mmu.MAS {
	s := &e.regFile.SPR
	return mmu.MAS{
		MAS0: uint32(s[SPRMAS0]),
		MAS1: uint32(s[SPRMAS1]),
		MAS2: uint32(s[SPRMAS2]),
		MAS3: uint32(s[SPRMAS3]),
		MAS4: uint32(s[SPRMAS4]),
		MAS6: uint32(s[SPRMAS6]),
		MAS7: uint32(s[SPRMAS7]),
	}
}

// SetMAS writes the MMU assist registers into the SPR bank.
func (e *Emulator) SetMAS(m mmu.MAS) {
	s := &e.regFile.SPR
	s[SPRMAS0] = uint64(m.MAS0)
	s[SPRMAS1] = uint64(m.MAS1)
	s[SPRMAS2] = uint64(m.MAS2)
	s[SPRMAS3] = uint64(m.MAS3)
	s[SPRMAS4] = uint64(m.MAS4)
	s[SPRMAS6] = uint64(m.MAS6)
	s[SPRMAS7] = uint64(m.MAS7)
}

// tlbError turns a bad MAS selector into an illegal-instruction exception.
func tlbError(mnemonic string, err error) error {
	if errors.Is(err, mmu.ErrBadSelector) {
		return illegalForm(mnemonic, "%v", err)
	}
	return err
}

func tlbre(e *Emulator, ops []insts.Operand) error {
	out, err := e.mmu.Read(e.MAS())
	if err != nil {
		return tlbError("tlbre", err)
	}
	e.SetMAS(out)
	return nil
}

func tlbwe(e *Emulator, ops []insts.Operand) error {
	if err := e.mmu.Write(e.MAS()); err != nil {
		return tlbError("tlbwe", err)
	}
	return nil
}

// tlbsx rA, rB searches for EA = (rA|0) + rB with the PID and address
// space taken from MAS6.
func tlbsx(e *Emulator, ops []insts.Operand) error {
	ea := e.maskAddr(e.gprOrZero(ops, 0) + e.gpr(ops, 1))
	out, _ := e.mmu.SearchMAS(ea, e.MAS())
	e.SetMAS(out)
	return nil
}

// tlbivax rA, rB invalidates by EA = (rA|0) + rB. EA bit 0x4 selects the
// invalidate-all form and bits 3-4 the array it applies to.
func tlbivax(e *Emulator, ops []insts.Operand) error {
	ea := e.maskAddr(e.gprOrZero(ops, 0) + e.gpr(ops, 1))
	all := ea&tlbivaxAll != 0
	sel := int(ea >> tlbivaxSelShift & tlbivaxSelMask)
	if err := e.mmu.Invalidate(ea, all, sel); err != nil {
		return tlbError("tlbivax", err)
	}
	return nil
}

func nop(e *Emulator, ops []insts.Operand) error {
	return nil
}
