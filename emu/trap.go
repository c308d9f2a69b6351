package emu

import (
	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/insts"
)

// TO field bits.
const (
	TOLessSigned      uint8 = 0x10
	TOGreaterSigned   uint8 = 0x08
	TOEqual           uint8 = 0x04
	TOLessUnsigned    uint8 = 0x02
	TOGreaterUnsigned uint8 = 0x01
)

func registerTrap(t *DispatchTable) {
	// tw TO, rA, rB
	t.register("tw", 3, func(e *Emulator, ops []insts.Operand) error {
		return trapIf("tw", uint8(imm(ops, 0)), uint32(e.gpr(ops, 1)), uint32(e.gpr(ops, 2)))
	})
	// twi TO, rA, SIMM
	t.register("twi", 3, func(e *Emulator, ops []insts.Operand) error {
		return trapIf("twi", uint8(imm(ops, 0)), uint32(e.gpr(ops, 1)), uint32(imm(ops, 2)))
	})
}

// trapIf raises a trap exception when any condition selected by TO holds
// between the words a and b.
func trapIf(mnemonic string, to uint8, a, b uint32) error {
	sa, sb := int32(a), int32(b)
	hit := to&TOLessSigned != 0 && sa < sb ||
		to&TOGreaterSigned != 0 && sa > sb ||
		to&TOEqual != 0 && a == b ||
		to&TOLessUnsigned != 0 && a < b ||
		to&TOGreaterUnsigned != 0 && a > b
	if hit {
		return fault.Trap("%s TO=0x%02X", mnemonic, to)
	}
	return nil
}
