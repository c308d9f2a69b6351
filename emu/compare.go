package emu

import "github.com/sarchlab/e500sim/insts"

// Compare operands are crfD, L, rA, rB|imm. L selects a 64-bit compare;
// with L=0 only the low words take part.

func registerCompare(t *DispatchTable) {
	t.register("cmp", 4, func(e *Emulator, ops []insts.Operand) error {
		e.compareSigned(ops, e.gpr(ops, 3))
		return nil
	})
	t.register("cmpi", 4, func(e *Emulator, ops []insts.Operand) error {
		e.compareSigned(ops, uint64(imm(ops, 3)))
		return nil
	})
	t.register("cmpl", 4, func(e *Emulator, ops []insts.Operand) error {
		e.compareUnsigned(ops, e.gpr(ops, 3))
		return nil
	})
	t.register("cmpli", 4, func(e *Emulator, ops []insts.Operand) error {
		e.compareUnsigned(ops, uimm16(ops, 3))
		return nil
	})
	t.register("isel", 4, isel)
}

func (e *Emulator) compareSigned(ops []insts.Operand, b uint64) {
	a := e.gpr(ops, 2)
	var x, y int64
	if imm(ops, 1) != 0 {
		x, y = int64(a), int64(b)
	} else {
		x, y = int64(int32(a)), int64(int32(b))
	}
	e.regFile.SetCRField(uint8(imm(ops, 0)), e.compareResult(x < y, x > y))
}

func (e *Emulator) compareUnsigned(ops []insts.Operand, b uint64) {
	a := e.gpr(ops, 2)
	if imm(ops, 1) == 0 {
		a, b = a&0xFFFFFFFF, b&0xFFFFFFFF
	}
	e.regFile.SetCRField(uint8(imm(ops, 0)), e.compareResult(a < b, a > b))
}

// isel rD, rA, rB, crb: rD = CR[crb] ? (rA|0) : rB.
func isel(e *Emulator, ops []insts.Operand) error {
	if e.regFile.CRBit(uint8(imm(ops, 3))) {
		e.setGPR(ops, 0, e.gprOrZero(ops, 1))
	} else {
		e.setGPR(ops, 0, e.gpr(ops, 2))
	}
	return nil
}
