package emu

import "github.com/sarchlab/e500sim/insts"

func registerAtomic(t *DispatchTable) {
	t.register("lwarx", 3, lwarx)
	t.register("stwcx.", 3, stwcx)
}

// lwarx rD, rA, rB loads a word and reserves its address.
func lwarx(e *Emulator, ops []insts.Operand) error {
	ea := e.maskAddr(e.gprOrZero(ops, 1) + e.gpr(ops, 2))
	v, err := e.load(ea, 4, false)
	if err != nil {
		return err
	}
	e.setGPR(ops, 0, v)
	e.reservation.Set(ea, 4)
	return nil
}

// stwcx. rS, rA, rB stores only if a matching reservation is held. CR0[EQ]
// reports whether the store happened. The reservation is cleared either
// way.
func stwcx(e *Emulator, ops []insts.Operand) error {
	ea := e.maskAddr(e.gprOrZero(ops, 1) + e.gpr(ops, 2))

	var cr uint8
	if e.reservation.Matches(ea, 4) {
		if err := e.store(ea, 4, e.gpr(ops, 0), false); err != nil {
			return err
		}
		cr = CREQ
	}
	if e.regFile.SO() {
		cr |= CRSO
	}
	e.regFile.SetCRField(0, cr)
	e.reservation.Clear()
	return nil
}
