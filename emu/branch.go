package emu

import "github.com/sarchlab/e500sim/insts"

// BO field bits. BO[4] is the most significant bit of the 5-bit field.
const (
	BOIgnoreCond uint8 = 0x10 // BO[4]: branch regardless of the CR bit
	BOCondTrue   uint8 = 0x08 // BO[3]: CR bit value that branches
	BONoCTR      uint8 = 0x04 // BO[2]: do not decrement or test CTR
	BOCTRZero    uint8 = 0x02 // BO[1]: branch when CTR reaches zero
)

// branchTarget selects where a taken branch goes.
type branchTarget uint8

const (
	targetRelative branchTarget = iota
	targetAbsolute
	targetLR
	targetCTR
)

// BranchTaken evaluates the BO/BI predicate shared by every conditional
// branch. When BO[2] is clear CTR is decremented first, at the current
// width, and tested against BO[1].
func (e *Emulator) BranchTaken(bo, bi uint8) bool {
	r := e.regFile
	ctrOK := true
	if bo&BONoCTR == 0 {
		r.CTR = e.maskAddr(r.CTR - 1)
		ctrOK = (r.CTR != 0) != (bo&BOCTRZero != 0)
	}
	condOK := bo&BOIgnoreCond != 0 || r.CRBit(bi) == (bo&BOCondTrue != 0)
	return ctrOK && condOK
}

func registerBranch(t *DispatchTable) {
	t.register("b", 1, branch("b", targetRelative, false, false))
	t.register("ba", 1, branch("ba", targetAbsolute, false, false))
	t.register("bl", 1, branch("bl", targetRelative, false, true))
	t.register("bla", 1, branch("bla", targetAbsolute, false, true))

	t.register("bc", 3, branch("bc", targetRelative, true, false))
	t.register("bca", 3, branch("bca", targetAbsolute, true, false))
	t.register("bcl", 3, branch("bcl", targetRelative, true, true))
	t.register("bcla", 3, branch("bcla", targetAbsolute, true, true))

	t.register("bclr", 2, branch("bclr", targetLR, true, false))
	t.register("bclrl", 2, branch("bclrl", targetLR, true, true))
	t.register("bcctr", 2, branch("bcctr", targetCTR, true, false))
	t.register("bcctrl", 2, branch("bcctrl", targetCTR, true, true))
}

// branch builds one of the twelve branch behaviors. Unconditional forms
// take the displacement as their only operand; conditional forms take BO,
// BI and, for the immediate targets, the displacement.
func branch(mnemonic string, target branchTarget, conditional, link bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		r := e.regFile
		pc := r.PC

		taken := true
		if conditional {
			bo, bi := uint8(imm(ops, 0))&0x1F, uint8(imm(ops, 1))&0x1F
			if target == targetCTR && bo&BONoCTR == 0 {
				return illegalForm(mnemonic, "BO 0x%X decrements CTR", bo)
			}
			taken = e.BranchTaken(bo, bi)
		}

		var dest uint64
		switch target {
		case targetRelative, targetAbsolute:
			disp := uint64(imm(ops, 0))
			if conditional {
				disp = uint64(imm(ops, 2))
			}
			dest = disp
			if target == targetRelative {
				dest = pc + disp
			}
		case targetLR:
			dest = r.LR &^ 3
		case targetCTR:
			dest = r.CTR &^ 3
		}

		if link {
			r.LR = e.maskAddr(pc + 4)
		}
		if taken {
			e.nextPC = dest
		}
		return nil
	}
}
