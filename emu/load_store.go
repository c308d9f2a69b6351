package emu

import "github.com/sarchlab/e500sim/insts"

// addrMode is the addressing form of a load or store.
type addrMode uint8

const (
	modeD  addrMode = iota // rD, d(rA): EA = (rA|0) + d
	modeX                  // rD, rA, rB: EA = (rA|0) + rB
	modeDU                 // rD, d(rA): EA = rA + d, rA = EA
	modeXU                 // rD, rA, rB: EA = rA + rB, rA = EA
)

var modeSuffix = map[addrMode]string{
	modeD:  "",
	modeX:  "x",
	modeDU: "u",
	modeXU: "ux",
}

// memAccess describes the data half of a load or store.
type memAccess struct {
	size    int
	signExt bool
	store   bool
	reverse bool
}

func registerLoadStore(t *DispatchTable) {
	bases := map[string]memAccess{
		"lbz": {size: 1},
		"lhz": {size: 2},
		"lha": {size: 2, signExt: true},
		"lwz": {size: 4},
		"stb": {size: 1, store: true},
		"sth": {size: 2, store: true},
		"stw": {size: 4, store: true},
	}
	for name, acc := range bases {
		for mode, suffix := range modeSuffix {
			t.register(name+suffix, 3, loadStore(name+suffix, mode, acc))
		}
	}

	t.register("lhbrx", 3, loadStore("lhbrx", modeX, memAccess{size: 2, reverse: true}))
	t.register("lwbrx", 3, loadStore("lwbrx", modeX, memAccess{size: 4, reverse: true}))
	t.register("sthbrx", 3, loadStore("sthbrx", modeX, memAccess{size: 2, store: true, reverse: true}))
	t.register("stwbrx", 3, loadStore("stwbrx", modeX, memAccess{size: 4, store: true, reverse: true}))

	t.register("evldd", 3, speEnabled("evldd", loadStore("evldd", modeD, memAccess{size: 8})))
	t.register("evlddx", 3, speEnabled("evlddx", loadStore("evlddx", modeX, memAccess{size: 8})))
	t.register("evstdd", 3, speEnabled("evstdd", loadStore("evstdd", modeD, memAccess{size: 8, store: true})))
	t.register("evstddx", 3, speEnabled("evstddx", loadStore("evstddx", modeX, memAccess{size: 8, store: true})))

	t.register("lmw", 3, lmw)
	t.register("stmw", 3, stmw)
}

// effectiveAddress computes the EA of a D- or X-form access from operands
// 1 and 2. Update forms require a real base register, and loads also
// require it to differ from the destination; those checks happen before
// any memory is touched.
func (e *Emulator) effectiveAddress(mnemonic string, mode addrMode, store bool, ops []insts.Operand) (uint64, error) {
	switch mode {
	case modeD:
		return e.maskAddr(e.gprOrZero(ops, 2) + uint64(imm(ops, 1))), nil
	case modeX:
		return e.maskAddr(e.gprOrZero(ops, 1) + e.gpr(ops, 2)), nil
	}

	base := 2
	if mode == modeXU {
		base = 1
	}
	ra := reg(ops, base)
	if ra == 0 {
		return 0, illegalForm(mnemonic, "update form with rA=0")
	}
	if !store && ra == reg(ops, 0) {
		return 0, illegalForm(mnemonic, "update form with rA=rD")
	}

	if mode == modeDU {
		return e.maskAddr(e.regFile.GPR[ra] + uint64(imm(ops, 1))), nil
	}
	return e.maskAddr(e.regFile.GPR[ra] + e.gpr(ops, 2)), nil
}

func loadStore(mnemonic string, mode addrMode, acc memAccess) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		ea, err := e.effectiveAddress(mnemonic, mode, acc.store, ops)
		if err != nil {
			return err
		}

		if acc.store {
			err = e.store(ea, acc.size, e.gpr(ops, 0), acc.reverse)
		} else {
			var v uint64
			v, err = e.load(ea, acc.size, acc.reverse)
			if err == nil {
				switch {
				case acc.size == 8:
					e.setGPR64(ops, 0, v)
				case acc.signExt:
					e.setGPR(ops, 0, uint64(int64(int16(v))))
				default:
					e.setGPR(ops, 0, v)
				}
			}
		}
		if err != nil {
			return err
		}

		switch mode {
		case modeDU:
			e.setGPR(ops, 2, ea)
		case modeXU:
			e.setGPR(ops, 1, ea)
		}
		return nil
	}
}

// lmw rD, d(rA) loads words into rD..r31. rA inside that range, including
// rA=0 with rD=0, is an illegal form.
func lmw(e *Emulator, ops []insts.Operand) error {
	rd, ra := reg(ops, 0), reg(ops, 2)
	if ra >= rd {
		return illegalForm("lmw", "rA=r%d in loaded range r%d-r31", ra, rd)
	}

	ea := e.maskAddr(e.gprOrZero(ops, 2) + uint64(imm(ops, 1)))
	values := make([]uint64, 0, 32-int(rd))
	for r := rd; r < 32; r++ {
		v, err := e.load(ea, 4, false)
		if err != nil {
			return err
		}
		values = append(values, v)
		ea = e.maskAddr(ea + 4)
	}
	for i, v := range values {
		e.writeGPR(rd+uint8(i), v)
	}
	return nil
}

// stmw rS, d(rA) stores the low words of rS..r31.
func stmw(e *Emulator, ops []insts.Operand) error {
	rs := reg(ops, 0)
	ea := e.maskAddr(e.gprOrZero(ops, 2) + uint64(imm(ops, 1)))
	for r := rs; r < 32; r++ {
		if err := e.store(ea, 4, e.regFile.GPR[r], false); err != nil {
			return err
		}
		ea = e.maskAddr(ea + 4)
	}
	return nil
}
