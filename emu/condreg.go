package emu

import "github.com/sarchlab/e500sim/insts"

func registerCondReg(t *DispatchTable) {
	logic := map[string]func(a, b bool) bool{
		"crand":  func(a, b bool) bool { return a && b },
		"crandc": func(a, b bool) bool { return a && !b },
		"creqv":  func(a, b bool) bool { return a == b },
		"crnand": func(a, b bool) bool { return !(a && b) },
		"crnor":  func(a, b bool) bool { return !(a || b) },
		"cror":   func(a, b bool) bool { return a || b },
		"crorc":  func(a, b bool) bool { return a || !b },
		"crxor":  func(a, b bool) bool { return a != b },
	}
	for name, fn := range logic {
		// crop crbD, crbA, crbB
		t.register(name, 3, func(e *Emulator, ops []insts.Operand) error {
			r := e.regFile
			a := r.CRBit(uint8(imm(ops, 1)))
			b := r.CRBit(uint8(imm(ops, 2)))
			r.SetCRBit(uint8(imm(ops, 0)), fn(a, b))
			return nil
		})
	}

	// mcrf crfD, crfS
	t.register("mcrf", 2, func(e *Emulator, ops []insts.Operand) error {
		r := e.regFile
		r.SetCRField(uint8(imm(ops, 0)), r.CRField(uint8(imm(ops, 1))))
		return nil
	})

	// mcrxr crfD moves XER[SO,OV,CA] into a CR field and clears them.
	t.register("mcrxr", 1, func(e *Emulator, ops []insts.Operand) error {
		r := e.regFile
		r.SetCRField(uint8(imm(ops, 0)), uint8(r.XER>>28)&0xE)
		r.XER &^= XERSO | XEROV | XERCA
		return nil
	})

	// mfcr rD
	t.register("mfcr", 1, func(e *Emulator, ops []insts.Operand) error {
		e.setGPR(ops, 0, uint64(e.regFile.CR))
		return nil
	})

	// mtcrf CRM, rS replaces the fields selected by the 8-bit mask, the
	// most significant mask bit selecting field 0.
	t.register("mtcrf", 2, func(e *Emulator, ops []insts.Operand) error {
		r := e.regFile
		crm := uint8(imm(ops, 0))
		s := uint32(e.gpr(ops, 1))
		var mask uint32
		for i := 0; i < 8; i++ {
			if crm&(0x80>>i) != 0 {
				mask |= 0xF << (28 - 4*i)
			}
		}
		r.CR = r.CR&^mask | s&mask
		return nil
	})
}
