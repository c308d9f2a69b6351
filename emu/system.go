package emu

import (
	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/insts"
	"github.com/sarchlab/e500sim/mmu"
)

func registerSystem(t *DispatchTable) {
	t.register("sc", 0, func(e *Emulator, ops []insts.Operand) error {
		e.reservation.Clear()
		return fault.SystemCall()
	})
	t.register("isync", 0, func(e *Emulator, ops []insts.Operand) error {
		e.reservation.Clear()
		return nil
	})

	t.register("rfi", 0, privileged("rfi", returnFrom(SPRSRR0, SPRSRR1)))
	t.register("rfci", 0, privileged("rfci", returnFrom(SPRCSRR0, SPRCSRR1)))
	t.register("rfmci", 0, privileged("rfmci", returnFrom(SPRMCSRR0, SPRMCSRR1)))

	t.register("mfmsr", 1, privileged("mfmsr", func(e *Emulator, ops []insts.Operand) error {
		e.setGPR(ops, 0, e.regFile.MSR)
		return nil
	}))
	t.register("mtmsr", 1, privileged("mtmsr", func(e *Emulator, ops []insts.Operand) error {
		e.regFile.MSR = e.gpr(ops, 0) & 0xFFFFFFFF
		return nil
	}))
	t.register("wrtee", 1, privileged("wrtee", func(e *Emulator, ops []insts.Operand) error {
		e.regFile.MSR = e.regFile.MSR&^MSREE | e.gpr(ops, 0)&MSREE
		return nil
	}))
	t.register("wrteei", 1, privileged("wrteei", func(e *Emulator, ops []insts.Operand) error {
		if imm(ops, 0)&1 != 0 {
			e.regFile.MSR |= MSREE
		} else {
			e.regFile.MSR &^= MSREE
		}
		return nil
	}))

	// mfspr rD, SPRN
	t.register("mfspr", 2, func(e *Emulator, ops []insts.Operand) error {
		v, err := e.ReadSPR(int(imm(ops, 1)))
		if err != nil {
			return err
		}
		e.setGPR(ops, 0, v)
		return nil
	})
	// mtspr SPRN, rS
	t.register("mtspr", 2, func(e *Emulator, ops []insts.Operand) error {
		return e.WriteSPR(int(imm(ops, 0)), e.gpr(ops, 1))
	})
	// mftb rD[, TBRN]
	t.register("mftb", 1, func(e *Emulator, ops []insts.Operand) error {
		n := int(optional(ops, 1, SPRTBLR))
		if n != SPRTBLR && n != SPRTBUR {
			return illegalForm("mftb", "TBR %d", n)
		}
		v, err := e.ReadSPR(n)
		if err != nil {
			return err
		}
		e.setGPR(ops, 0, v)
		return nil
	})

	// mfpmr rD, PMRN
	t.register("mfpmr", 2, func(e *Emulator, ops []insts.Operand) error {
		v, err := e.ReadPMR(int(imm(ops, 1)))
		if err != nil {
			return err
		}
		e.setGPR(ops, 0, v)
		return nil
	})
	// mtpmr PMRN, rS
	t.register("mtpmr", 2, func(e *Emulator, ops []insts.Operand) error {
		return e.WritePMR(int(imm(ops, 0)), e.gpr(ops, 1))
	})
}

// returnFrom restores the PC and MSR from a save/restore register pair
// and drops the reservation.
func returnFrom(pcSPR, msrSPR int) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		r := e.regFile
		e.nextPC = r.SPR[pcSPR] &^ 3
		r.MSR = r.SPR[msrSPR] & 0xFFFFFFFF
		e.reservation.Clear()
		return nil
	}
}

// sprAccess checks the static permission of an SPR access.
func (e *Emulator) sprAccess(n int, write bool) (sprInfo, error) {
	mnemonic := "mfspr"
	if write {
		mnemonic = "mtspr"
	}

	info, ok := sprTable[n]
	if !ok {
		return info, illegalForm(mnemonic, "SPR %d not implemented", n)
	}

	user := e.regFile.UserMode()
	var need, supervisor uint8
	switch {
	case write && user:
		need, supervisor = sprUserWrite, sprSupervisorWrite
	case write:
		need = sprSupervisorWrite
	case user:
		need, supervisor = sprUserRead, sprSupervisorRead
	default:
		need = sprSupervisorRead
	}

	if info.access&need != 0 {
		return info, nil
	}
	if user && info.access&supervisor != 0 {
		return info, fault.Privileged("%s %s in user mode", mnemonic, info.name)
	}
	return info, illegalForm(mnemonic, "%s is not accessible", info.name)
}

// ReadSPR performs an mfspr access check and read.
func (e *Emulator) ReadSPR(n int) (uint64, error) {
	info, err := e.sprAccess(n, false)
	if err != nil {
		return 0, err
	}

	r := e.regFile
	switch n {
	case SPRXER:
		return r.XER, nil
	case SPRLR:
		return r.LR, nil
	case SPRCTR:
		return r.CTR, nil
	case SPRTBLR:
		return e.timeBase & 0xFFFFFFFF, nil
	case SPRTBUR:
		return e.timeBase >> 32, nil
	}
	if info.alias != 0 {
		return r.SPR[info.alias], nil
	}
	return r.SPR[n], nil
}

// WriteSPR performs an mtspr access check and write.
func (e *Emulator) WriteSPR(n int, v uint64) error {
	if _, err := e.sprAccess(n, true); err != nil {
		return err
	}

	r := e.regFile
	switch n {
	case SPRXER:
		r.XER = v & (XERSO | XEROV | XERCA | XERBC)
	case SPRLR:
		r.LR = v
	case SPRCTR:
		r.CTR = v
	case SPRTBLW:
		e.timeBase = e.timeBase&^0xFFFFFFFF | v&0xFFFFFFFF
	case SPRTBUW:
		e.timeBase = e.timeBase&0xFFFFFFFF | v<<32
	case SPRMMUCSR0:
		return e.flashInvalidate(v)
	default:
		r.SPR[n] = v
	}
	return nil
}

// flashInvalidate handles a write to MMUCSR0. The invalidate bits read
// back as zero once the operation completes.
func (e *Emulator) flashInvalidate(v uint64) error {
	if v&MMUCSR0TLB0FI != 0 {
		if err := e.mmu.Invalidate(0, true, mmu.TLB0); err != nil {
			return err
		}
	}
	if v&MMUCSR0TLB1FI != 0 {
		if err := e.mmu.Invalidate(0, true, mmu.TLB1); err != nil {
			return err
		}
	}
	e.regFile.SPR[SPRMMUCSR0] = v &^ (MMUCSR0TLB0FI | MMUCSR0TLB1FI)
	return nil
}

// ReadPMR performs an mfpmr access check and read. User mode may read only
// the user-mode views.
func (e *Emulator) ReadPMR(n int) (uint64, error) {
	slot, userView, ok := pmrSlot(n)
	if !ok {
		return 0, illegalForm("mfpmr", "PMR %d not implemented", n)
	}
	if e.regFile.UserMode() && !userView {
		return 0, fault.Privileged("mfpmr %d in user mode", n)
	}
	return e.regFile.PMR[slot], nil
}

// WritePMR performs an mtpmr access check and write. Only supervisor
// numbers are writable, and only in supervisor mode.
func (e *Emulator) WritePMR(n int, v uint64) error {
	slot, userView, ok := pmrSlot(n)
	if !ok {
		return illegalForm("mtpmr", "PMR %d not implemented", n)
	}
	if e.regFile.UserMode() {
		return fault.Privileged("mtpmr %d in user mode", n)
	}
	if userView {
		return illegalForm("mtpmr", "PMR %d is read-only", n)
	}
	e.regFile.PMR[slot] = v
	return nil
}
