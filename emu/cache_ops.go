package emu

import "github.com/sarchlab/e500sim/insts"

// CacheLineSize is the e500 L1 line size.
const CacheLineSize = 32

func registerCacheOps(t *DispatchTable) {
	// No cache is modeled, so hints, flushes and barriers do nothing.
	for _, name := range []string{
		"dcba", "dcbf", "dcbst", "dcbt", "dcbtst",
		"dcbtls", "dcbtstls", "dcblc", "icbi", "icbt", "icbtls", "icblc",
		"msync", "mbar",
	} {
		t.register(name, 0, nop)
	}
	t.register("dcbi", 0, privileged("dcbi", nop))
	t.register("dcbz", 2, dcbz)
}

// dcbz rA, rB zeroes the line containing (rA|0) + rB.
func dcbz(e *Emulator, ops []insts.Operand) error {
	ea := e.maskAddr(e.gprOrZero(ops, 0)+e.gpr(ops, 1)) &^ (CacheLineSize - 1)
	for off := uint64(0); off < CacheLineSize; off += 8 {
		if err := e.store(ea+off, 8, 0, false); err != nil {
			return err
		}
	}
	return nil
}
