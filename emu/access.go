package emu

import (
	"math/bits"

	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/mmu"
)

// translate maps an effective address through the MMU. The lookup is
// tried with PID0, PID1 and PID2 in turn; a miss on all three is a TLB
// miss exception and loads the MAS registers with the miss defaults.
func (e *Emulator) translate(ea uint64, access mmu.Access) (mmu.Translation, error) {
	r := e.regFile
	as := uint8(0)
	if access == mmu.AccessExecute && r.MSR&MSRIS != 0 ||
		access != mmu.AccessExecute && r.MSR&MSRDS != 0 {
		as = 1
	}

	req := mmu.Request{
		EA:     ea,
		AS:     as,
		Access: access,
		User:   r.UserMode(),
	}
	var pids [3]uint32
	for i, spr := range [...]int{SPRPID0, SPRPID1, SPRPID2} {
		pids[i] = uint32(r.SPR[spr] & 0xFF)
		req.PID = pids[i]
		t, found, err := e.mmu.Translate(req)
		if err != nil {
			return mmu.Translation{}, err
		}
		if found {
			return t, nil
		}
	}

	e.SetMAS(e.mmu.MissMAS(ea, as, pids, e.MAS()))
	return mmu.Translation{}, fault.TLBMiss(ea, access == mmu.AccessExecute,
		access == mmu.AccessWrite)
}

// dataAddress translates a data effective address. The returned flag is
// true for little-endian pages.
func (e *Emulator) dataAddress(ea uint64, write bool) (uint64, bool, error) {
	ea = e.maskAddr(ea)
	if !e.config.Translation {
		return ea, false, nil
	}

	access := mmu.AccessRead
	if write {
		access = mmu.AccessWrite
	}
	t, err := e.translate(ea, access)
	if err != nil {
		return 0, false, err
	}
	return t.RA, t.WIMGE&mmu.AttrE != 0, nil
}

// load reads size bytes (1, 2, 4 or 8) at an effective address and
// returns them zero-extended. reverse requests a byte-reversed access.
func (e *Emulator) load(ea uint64, size int, reverse bool) (uint64, error) {
	ra, little, err := e.dataAddress(ea, false)
	if err != nil {
		return 0, err
	}

	var v uint64
	switch size {
	case 1:
		return uint64(e.bus.Read8(ra)), nil
	case 2:
		v = uint64(e.bus.Read16(ra))
	case 4:
		v = uint64(e.bus.Read32(ra))
	default:
		v = e.bus.Read64(ra)
	}
	if little != reverse {
		v = swap(v, size)
	}
	return v, nil
}

// store writes the low size bytes of v at an effective address.
func (e *Emulator) store(ea uint64, size int, v uint64, reverse bool) error {
	ra, little, err := e.dataAddress(ea, true)
	if err != nil {
		return err
	}

	if size > 1 && little != reverse {
		v = swap(v, size)
	}
	switch size {
	case 1:
		e.bus.Write8(ra, uint8(v))
	case 2:
		e.bus.Write16(ra, uint16(v))
	case 4:
		e.bus.Write32(ra, uint32(v))
	default:
		e.bus.Write64(ra, v)
	}
	return nil
}

func swap(v uint64, size int) uint64 {
	switch size {
	case 2:
		return uint64(bits.ReverseBytes16(uint16(v)))
	case 4:
		return uint64(bits.ReverseBytes32(uint32(v)))
	case 8:
		return bits.ReverseBytes64(v)
	}
	return v
}
