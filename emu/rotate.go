package emu

import (
	"math/bits"

	"github.com/sarchlab/e500sim/insts"
)

// mask32 returns the word mask with bits mb through me set, bit 0 being
// the most significant. When mb > me the mask wraps around.
func mask32(mb, me uint) uint32 {
	mb &= 31
	me &= 31
	head := uint32(0xFFFFFFFF) >> mb
	tail := uint32(0xFFFFFFFF) << (31 - me)
	if mb <= me {
		return head & tail
	}
	return head | tail
}

func registerRotate(t *DispatchTable) {
	rotates := map[string]func(e *Emulator, ops []insts.Operand) uint64{
		// rlwinm rA, rS, SH, MB, ME
		"rlwinm": func(e *Emulator, ops []insts.Operand) uint64 {
			r := bits.RotateLeft32(uint32(e.gpr(ops, 1)), int(imm(ops, 2)&31))
			return uint64(r & mask32(uint(imm(ops, 3)), uint(imm(ops, 4))))
		},
		// rlwnm rA, rS, rB, MB, ME
		"rlwnm": func(e *Emulator, ops []insts.Operand) uint64 {
			r := bits.RotateLeft32(uint32(e.gpr(ops, 1)), int(e.gpr(ops, 2)&31))
			return uint64(r & mask32(uint(imm(ops, 3)), uint(imm(ops, 4))))
		},
		// rlwimi rA, rS, SH, MB, ME inserts under the mask.
		"rlwimi": func(e *Emulator, ops []insts.Operand) uint64 {
			r := bits.RotateLeft32(uint32(e.gpr(ops, 1)), int(imm(ops, 2)&31))
			m := mask32(uint(imm(ops, 3)), uint(imm(ops, 4)))
			return uint64(r&m | uint32(e.gpr(ops, 0))&^m)
		},
		// slw rA, rS, rB: shift amounts 32-63 give zero.
		"slw": func(e *Emulator, ops []insts.Operand) uint64 {
			n := e.gpr(ops, 2) & 0x3F
			if n > 31 {
				return 0
			}
			return uint64(uint32(e.gpr(ops, 1)) << n)
		},
		"srw": func(e *Emulator, ops []insts.Operand) uint64 {
			n := e.gpr(ops, 2) & 0x3F
			if n > 31 {
				return 0
			}
			return uint64(uint32(e.gpr(ops, 1)) >> n)
		},
		"sraw": func(e *Emulator, ops []insts.Operand) uint64 {
			return e.shiftRightAlgebraic(uint32(e.gpr(ops, 1)), uint(e.gpr(ops, 2)&0x3F))
		},
		"srawi": func(e *Emulator, ops []insts.Operand) uint64 {
			return e.shiftRightAlgebraic(uint32(e.gpr(ops, 1)), uint(imm(ops, 2)&31))
		},
	}

	operands := map[string]int{"rlwinm": 5, "rlwnm": 5, "rlwimi": 5}
	for name, fn := range rotates {
		n := operands[name]
		if n == 0 {
			n = 3
		}
		t.register(name, n, logical(fn, false))
		t.register(name+".", n, logical(fn, true))
	}
}

// shiftRightAlgebraic shifts a word right by n (0-63), sign-extends the
// result to 64 bits and sets CA when the word is negative and any 1 bit
// was shifted out.
func (e *Emulator) shiftRightAlgebraic(v uint32, n uint) uint64 {
	s := int32(v)
	if n > 31 {
		e.setCA(s < 0)
		return uint64(int64(s >> 31))
	}
	lost := v&(1<<n-1) != 0
	e.setCA(s < 0 && lost)
	return uint64(int64(s >> n))
}
