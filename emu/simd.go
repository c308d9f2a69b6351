package emu

import (
	"math"
	"math/bits"

	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/insts"
)

// SPE instructions treat a GPR as two 32-bit lanes: the high lane is the
// upper word, the low lane the lower word.

func lanes(v uint64) (hi, lo uint32) {
	return uint32(v >> 32), uint32(v)
}

func pack(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// simm5 sign-extends a 5-bit immediate.
func simm5(v int64) int32 {
	s := int32(v & 0x1F)
	if s&0x10 != 0 {
		s -= 32
	}
	return s
}

func registerSPE(t *DispatchTable) {
	spe := func(name string, operands int, h Handler) {
		t.register(name, operands, speEnabled(name, h))
	}

	// rD, rA, rB lane-wise
	binary := map[string]func(a, b uint32) uint32{
		"evaddw":  func(a, b uint32) uint32 { return a + b },
		"evsubfw": func(a, b uint32) uint32 { return b - a },
		"evand":   func(a, b uint32) uint32 { return a & b },
		"evandc":  func(a, b uint32) uint32 { return a &^ b },
		"evor":    func(a, b uint32) uint32 { return a | b },
		"evorc":   func(a, b uint32) uint32 { return a | ^b },
		"evxor":   func(a, b uint32) uint32 { return a ^ b },
		"evnor":   func(a, b uint32) uint32 { return ^(a | b) },
		"eveqv":   func(a, b uint32) uint32 { return ^(a ^ b) },
		"evnand":  func(a, b uint32) uint32 { return ^(a & b) },
		"evslw":   shiftLeftWord,
		"evsrws":  shiftRightSignedWord,
		"evsrwu":  shiftRightWord,
		"evrlw":   func(a, b uint32) uint32 { return bits.RotateLeft32(a, int(b&31)) },
	}
	for name, fn := range binary {
		spe(name, 3, laneBinary(fn))
	}

	// rD, rA, UIMM lane-wise
	immediate := map[string]func(a, b uint32) uint32{
		"evaddiw": func(a, u uint32) uint32 { return a + u },
		"evslwi":  shiftLeftWord,
		"evsrwis": shiftRightSignedWord,
		"evsrwiu": shiftRightWord,
		"evrlwi":  func(a, u uint32) uint32 { return bits.RotateLeft32(a, int(u&31)) },
	}
	for name, fn := range immediate {
		spe(name, 3, laneImmediate(fn))
	}

	// evsubifw rD, UIMM, rB
	spe("evsubifw", 3, func(e *Emulator, ops []insts.Operand) error {
		u := uint32(imm(ops, 1) & 0x1F)
		hi, lo := lanes(e.gpr(ops, 2))
		e.setGPR64(ops, 0, pack(hi-u, lo-u))
		return nil
	})

	// rD, rA lane-wise
	unary := map[string]func(a uint32) uint32{
		"evabs": func(a uint32) uint32 {
			if int32(a) < 0 {
				return -a
			}
			return a
		},
		"evneg":    func(a uint32) uint32 { return -a },
		"evcntlzw": func(a uint32) uint32 { return uint32(bits.LeadingZeros32(a)) },
		"evextsb":  func(a uint32) uint32 { return uint32(int32(int8(a))) },
		"evextsh":  func(a uint32) uint32 { return uint32(int32(int16(a))) },
	}
	for name, fn := range unary {
		spe(name, 2, laneUnary(fn))
	}

	merges := map[string]func(ah, al, bh, bl uint32) (uint32, uint32){
		"evmergehi":   func(ah, al, bh, bl uint32) (uint32, uint32) { return ah, bh },
		"evmergelo":   func(ah, al, bh, bl uint32) (uint32, uint32) { return al, bl },
		"evmergehilo": func(ah, al, bh, bl uint32) (uint32, uint32) { return ah, bl },
		"evmergelohi": func(ah, al, bh, bl uint32) (uint32, uint32) { return al, bh },
	}
	for name, fn := range merges {
		spe(name, 3, func(e *Emulator, ops []insts.Operand) error {
			ah, al := lanes(e.gpr(ops, 1))
			bh, bl := lanes(e.gpr(ops, 2))
			e.setGPR64(ops, 0, pack(fn(ah, al, bh, bl)))
			return nil
		})
	}

	spe("evsplati", 2, func(e *Emulator, ops []insts.Operand) error {
		v := uint32(simm5(imm(ops, 1)))
		e.setGPR64(ops, 0, pack(v, v))
		return nil
	})
	spe("evsplatfi", 2, func(e *Emulator, ops []insts.Operand) error {
		v := uint32(imm(ops, 1)&0x1F) << 27
		e.setGPR64(ops, 0, pack(v, v))
		return nil
	})

	compares := map[string]func(a, b uint32) bool{
		"evcmpeq":  func(a, b uint32) bool { return a == b },
		"evcmpgts": func(a, b uint32) bool { return int32(a) > int32(b) },
		"evcmpgtu": func(a, b uint32) bool { return a > b },
		"evcmplts": func(a, b uint32) bool { return int32(a) < int32(b) },
		"evcmpltu": func(a, b uint32) bool { return a < b },
	}
	for name, fn := range compares {
		spe(name, 3, laneCompare(fn))
	}
	spe("evsel", 4, evsel)

	spe("evmra", 2, func(e *Emulator, ops []insts.Operand) error {
		v := e.gpr(ops, 1)
		e.regFile.ACC = v
		e.setGPR64(ops, 0, v)
		return nil
	})

	accumulators := map[string]func(acc, a uint32) (uint32, bool){
		"evaddssiaaw":  addSignedSaturate,
		"evaddusiaaw":  addUnsignedSaturate,
		"evsubfssiaaw": subSignedSaturate,
		"evsubfusiaaw": subUnsignedSaturate,
	}
	for name, fn := range accumulators {
		spe(name, 2, accumulate(fn))
	}

	signed := func(a, b uint32) uint64 { return uint64(int64(int32(a)) * int64(int32(b))) }
	unsigned := func(a, b uint32) uint64 { return uint64(a) * uint64(b) }
	spe("evmwumi", 3, multiplyWord(unsigned, false, false))
	spe("evmwumia", 3, multiplyWord(unsigned, true, false))
	spe("evmwumiaa", 3, multiplyWord(unsigned, true, true))
	spe("evmwsmi", 3, multiplyWord(signed, false, false))
	spe("evmwsmia", 3, multiplyWord(signed, true, false))
	spe("evmwsmiaa", 3, multiplyWord(signed, true, true))

	spe("evmhessf", 3, multiplyFraction(func(w uint32) int16 { return int16(w >> 16) }))
	spe("evmhossf", 3, multiplyFraction(func(w uint32) int16 { return int16(w) }))

	spe("brinc", 3, brinc)

	for _, name := range []string{"evdivws", "evdivwu"} {
		spe(name, 3, func(e *Emulator, ops []insts.Operand) error {
			return fault.Unimplemented(name)
		})
	}
}

func shiftLeftWord(a, n uint32) uint32 {
	n &= 0x3F
	if n > 31 {
		return 0
	}
	return a << n
}

func shiftRightWord(a, n uint32) uint32 {
	n &= 0x3F
	if n > 31 {
		return 0
	}
	return a >> n
}

func shiftRightSignedWord(a, n uint32) uint32 {
	n &= 0x3F
	if n > 31 {
		n = 31
	}
	return uint32(int32(a) >> n)
}

func laneBinary(fn func(a, b uint32) uint32) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		ah, al := lanes(e.gpr(ops, 1))
		bh, bl := lanes(e.gpr(ops, 2))
		e.setGPR64(ops, 0, pack(fn(ah, bh), fn(al, bl)))
		return nil
	}
}

func laneImmediate(fn func(a, u uint32) uint32) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		u := uint32(imm(ops, 2) & 0x1F)
		ah, al := lanes(e.gpr(ops, 1))
		e.setGPR64(ops, 0, pack(fn(ah, u), fn(al, u)))
		return nil
	}
}

func laneUnary(fn func(a uint32) uint32) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		ah, al := lanes(e.gpr(ops, 1))
		e.setGPR64(ops, 0, pack(fn(ah), fn(al)))
		return nil
	}
}

// laneCompare sets crfD to high, low, high|low, high&low.
func laneCompare(fn func(a, b uint32) bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		ah, al := lanes(e.gpr(ops, 1))
		bh, bl := lanes(e.gpr(ops, 2))
		ch, cl := fn(ah, bh), fn(al, bl)
		var f uint8
		if ch {
			f |= 0x8
		}
		if cl {
			f |= 0x4
		}
		if ch || cl {
			f |= 0x2
		}
		if ch && cl {
			f |= 0x1
		}
		e.regFile.SetCRField(uint8(imm(ops, 0)), f)
		return nil
	}
}

// evsel rD, rA, rB, crfS picks each lane from rA when the matching bit of
// crfS (bit 0 for high, bit 1 for low) is set, else from rB.
func evsel(e *Emulator, ops []insts.Operand) error {
	crf := uint8(imm(ops, 3)) & 7
	ah, al := lanes(e.gpr(ops, 1))
	bh, bl := lanes(e.gpr(ops, 2))
	hi, lo := bh, bl
	if e.regFile.CRBit(4 * crf) {
		hi = ah
	}
	if e.regFile.CRBit(4*crf + 1) {
		lo = al
	}
	e.setGPR64(ops, 0, pack(hi, lo))
	return nil
}

func addSignedSaturate(acc, a uint32) (uint32, bool) {
	return saturateSigned(int64(int32(acc)) + int64(int32(a)))
}

func subSignedSaturate(acc, a uint32) (uint32, bool) {
	return saturateSigned(int64(int32(acc)) - int64(int32(a)))
}

func saturateSigned(s int64) (uint32, bool) {
	switch {
	case s > math.MaxInt32:
		return math.MaxInt32, true
	case s < math.MinInt32:
		return uint32(0x80000000), true
	}
	return uint32(int32(s)), false
}

func addUnsignedSaturate(acc, a uint32) (uint32, bool) {
	s, carry := bits.Add32(acc, a, 0)
	if carry != 0 {
		return math.MaxUint32, true
	}
	return s, false
}

func subUnsignedSaturate(acc, a uint32) (uint32, bool) {
	if a > acc {
		return 0, true
	}
	return acc - a, false
}

// setSPEOverflow records per-lane overflow in SPEFSCR. OVH and OV reflect
// this instruction only; SOVH and SOV are sticky.
func (e *Emulator) setSPEOverflow(ovh, ovl bool) {
	s := e.regFile.SPR[SPRSPEFSCR] &^ (SPEFSCROVH | SPEFSCROV)
	if ovh {
		s |= SPEFSCROVH | SPEFSCRSOVH
	}
	if ovl {
		s |= SPEFSCROV | SPEFSCRSOV
	}
	e.regFile.SPR[SPRSPEFSCR] = s
}

// accumulate builds the rD, rA forms that combine each lane of ACC with
// rA, saturating, and write the result to both rD and ACC.
func accumulate(fn func(acc, a uint32) (uint32, bool)) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		ch, cl := lanes(e.regFile.ACC)
		ah, al := lanes(e.gpr(ops, 1))
		hi, ovh := fn(ch, ah)
		lo, ovl := fn(cl, al)
		v := pack(hi, lo)
		e.setGPR64(ops, 0, v)
		e.regFile.ACC = v
		e.setSPEOverflow(ovh, ovl)
		return nil
	}
}

// multiplyWord builds the low-word integer multiplies. toACC also writes
// ACC; addACC adds the product to ACC first.
func multiplyWord(product func(a, b uint32) uint64, toACC, addACC bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		_, al := lanes(e.gpr(ops, 1))
		_, bl := lanes(e.gpr(ops, 2))
		v := product(al, bl)
		if addACC {
			v += e.regFile.ACC
		}
		e.setGPR64(ops, 0, v)
		if toACC {
			e.regFile.ACC = v
		}
		return nil
	}
}

// multiplyFraction builds the saturating signed fractional halfword
// multiplies. half selects the even (upper) or odd (lower) halfword of a
// lane. -1.0 × -1.0 saturates to the largest positive fraction.
func multiplyFraction(half func(w uint32) int16) Handler {
	frac := func(a, b int16) (uint32, bool) {
		if a == math.MinInt16 && b == math.MinInt16 {
			return math.MaxInt32, true
		}
		return uint32(int32(a) * int32(b) << 1), false
	}
	return func(e *Emulator, ops []insts.Operand) error {
		ah, al := lanes(e.gpr(ops, 1))
		bh, bl := lanes(e.gpr(ops, 2))
		hi, ovh := frac(half(ah), half(bh))
		lo, ovl := frac(half(al), half(bl))
		e.setGPR64(ops, 0, pack(hi, lo))
		e.setSPEOverflow(ovh, ovl)
		return nil
	}
}

// brinc rD, rA, rB computes the bit-reversed increment of the low
// halfword of rA under the mask in the low halfword of rB. The upper bits
// of rA pass through.
func brinc(e *Emulator, ops []insts.Operand) error {
	a := uint16(e.gpr(ops, 1))
	mask := uint16(e.gpr(ops, 2))
	d := bits.Reverse16(bits.Reverse16(a|^mask) + 1)
	e.setGPR64(ops, 0, e.gpr(ops, 1)&^0xFFFF|uint64(d&mask))
	return nil
}
