package emu

import (
	"math"
	"math/bits"

	"github.com/sarchlab/e500sim/insts"
)

// xoResult is what an XO-form computation produces before the form
// decides which flags to commit.
type xoResult struct {
	value uint64
	ca    bool
	ov    bool

	// keep leaves the destination unmodified (divide overflow).
	keep bool
}

// xoFamily is one arithmetic base mnemonic. Each family is registered in
// four forms: plain, record ("."), overflow ("o") and both ("o.").
type xoFamily struct {
	name     string
	operands int
	setsCA   bool
	compute  func(e *Emulator, ops []insts.Operand) xoResult
}

var xoForms = []struct {
	suffix   string
	overflow bool
	record   bool
}{
	{"", false, false},
	{".", false, true},
	{"o", true, false},
	{"o.", true, true},
}

func registerXO(t *DispatchTable, f xoFamily) {
	for _, form := range xoForms {
		t.register(f.name+form.suffix, f.operands, xoBehavior(f, form.overflow, form.record))
	}
}

func xoBehavior(f xoFamily, overflow, record bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		r := f.compute(e, ops)
		if !r.keep {
			e.setGPR(ops, 0, r.value)
		}
		if f.setsCA {
			e.setCA(r.ca)
		}
		if overflow {
			e.setOV(r.ov)
		}
		if record {
			e.updateCR0(e.gpr(ops, 0))
		}
		return nil
	}
}

// adder builds the compute function of an add-class family from its
// three inputs. Subtraction is a + ^b + 1.
func adder(inputs func(e *Emulator, ops []insts.Operand) (a, b, cin uint64)) func(*Emulator, []insts.Operand) xoResult {
	return func(e *Emulator, ops []insts.Operand) xoResult {
		a, b, cin := inputs(e, ops)
		sum, ca, ov := addWithCarry(a, b, cin, e.width())
		return xoResult{value: sum, ca: ca, ov: ov}
	}
}

func (e *Emulator) carryIn() uint64 {
	if e.regFile.CA() {
		return 1
	}
	return 0
}

func registerArith(t *DispatchTable) {
	families := []xoFamily{
		{name: "add", operands: 3, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return e.gpr(ops, 1), e.gpr(ops, 2), 0
		})},
		{name: "addc", operands: 3, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return e.gpr(ops, 1), e.gpr(ops, 2), 0
		})},
		{name: "adde", operands: 3, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return e.gpr(ops, 1), e.gpr(ops, 2), e.carryIn()
		})},
		{name: "addme", operands: 2, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return e.gpr(ops, 1), math.MaxUint64, e.carryIn()
		})},
		{name: "addze", operands: 2, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return e.gpr(ops, 1), 0, e.carryIn()
		})},
		{name: "subf", operands: 3, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return ^e.gpr(ops, 1), e.gpr(ops, 2), 1
		})},
		{name: "subfc", operands: 3, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return ^e.gpr(ops, 1), e.gpr(ops, 2), 1
		})},
		{name: "subfe", operands: 3, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return ^e.gpr(ops, 1), e.gpr(ops, 2), e.carryIn()
		})},
		{name: "subfme", operands: 2, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return ^e.gpr(ops, 1), math.MaxUint64, e.carryIn()
		})},
		{name: "subfze", operands: 2, setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return ^e.gpr(ops, 1), 0, e.carryIn()
		})},
		{name: "neg", operands: 2, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
			return ^e.gpr(ops, 1), 0, 1
		})},
		{name: "mullw", operands: 3, compute: mullw},
		{name: "divw", operands: 3, compute: divw},
		{name: "divwu", operands: 3, compute: divwu},
	}
	for _, f := range families {
		registerXO(t, f)
	}

	// Immediate carriers share the add-with-carry core.
	addic := xoFamily{setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
		return e.gpr(ops, 1), uint64(imm(ops, 2)), 0
	})}
	subfic := xoFamily{setsCA: true, compute: adder(func(e *Emulator, ops []insts.Operand) (uint64, uint64, uint64) {
		return ^e.gpr(ops, 1), uint64(imm(ops, 2)), 1
	})}
	t.register("addic", 3, xoBehavior(addic, false, false))
	t.register("addic.", 3, xoBehavior(addic, false, true))
	t.register("subfic", 3, xoBehavior(subfic, false, false))

	t.register("addi", 3, func(e *Emulator, ops []insts.Operand) error {
		e.setGPR(ops, 0, e.gprOrZero(ops, 1)+uint64(imm(ops, 2)))
		return nil
	})
	t.register("addis", 3, func(e *Emulator, ops []insts.Operand) error {
		e.setGPR(ops, 0, e.gprOrZero(ops, 1)+uint64(imm(ops, 2)<<16))
		return nil
	})
	t.register("mulli", 3, func(e *Emulator, ops []insts.Operand) error {
		e.setGPR(ops, 0, uint64(int64(e.gpr(ops, 1))*imm(ops, 2)))
		return nil
	})

	t.register("mulhw", 3, mulhw(false))
	t.register("mulhw.", 3, mulhw(true))
	t.register("mulhwu", 3, mulhwu(false))
	t.register("mulhwu.", 3, mulhwu(true))
}

// mullw keeps the full 64-bit product of the signed low words; OV reports
// that it does not fit in 32 bits.
func mullw(e *Emulator, ops []insts.Operand) xoResult {
	p := int64(int32(e.gpr(ops, 1))) * int64(int32(e.gpr(ops, 2)))
	return xoResult{value: uint64(p), ov: p != int64(int32(p))}
}

// divw leaves the destination unmodified and reports overflow on division
// by zero and on MinInt32 / -1.
func divw(e *Emulator, ops []insts.Operand) xoResult {
	a, b := int32(e.gpr(ops, 1)), int32(e.gpr(ops, 2))
	if b == 0 || a == math.MinInt32 && b == -1 {
		return xoResult{ov: true, keep: true}
	}
	return xoResult{value: uint64(int64(a / b))}
}

func divwu(e *Emulator, ops []insts.Operand) xoResult {
	a, b := uint32(e.gpr(ops, 1)), uint32(e.gpr(ops, 2))
	if b == 0 {
		return xoResult{ov: true, keep: true}
	}
	return xoResult{value: uint64(a / b)}
}

func mulhw(record bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		p := int64(int32(e.gpr(ops, 1))) * int64(int32(e.gpr(ops, 2)))
		e.setGPR(ops, 0, uint64(p>>32))
		if record {
			e.updateCR0(e.gpr(ops, 0))
		}
		return nil
	}
}

func mulhwu(record bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		hi, _ := bits.Mul32(uint32(e.gpr(ops, 1)), uint32(e.gpr(ops, 2)))
		e.setGPR(ops, 0, uint64(hi))
		if record {
			e.updateCR0(e.gpr(ops, 0))
		}
		return nil
	}
}

// Logical operations. Operand order is rA, rS, rB: the destination is
// first, as written in assembler syntax.

func registerLogical(t *DispatchTable) {
	binary := map[string]func(s, b uint64) uint64{
		"and":  func(s, b uint64) uint64 { return s & b },
		"andc": func(s, b uint64) uint64 { return s &^ b },
		"or":   func(s, b uint64) uint64 { return s | b },
		"orc":  func(s, b uint64) uint64 { return s | ^b },
		"xor":  func(s, b uint64) uint64 { return s ^ b },
		"nand": func(s, b uint64) uint64 { return ^(s & b) },
		"nor":  func(s, b uint64) uint64 { return ^(s | b) },
		"eqv":  func(s, b uint64) uint64 { return ^(s ^ b) },
	}
	for name, fn := range binary {
		op := func(e *Emulator, ops []insts.Operand) uint64 {
			return fn(e.gpr(ops, 1), e.gpr(ops, 2))
		}
		t.register(name, 3, logical(op, false))
		t.register(name+".", 3, logical(op, true))
	}

	unary := map[string]func(s uint64) uint64{
		"extsb":  func(s uint64) uint64 { return uint64(int64(int8(s))) },
		"extsh":  func(s uint64) uint64 { return uint64(int64(int16(s))) },
		"cntlzw": func(s uint64) uint64 { return uint64(bits.LeadingZeros32(uint32(s))) },
	}
	for name, fn := range unary {
		op := func(e *Emulator, ops []insts.Operand) uint64 {
			return fn(e.gpr(ops, 1))
		}
		t.register(name, 2, logical(op, false))
		t.register(name+".", 2, logical(op, true))
	}

	immediate := []struct {
		name   string
		record bool
		fn     func(s, u uint64) uint64
	}{
		{"andi.", true, func(s, u uint64) uint64 { return s & u }},
		{"andis.", true, func(s, u uint64) uint64 { return s & (u << 16) }},
		{"ori", false, func(s, u uint64) uint64 { return s | u }},
		{"oris", false, func(s, u uint64) uint64 { return s | u<<16 }},
		{"xori", false, func(s, u uint64) uint64 { return s ^ u }},
		{"xoris", false, func(s, u uint64) uint64 { return s ^ u<<16 }},
	}
	for _, i := range immediate {
		fn := i.fn
		op := func(e *Emulator, ops []insts.Operand) uint64 {
			return fn(e.gpr(ops, 1), uimm16(ops, 2))
		}
		t.register(i.name, 3, logical(op, i.record))
	}
}

func logical(op func(e *Emulator, ops []insts.Operand) uint64, record bool) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		v := op(e, ops)
		e.setGPR(ops, 0, v)
		if record {
			e.updateCR0(v)
		}
		return nil
	}
}
