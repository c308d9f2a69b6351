package emu

import (
	"fmt"
	"sync"

	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/insts"
)

// Handler executes one instruction against an emulator. It reads its
// operands positionally; a returned error aborts the instruction with the
// next instruction pointer unchanged.
type Handler func(e *Emulator, ops []insts.Operand) error

type dispatchEntry struct {
	handler  Handler
	operands int
}

// DispatchTable maps every Op to its behavior. It is built once and
// shared read-only by all emulators.
type DispatchTable struct {
	entries []dispatchEntry
}

var (
	dispatchOnce  sync.Once
	dispatchTable *DispatchTable
)

// Dispatch returns the shared dispatch table.
func Dispatch() *DispatchTable {
	dispatchOnce.Do(func() {
		dispatchTable = newDispatchTable()
	})
	return dispatchTable
}

func newDispatchTable() *DispatchTable {
	t := &DispatchTable{entries: make([]dispatchEntry, insts.NumOps())}

	registerArith(t)
	registerLogical(t)
	registerCompare(t)
	registerRotate(t)
	registerBranch(t)
	registerCondReg(t)
	registerLoadStore(t)
	registerAtomic(t)
	registerSystem(t)
	registerTrap(t)
	registerTLB(t)
	registerCacheOps(t)
	registerSPE(t)

	return t
}

// register binds a mnemonic to a handler. operands is the minimum operand
// count the handler reads.
func (t *DispatchTable) register(mnemonic string, operands int, h Handler) {
	op := insts.MustLookup(mnemonic)
	if t.entries[op].handler != nil {
		panic("emu: duplicate handler for " + mnemonic)
	}
	t.entries[op] = dispatchEntry{handler: h, operands: operands}
}

// Lookup returns the handler for op and the minimum operand count.
func (t *DispatchTable) Lookup(op insts.Op) (Handler, int, bool) {
	if int(op) >= len(t.entries) || t.entries[op].handler == nil {
		return nil, 0, false
	}
	entry := t.entries[op]
	return entry.handler, entry.operands, true
}

// Missing returns every Op without a handler.
func (t *DispatchTable) Missing() []insts.Op {
	var missing []insts.Op
	for _, op := range insts.Ops() {
		if _, _, ok := t.Lookup(op); !ok {
			missing = append(missing, op)
		}
	}
	return missing
}

// Operand accessors.

func reg(ops []insts.Operand, i int) uint8 {
	return uint8(ops[i].Value) & 31
}

func imm(ops []insts.Operand, i int) int64 {
	return ops[i].Value
}

func uimm16(ops []insts.Operand, i int) uint64 {
	return uint64(ops[i].Value) & 0xFFFF
}

func (e *Emulator) gpr(ops []insts.Operand, i int) uint64 {
	return e.regFile.GPR[reg(ops, i)]
}

// gprOrZero reads rA, where r0 means the value zero.
func (e *Emulator) gprOrZero(ops []insts.Operand, i int) uint64 {
	r := reg(ops, i)
	if r == 0 {
		return 0
	}
	return e.regFile.GPR[r]
}

// setGPR writes an integer result to operand i. In 32-bit mode only the
// low word is written and the upper word, the SPE high lane, is kept.
func (e *Emulator) setGPR(ops []insts.Operand, i int, v uint64) {
	e.writeGPR(reg(ops, i), v)
}

// setGPR64 writes all 64 bits of operand i regardless of mode.
func (e *Emulator) setGPR64(ops []insts.Operand, i int, v uint64) {
	e.regFile.GPR[reg(ops, i)] = v
}

func (e *Emulator) writeGPR(r uint8, v uint64) {
	if e.is64() {
		e.regFile.GPR[r] = v
		return
	}
	e.regFile.GPR[r] = e.regFile.GPR[r]&^0xFFFFFFFF | v&0xFFFFFFFF
}

// optional returns operand i, or def when it was omitted.
func optional(ops []insts.Operand, i int, def int64) int64 {
	if i < len(ops) {
		return ops[i].Value
	}
	return def
}

// Handler wrappers.

// privileged rejects the instruction in user mode.
func privileged(mnemonic string, h Handler) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		if e.regFile.UserMode() {
			return fault.Privileged("%s in user mode", mnemonic)
		}
		return h(e, ops)
	}
}

// speEnabled rejects the instruction while MSR[SPE] is clear.
func speEnabled(mnemonic string, h Handler) Handler {
	return func(e *Emulator, ops []insts.Operand) error {
		if e.regFile.MSR&MSRSPE == 0 {
			return fault.SPEUnavailable(mnemonic)
		}
		return h(e, ops)
	}
}

func illegalForm(mnemonic, format string, args ...any) error {
	return fault.Illegal("%s: %s", mnemonic, fmt.Sprintf(format, args...))
}
