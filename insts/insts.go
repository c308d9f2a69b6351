// Package insts provides the decoded-instruction record consumed by the
// e500 functional model.
//
// A decoded instruction is an opcode identity plus an ordered operand list.
// Each operand is either a register index or an immediate value, and
// instruction behaviors index the list positionally (position 0 is the
// primary destination where one exists).
//
// Binary decoding is left to an external decoder. For tests and the
// command-line runner the package parses assembler syntax:
//
//	inst, err := insts.Parse("lwzu r3,4(r1)")
//	// inst.Op == insts.MustLookup("lwzu")
//	// inst.Operands == [Reg(3) Imm(4) Reg(1)]
package insts
