package insts

import (
	"fmt"
	"strings"
)

// OperandKind tells whether an operand names a register or carries an
// immediate value.
type OperandKind uint8

// Operand kinds.
const (
	OperandReg OperandKind = iota
	OperandImm
)

// Operand is one entry of a decoded operand list.
type Operand struct {
	Kind  OperandKind
	Value int64
}

// Reg returns a register operand.
func Reg(index uint8) Operand {
	return Operand{Kind: OperandReg, Value: int64(index)}
}

// Imm returns an immediate operand.
func Imm(value int64) Operand {
	return Operand{Kind: OperandImm, Value: value}
}

// IsReg reports whether the operand names a register.
func (o Operand) IsReg() bool {
	return o.Kind == OperandReg
}

func (o Operand) String() string {
	if o.Kind == OperandReg {
		return fmt.Sprintf("r%d", o.Value)
	}
	return fmt.Sprintf("%d", o.Value)
}

// Instruction is a decoded instruction.
type Instruction struct {
	Op       Op
	Operands []Operand
}

// New builds a decoded instruction.
func New(op Op, operands ...Operand) *Instruction {
	return &Instruction{Op: op, Operands: operands}
}

func (i *Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Op.String()
	}
	parts := make([]string, len(i.Operands))
	for n, o := range i.Operands {
		parts[n] = o.String()
	}
	return i.Op.String() + " " + strings.Join(parts, ",")
}
