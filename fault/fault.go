// Package fault defines the exception values raised by instruction
// behaviors and by the MMU.
//
// An Exception is returned as an error. The fetch-execute loop that owns
// the core recovers it with errors.As and performs the architectural
// save-registers-and-vector sequence; nothing inside the core catches its
// own exceptions.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an exception.
type Kind uint8

// Exception kinds.
const (
	KindProgram Kind = iota // illegal or privileged instruction form
	KindTrap
	KindSystemCall
	KindInstructionStorage
	KindDataStorageRead
	KindDataStorageWrite
	KindInstructionTLBMiss
	KindDataTLBMiss
	KindSPEUnavailable
	KindUnimplemented // the model declines to execute the opcode
)

var kindNames = [...]string{
	KindProgram:            "program",
	KindTrap:               "trap",
	KindSystemCall:         "system-call",
	KindInstructionStorage: "instruction-storage",
	KindDataStorageRead:    "data-storage-read",
	KindDataStorageWrite:   "data-storage-write",
	KindInstructionTLBMiss: "instruction-tlb-miss",
	KindDataTLBMiss:        "data-tlb-miss",
	KindSPEUnavailable:     "spe-unavailable",
	KindUnimplemented:      "unimplemented",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IVOR numbers used as the primary exception code.
const (
	IVORDataStorage        = 2
	IVORInstructionStorage = 3
	IVORProgram            = 6
	IVORSystemCall         = 8
	IVORDataTLBError       = 13
	IVORInstructionTLB     = 14
	IVORSPEUnavailable     = 32
)

// ESR cause bits carried as the secondary bitmask.
const (
	ESRPIL uint32 = 0x08000000 // illegal instruction
	ESRPPR uint32 = 0x04000000 // privileged instruction
	ESRPTR uint32 = 0x02000000 // trap
	ESRST  uint32 = 0x00800000 // store operation
	ESRSPV uint32 = 0x00000080 // SPE operation
)

// Exception is an architectural exception raised while executing an
// instruction.
type Exception struct {
	Kind    Kind
	Code    int
	Cause   uint32
	Addr    uint64
	HasAddr bool
	Msg     string
}

func (e *Exception) Error() string {
	if e.HasAddr {
		return fmt.Sprintf("%s exception (ivor %d, cause 0x%08X) at 0x%X: %s",
			e.Kind, e.Code, e.Cause, e.Addr, e.Msg)
	}
	return fmt.Sprintf("%s exception (ivor %d, cause 0x%08X): %s",
		e.Kind, e.Code, e.Cause, e.Msg)
}

// IsFatal reports whether the exception should halt the host tool instead
// of being delivered to the guest.
func (e *Exception) IsFatal() bool {
	return e.Kind == KindUnimplemented
}

// Illegal reports an illegal instruction form.
func Illegal(format string, args ...any) *Exception {
	return &Exception{
		Kind:  KindProgram,
		Code:  IVORProgram,
		Cause: ESRPIL,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// Privileged reports a supervisor-only instruction or register accessed
// from user mode.
func Privileged(format string, args ...any) *Exception {
	return &Exception{
		Kind:  KindProgram,
		Code:  IVORProgram,
		Cause: ESRPPR,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// Trap reports a trap instruction whose condition held.
func Trap(format string, args ...any) *Exception {
	return &Exception{
		Kind:  KindTrap,
		Code:  IVORProgram,
		Cause: ESRPTR,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// SystemCall reports an sc instruction.
func SystemCall() *Exception {
	return &Exception{
		Kind: KindSystemCall,
		Code: IVORSystemCall,
		Msg:  "sc",
	}
}

// InstructionStorage reports an execute-permission violation.
func InstructionStorage(addr uint64) *Exception {
	return &Exception{
		Kind:    KindInstructionStorage,
		Code:    IVORInstructionStorage,
		Addr:    addr,
		HasAddr: true,
		Msg:     "execute access denied",
	}
}

// DataStorage reports a read or write permission violation.
func DataStorage(addr uint64, write bool) *Exception {
	if write {
		return &Exception{
			Kind:    KindDataStorageWrite,
			Code:    IVORDataStorage,
			Cause:   ESRST,
			Addr:    addr,
			HasAddr: true,
			Msg:     "write access denied",
		}
	}
	return &Exception{
		Kind:    KindDataStorageRead,
		Code:    IVORDataStorage,
		Addr:    addr,
		HasAddr: true,
		Msg:     "read access denied",
	}
}

// TLBMiss reports that no TLB entry maps addr for any of the process ids
// tried.
func TLBMiss(addr uint64, fetch, write bool) *Exception {
	if fetch {
		return &Exception{
			Kind:    KindInstructionTLBMiss,
			Code:    IVORInstructionTLB,
			Addr:    addr,
			HasAddr: true,
			Msg:     "no translation",
		}
	}
	e := &Exception{
		Kind:    KindDataTLBMiss,
		Code:    IVORDataTLBError,
		Addr:    addr,
		HasAddr: true,
		Msg:     "no translation",
	}
	if write {
		e.Cause = ESRST
	}
	return e
}

// SPEUnavailable reports an SPE instruction executed with MSR[SPE] clear.
func SPEUnavailable(mnemonic string) *Exception {
	return &Exception{
		Kind:  KindSPEUnavailable,
		Code:  IVORSPEUnavailable,
		Cause: ESRSPV,
		Msg:   mnemonic + " with MSR[SPE]=0",
	}
}

// Unimplemented reports an opcode the model does not execute.
func Unimplemented(mnemonic string) *Exception {
	return &Exception{
		Kind: KindUnimplemented,
		Code: -1,
		Msg:  mnemonic + " is not implemented",
	}
}

// As extracts an *Exception from err.
func As(err error) (*Exception, bool) {
	var e *Exception
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsFatal reports whether err carries an unimplemented-opcode exception.
func IsFatal(err error) bool {
	e, ok := As(err)
	return ok && e.IsFatal()
}

// KindOf returns the exception kind carried by err.
func KindOf(err error) (Kind, bool) {
	e, ok := As(err)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
