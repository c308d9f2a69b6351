package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/insts"
	"github.com/sarchlab/e500sim/mmu"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if the instruction raised an exception the emulator does
	// not handle itself, or if no instruction could be fetched.
	Err error
}

// Emulator executes decoded e500 instructions functionally. One Emulator
// models one core; it is not safe for concurrent use.
type Emulator struct {
	config         *Config
	regFile        *RegFile
	bus            Bus
	mmu            *mmu.MMU
	reservation    Reservation
	table          *DispatchTable
	syscallHandler SyscallHandler
	logger         *logrus.Logger

	// I/O
	stdout io.Writer
	stderr io.Writer

	// program maps real addresses to decoded instructions.
	program map[uint64]*insts.Instruction

	// nextPC is where the instruction being executed continues.
	nextPC uint64

	// Execution state
	instructionCount uint64
	timeBase         uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithConfig sets the core configuration.
func WithConfig(config *Config) EmulatorOption {
	return func(e *Emulator) {
		e.config = config.Clone()
	}
}

// WithLogger sets the logger used for execution tracing.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithBus replaces the default sparse memory.
func WithBus(bus Bus) EmulatorOption {
	return func(e *Emulator) {
		e.bus = bus
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithTranslation enables or disables address translation. It overrides
// the configuration.
func WithTranslation(enabled bool) EmulatorOption {
	return func(e *Emulator) {
		if e.config == nil {
			e.config = DefaultConfig()
		}
		e.config.Translation = enabled
	}
}

// NewEmulator creates a new e500 core. It fails if the configuration does
// not validate.
func NewEmulator(opts ...EmulatorOption) (*Emulator, error) {
	e := &Emulator{
		table:   Dispatch(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		program: make(map[uint64]*insts.Instruction),
	}

	// Apply options first (may set config, bus and stdout/stderr)
	for _, opt := range opts {
		opt(e)
	}

	if e.config == nil {
		e.config = DefaultConfig()
	}
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid emulator config: %w", err)
	}
	if e.maxInstructions == 0 {
		e.maxInstructions = e.config.MaxInstructions
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(io.Discard)
	}
	if e.bus == nil {
		e.bus = NewMemory()
	}

	e.regFile = &RegFile{}
	e.mmu = mmu.New(e.config.MMU, mmu.WithLogger(e.logger))
	e.resetRegisters()

	// If no syscall handler was provided, create a default one
	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(e.regFile, e.bus, e.stdout, e.stderr)
	}

	return e, nil
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Bus returns the emulator's memory bus.
func (e *Emulator) Bus() Bus {
	return e.bus
}

// MMU returns the emulator's translation unit.
func (e *Emulator) MMU() *mmu.MMU {
	return e.mmu
}

// Reservation returns the core's load-reserved state.
func (e *Emulator) Reservation() *Reservation {
	return &e.reservation
}

// Config returns the configuration the core was built with.
func (e *Emulator) Config() *Config {
	return e.config
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// TimeBase returns the timebase counter. It advances once per executed
// instruction.
func (e *Emulator) TimeBase() uint64 {
	return e.timeBase
}

// SetTimeBase sets the timebase counter.
func (e *Emulator) SetTimeBase(tb uint64) {
	e.timeBase = tb
}

// LoadProgram places decoded instructions at consecutive word addresses
// starting at base and sets the PC to base. Addresses are real addresses.
func (e *Emulator) LoadProgram(base uint64, program []*insts.Instruction) {
	for i, inst := range program {
		e.program[base+uint64(4*i)] = inst
	}
	e.regFile.PC = base
}

// LoadAssembly loads a parsed program at its base address.
func (e *Emulator) LoadAssembly(p *insts.Program) {
	e.LoadProgram(p.Base, p.Instructions)
}

// Reset restores the reset state: registers, TLBs, reservation and
// counters. Memory and the loaded program are kept.
func (e *Emulator) Reset() {
	*e.regFile = RegFile{}
	e.mmu.Reset()
	e.reservation.Clear()
	e.instructionCount = 0
	e.timeBase = 0
	e.resetRegisters()
}

func (e *Emulator) resetRegisters() {
	r := e.regFile
	r.MSR = e.config.resetMSR()
	r.PC = e.config.ResetPC
	r.SPR[SPRPVR] = ResetPVR
	r.SPR[SPRSVR] = ResetSVR

	c := e.config.MMU
	minSize, maxSize := uint64(mmu.TSize4K), uint64(mmu.TSize4G)
	r.SPR[SPRTLB0CFG] = uint64(c.TLB0Ways)<<24 | minSize<<20 | minSize<<16 |
		uint64(c.TLB0Sets*c.TLB0Ways)
	r.SPR[SPRTLB1CFG] = uint64(c.TLB1Entries)<<24 | minSize<<20 | maxSize<<16 |
		1<<15 | uint64(c.TLB1Entries)
	// MMUCFG: 8-bit PIDs, three PID registers, two TLBs.
	r.SPR[SPRMMUCFG] = 8<<6 | 3<<11 | 1
}

// Execute runs one decoded instruction at the current PC. On success the
// PC moves to the next instruction and the instruction and timebase
// counters advance. On error the PC and counters are unchanged and the
// error, usually a *fault.Exception, is returned to the caller.
func (e *Emulator) Execute(inst *insts.Instruction) error {
	handler, operands, ok := e.table.Lookup(inst.Op)
	if !ok {
		return fault.Unimplemented(inst.Op.String())
	}
	if len(inst.Operands) < operands {
		return fault.Illegal("%s: want %d operands, got %d",
			inst.Op, operands, len(inst.Operands))
	}

	if e.logger.IsLevelEnabled(logrus.DebugLevel) {
		e.logger.WithFields(logrus.Fields{
			"pc": fmt.Sprintf("0x%X", e.regFile.PC),
			"op": inst.String(),
		}).Debug("execute")
	}

	e.nextPC = e.regFile.PC + 4
	if err := handler(e, inst.Operands); err != nil {
		return err
	}

	e.regFile.PC = e.maskAddr(e.nextPC)
	e.instructionCount++
	e.timeBase++
	return nil
}

// fetch translates the PC and returns the instruction stored there.
func (e *Emulator) fetch() (*insts.Instruction, error) {
	pc := e.regFile.PC
	ra := pc
	if e.config.Translation {
		t, err := e.translate(pc, mmu.AccessExecute)
		if err != nil {
			return nil, err
		}
		ra = t.RA
	}

	inst, ok := e.program[ra]
	if !ok {
		return nil, fmt.Errorf("no instruction at PC=0x%X (real 0x%X)", pc, ra)
	}
	return inst, nil
}

// Step fetches and executes a single instruction. A system call is
// handed to the syscall handler and execution resumes after the sc.
func (e *Emulator) Step() StepResult {
	// Check instruction limit before executing
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("max instructions reached"),
		}
	}

	inst, err := e.fetch()
	if err != nil {
		return StepResult{Err: err}
	}

	err = e.Execute(inst)
	if err == nil {
		return StepResult{}
	}

	if kind, ok := fault.KindOf(err); ok && kind == fault.KindSystemCall {
		return e.systemCall()
	}

	e.logger.WithFields(logrus.Fields{
		"pc":  fmt.Sprintf("0x%X", e.regFile.PC),
		"err": err,
	}).Warn("exception")

	return StepResult{Err: err}
}

// systemCall completes an sc: the PC moves past it and the handler runs.
func (e *Emulator) systemCall() StepResult {
	e.regFile.PC = e.maskAddr(e.regFile.PC + 4)
	e.instructionCount++
	e.timeBase++

	result := e.syscallHandler.Handle()

	return StepResult{
		Exited:   result.Exited,
		ExitCode: result.ExitCode,
	}
}

// Run executes instructions until the program exits or an error occurs.
// Returns the exit code (-1 if error).
func (e *Emulator) Run() int64 {
	for {
		result := e.Step()
		if result.Exited {
			return result.ExitCode
		}
		if result.Err != nil {
			_, _ = fmt.Fprintf(e.stderr, "Emulation error: %v\n", result.Err)
			return -1
		}
	}
}
