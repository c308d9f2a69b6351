// Package main provides the entry point for e500sim.
// e500sim is a functional e500v2 PowerPC core emulator.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/e500sim/emu"
	"github.com/sarchlab/e500sim/insts"
)

// bootBase is the start of the boot page, mapped 1:1 at reset.
const bootBase = 0xFFFFF000

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes the program and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("e500sim", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to core configuration JSON file")
	verbose := flags.Bool("v", false, "Verbose output (trace every instruction)")
	dump := flags.Bool("dump", false, "Print the register state after the run")
	base := flags.String("base", "", "Load address (default: boot page, or 0x1000 without translation)")
	noTranslate := flags.Bool("notranslate", false, "Use effective addresses as real addresses")
	maxInsts := flags.Uint64("max", 0, "Stop after this many instructions (0: no limit)")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: e500sim [options] <program.s>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() < 1 {
		flags.Usage()
		return 1
	}
	programPath := flags.Arg(0)

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	config := emu.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = emu.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
			return 1
		}
	}
	if *noTranslate {
		config.Translation = false
	}
	loadBase := uint64(bootBase)
	if !config.Translation {
		loadBase = 0x1000
	}
	if *base != "" {
		v, err := strconv.ParseUint(*base, 0, 64)
		if err != nil || v&3 != 0 {
			fmt.Fprintf(stderr, "Invalid load address %q\n", *base)
			return 1
		}
		loadBase = v
	}

	prog, err := loadProgram(programPath, loadBase)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	logger.WithFields(logrus.Fields{
		"program":      programPath,
		"base":         fmt.Sprintf("0x%X", prog.Base),
		"instructions": len(prog.Instructions),
		"translation":  config.Translation,
	}).Info("loaded")

	opts := []emu.EmulatorOption{
		emu.WithConfig(config),
		emu.WithLogger(logger),
		emu.WithStdout(stdout),
		emu.WithStderr(stderr),
	}
	if *maxInsts > 0 {
		opts = append(opts, emu.WithMaxInstructions(*maxInsts))
	}
	emulator, err := emu.NewEmulator(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating emulator: %v\n", err)
		return 1
	}
	emulator.LoadAssembly(prog)

	exitCode := emulator.Run()

	if *verbose {
		fmt.Fprintf(stdout, "\nProgram: %s\n", programPath)
		fmt.Fprintf(stdout, "Exit code: %d\n", exitCode)
		fmt.Fprintf(stdout, "Instructions executed: %d\n", emulator.InstructionCount())
	}
	if *dump {
		printer := pp.New()
		printer.SetOutput(stdout)
		printer.SetColoringEnabled(false)
		printer.Println(snapshot(emulator))
	}

	return int(exitCode)
}

func loadProgram(path string, base uint64) (*insts.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return insts.ParseProgram(f, base)
}

// state is the register snapshot printed by -dump.
type state struct {
	PC           string
	MSR          string
	CR           string
	XER          string
	LR           string
	CTR          string
	ACC          string
	GPR          map[string]string
	SPR          map[string]string
	Instructions uint64
	TimeBase     uint64
}

func snapshot(e *emu.Emulator) state {
	r := e.RegFile()
	hex := func(v uint64) string { return fmt.Sprintf("0x%X", v) }

	s := state{
		PC:           hex(r.PC),
		MSR:          hex(r.MSR),
		CR:           hex(uint64(r.CR)),
		XER:          hex(r.XER),
		LR:           hex(r.LR),
		CTR:          hex(r.CTR),
		ACC:          hex(r.ACC),
		GPR:          map[string]string{},
		SPR:          map[string]string{},
		Instructions: e.InstructionCount(),
		TimeBase:     e.TimeBase(),
	}
	for i, v := range r.GPR {
		if v != 0 {
			s.GPR["r"+strconv.Itoa(i)] = hex(v)
		}
	}
	for n, v := range r.SPR {
		if v == 0 {
			continue
		}
		if name := emu.SPRName(n); name != "" {
			s.SPR[name] = hex(v)
		}
	}
	return s
}
