package insts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnknownMnemonic is returned when a line names no known instruction.
var ErrUnknownMnemonic = errors.New("unknown mnemonic")

var (
	regPattern   = regexp.MustCompile(`^r([0-9]|[12][0-9]|3[01])$`)
	crPattern    = regexp.MustCompile(`^cr([0-7])$`)
	dispPattern  = regexp.MustCompile(`^(.*)\((r?[0-9]+)\)$`)
	labelPattern = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Parse parses one line of assembler syntax into a decoded instruction.
// Labels are not accepted; use ParseProgram for multi-line input.
func Parse(line string) (*Instruction, error) {
	mnemonic, fields := splitLine(line)
	if mnemonic == "" {
		return nil, fmt.Errorf("empty instruction")
	}
	return parseFields(mnemonic, fields, nil, 0)
}

// MustParse is like Parse but panics on error.
func MustParse(line string) *Instruction {
	inst, err := Parse(line)
	if err != nil {
		panic(err)
	}
	return inst
}

// Program is a sequence of decoded instructions laid out contiguously from
// Base, four bytes apart.
type Program struct {
	Base         uint64
	Instructions []*Instruction
	Labels       map[string]uint64
}

// ParseProgram reads an assembler listing. Each non-blank line holds an
// optional "label:" and an optional instruction. Branch targets may name a
// label; relative forms receive the byte offset from the branch, absolute
// forms (ba, bla, bca, bcla) the label address.
func ParseProgram(r io.Reader, base uint64) (*Program, error) {
	type pending struct {
		lineNo   int
		mnemonic string
		fields   []string
	}

	prog := &Program{Base: base, Labels: map[string]uint64{}}
	var lines []pending

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := stripComment(scanner.Text())
		for {
			idx := strings.Index(text, ":")
			if idx < 0 {
				break
			}
			label := strings.TrimSpace(text[:idx])
			if !labelPattern.MatchString(label) {
				return nil, fmt.Errorf("line %d: bad label %q", lineNo, label)
			}
			if _, dup := prog.Labels[label]; dup {
				return nil, fmt.Errorf("line %d: duplicate label %q", lineNo, label)
			}
			prog.Labels[label] = base + 4*uint64(len(lines))
			text = text[idx+1:]
		}

		mnemonic, fields := splitLine(text)
		if mnemonic == "" {
			continue
		}
		lines = append(lines, pending{lineNo: lineNo, mnemonic: mnemonic, fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	for i, l := range lines {
		addr := base + 4*uint64(i)
		inst, err := parseFields(l.mnemonic, l.fields, prog.Labels, addr)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.lineNo, err)
		}
		prog.Instructions = append(prog.Instructions, inst)
	}

	return prog, nil
}

func stripComment(line string) string {
	if idx := strings.IndexAny(line, "#;"); idx >= 0 {
		line = line[:idx]
	}
	return line
}

func splitLine(line string) (string, []string) {
	line = strings.TrimSpace(stripComment(line))
	if line == "" {
		return "", nil
	}
	mnemonic, rest, _ := strings.Cut(line, " ")
	if tab := strings.IndexByte(mnemonic, '\t'); tab >= 0 {
		rest = mnemonic[tab+1:] + " " + rest
		mnemonic = mnemonic[:tab]
	}
	rest = strings.TrimSpace(rest)

	var fields []string
	if rest != "" {
		for _, f := range strings.Split(rest, ",") {
			fields = append(fields, strings.TrimSpace(f))
		}
	}
	return strings.ToLower(mnemonic), fields
}

func parseFields(mnemonic string, fields []string, labels map[string]uint64, addr uint64) (*Instruction, error) {
	if _, ok := simplified[mnemonic]; !ok {
		if _, ok := Lookup(mnemonic); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMnemonic, mnemonic)
		}
	}

	absolute := false
	switch mnemonic {
	case "ba", "bla", "bca", "bcla":
		absolute = true
	}

	var operands []Operand
	for _, f := range fields {
		ops, err := parseOperand(f, labels, addr, absolute)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mnemonic, err)
		}
		operands = append(operands, ops...)
	}

	if expand, ok := simplified[mnemonic]; ok {
		name, expanded, err := expand(operands)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mnemonic, err)
		}
		mnemonic, operands = name, expanded
	}

	op, ok := Lookup(mnemonic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMnemonic, mnemonic)
	}
	return New(op, operands...), nil
}

func parseOperand(f string, labels map[string]uint64, addr uint64, absolute bool) ([]Operand, error) {
	lower := strings.ToLower(f)

	if m := regPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return []Operand{Reg(uint8(n))}, nil
	}
	if m := crPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return []Operand{Imm(int64(n))}, nil
	}
	if m := dispPattern.FindStringSubmatch(lower); m != nil {
		disp := int64(0)
		if s := strings.TrimSpace(m[1]); s != "" {
			v, err := parseNumber(s)
			if err != nil {
				return nil, err
			}
			disp = v
		}
		n, err := strconv.Atoi(strings.TrimPrefix(m[2], "r"))
		if err != nil || n > 31 {
			return nil, fmt.Errorf("bad base register %q", m[2])
		}
		return []Operand{Imm(disp), Reg(uint8(n))}, nil
	}
	if v, err := parseNumber(f); err == nil {
		return []Operand{Imm(v)}, nil
	}
	if target, ok := labels[f]; ok {
		if absolute {
			return []Operand{Imm(int64(target))}, nil
		}
		return []Operand{Imm(int64(target - addr))}, nil
	}
	return nil, fmt.Errorf("bad operand %q", f)
}

func parseNumber(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return v, nil
	}
	u, uerr := strconv.ParseUint(s, 0, 64)
	if uerr == nil {
		return int64(u), nil
	}
	return 0, err
}
