package insts

import "fmt"

type expander func(ops []Operand) (string, []Operand, error)

func want(n int, ops []Operand) error {
	if len(ops) != n {
		return fmt.Errorf("expected %d operands, got %d", n, len(ops))
	}
	return nil
}

// rename maps a simplified mnemonic onto a base one with reordered
// operands. order holds indices into the parsed operands; a negative index
// inserts Imm(-index-1).
func rename(name string, n int, order ...int) expander {
	return func(ops []Operand) (string, []Operand, error) {
		if err := want(n, ops); err != nil {
			return "", nil, err
		}
		out := make([]Operand, 0, len(order))
		for _, i := range order {
			if i < 0 {
				out = append(out, Imm(int64(-i-1)))
				continue
			}
			out = append(out, ops[i])
		}
		return name, out, nil
	}
}

func moveSPR(name string, spr int64, toSPR bool) expander {
	return func(ops []Operand) (string, []Operand, error) {
		if err := want(1, ops); err != nil {
			return "", nil, err
		}
		if toSPR {
			return name, []Operand{Imm(spr), ops[0]}, nil
		}
		return name, []Operand{ops[0], Imm(spr)}, nil
	}
}

// compareWord expands cmpw/cmplw/cmpwi/cmplwi with an optional leading
// CR field.
func compareWord(name string) expander {
	return func(ops []Operand) (string, []Operand, error) {
		switch len(ops) {
		case 2:
			return name, []Operand{Imm(0), Imm(0), ops[0], ops[1]}, nil
		case 3:
			return name, []Operand{ops[0], Imm(0), ops[1], ops[2]}, nil
		}
		return "", nil, fmt.Errorf("expected 2 or 3 operands, got %d", len(ops))
	}
}

// condBranch expands beq/bne/... with an optional leading CR field.
func condBranch(name string, bo, bit int64) expander {
	return func(ops []Operand) (string, []Operand, error) {
		cr := int64(0)
		switch len(ops) {
		case 1:
		case 2:
			cr = ops[0].Value
			ops = ops[1:]
		default:
			return "", nil, fmt.Errorf("expected 1 or 2 operands, got %d", len(ops))
		}
		return name, []Operand{Imm(bo), Imm(4*cr + bit), ops[0]}, nil
	}
}

func shiftImm(build func(n int64) (sh, mb, me int64)) expander {
	return func(ops []Operand) (string, []Operand, error) {
		if err := want(3, ops); err != nil {
			return "", nil, err
		}
		sh, mb, me := build(ops[2].Value)
		return "rlwinm", []Operand{ops[0], ops[1], Imm(sh), Imm(mb), Imm(me)}, nil
	}
}

var simplified = map[string]expander{
	"nop":  rename("ori", 0, -1, -1, -1),
	"li":   rename("addi", 2, 0, -1, 1),
	"lis":  rename("addis", 2, 0, -1, 1),
	"la":   rename("addi", 3, 0, 2, 1),
	"mr":   rename("or", 2, 0, 1, 1),
	"mr.":  rename("or.", 2, 0, 1, 1),
	"not":  rename("nor", 2, 0, 1, 1),
	"sub":  rename("subf", 3, 0, 2, 1),
	"subc": rename("subfc", 3, 0, 2, 1),
	"subi": func(ops []Operand) (string, []Operand, error) {
		if err := want(3, ops); err != nil {
			return "", nil, err
		}
		return "addi", []Operand{ops[0], ops[1], Imm(-ops[2].Value)}, nil
	},

	"cmpw":   compareWord("cmp"),
	"cmplw":  compareWord("cmpl"),
	"cmpwi":  compareWord("cmpi"),
	"cmplwi": compareWord("cmpli"),

	"slwi":   shiftImm(func(n int64) (int64, int64, int64) { return n, 0, 31 - n }),
	"srwi":   shiftImm(func(n int64) (int64, int64, int64) { return (32 - n) & 31, n, 31 }),
	"clrlwi": shiftImm(func(n int64) (int64, int64, int64) { return 0, n, 31 }),
	"rotlwi": shiftImm(func(n int64) (int64, int64, int64) { return n, 0, 31 }),

	"blr":   rename("bclr", 0, -21, -1),
	"blrl":  rename("bclrl", 0, -21, -1),
	"bctr":  rename("bcctr", 0, -21, -1),
	"bctrl": rename("bcctrl", 0, -21, -1),
	"bdnz":  rename("bc", 1, -17, -1, 0),
	"bdz":   rename("bc", 1, -19, -1, 0),

	"blt": condBranch("bc", 12, 0),
	"bge": condBranch("bc", 4, 0),
	"bgt": condBranch("bc", 12, 1),
	"ble": condBranch("bc", 4, 1),
	"beq": condBranch("bc", 12, 2),
	"bne": condBranch("bc", 4, 2),
	"bso": condBranch("bc", 12, 3),
	"bns": condBranch("bc", 4, 3),

	"mtlr":  moveSPR("mtspr", 8, true),
	"mflr":  moveSPR("mfspr", 8, false),
	"mtctr": moveSPR("mtspr", 9, true),
	"mfctr": moveSPR("mfspr", 9, false),
	"mtxer": moveSPR("mtspr", 1, true),
	"mfxer": moveSPR("mfspr", 1, false),

	"trap": rename("tw", 0, -32, -1, -1),
}
