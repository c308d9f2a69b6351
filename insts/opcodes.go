package insts

import "fmt"

// Op identifies one mnemonic, including its record (".") and overflow
// ("o") variants. Op values are stable for the lifetime of the process.
type Op uint16

// OpUnknown is the zero Op. It never names an instruction.
const OpUnknown Op = 0

// xoForms expands each base mnemonic into its four XO variants.
func xoForms(bases ...string) []string {
	out := make([]string, 0, 4*len(bases))
	for _, b := range bases {
		out = append(out, b, b+".", b+"o", b+"o.")
	}
	return out
}

// rcForms expands each base mnemonic into its plain and record variants.
func rcForms(bases ...string) []string {
	out := make([]string, 0, 2*len(bases))
	for _, b := range bases {
		out = append(out, b, b+".")
	}
	return out
}

func loadStoreForms(bases ...string) []string {
	out := make([]string, 0, 4*len(bases))
	for _, b := range bases {
		out = append(out, b, b+"x", b+"u", b+"ux")
	}
	return out
}

var opGroups = [][]string{
	// fixed-point arithmetic
	xoForms("add", "addc", "adde", "addme", "addze",
		"subf", "subfc", "subfe", "subfme", "subfze", "neg",
		"mullw", "divw", "divwu"),
	rcForms("mulhw", "mulhwu"),
	{"addi", "addis", "addic", "addic.", "subfic", "mulli"},

	// logical
	rcForms("and", "andc", "or", "orc", "xor", "nand", "nor", "eqv",
		"extsb", "extsh", "cntlzw"),
	{"andi.", "andis.", "ori", "oris", "xori", "xoris"},

	// compare and select
	{"cmp", "cmpi", "cmpl", "cmpli", "isel"},

	// rotate and shift
	rcForms("rlwinm", "rlwnm", "rlwimi", "slw", "srw", "sraw", "srawi"),

	// branch
	{"b", "ba", "bl", "bla", "bc", "bca", "bcl", "bcla",
		"bclr", "bclrl", "bcctr", "bcctrl"},

	// condition register
	{"crand", "crandc", "creqv", "crnand", "crnor", "cror", "crorc", "crxor",
		"mcrf", "mcrxr", "mfcr", "mtcrf"},

	// load and store
	loadStoreForms("lbz", "lhz", "lha", "lwz", "stb", "sth", "stw"),
	{"lhbrx", "lwbrx", "sthbrx", "stwbrx", "lmw", "stmw",
		"lwarx", "stwcx."},

	// system linkage and special registers
	{"sc", "rfi", "rfci", "rfmci", "mfmsr", "mtmsr", "wrtee", "wrteei",
		"mfspr", "mtspr", "mftb", "mfpmr", "mtpmr", "isync"},

	// trap
	{"tw", "twi"},

	// MMU management
	{"tlbre", "tlbwe", "tlbsx", "tlbivax", "tlbsync"},

	// cache management
	{"dcba", "dcbf", "dcbi", "dcbst", "dcbt", "dcbtst", "dcbz",
		"dcbtls", "dcbtstls", "dcblc", "icbi", "icbt", "icbtls", "icblc",
		"msync", "mbar"},

	// SPE
	{"evaddw", "evaddiw", "evsubfw", "evsubifw", "evabs", "evneg",
		"evand", "evandc", "evor", "evorc", "evxor", "evnor", "eveqv", "evnand",
		"evslw", "evslwi", "evsrws", "evsrwu", "evsrwis", "evsrwiu",
		"evrlw", "evrlwi", "evcntlzw", "evextsb", "evextsh",
		"evmergehi", "evmergelo", "evmergehilo", "evmergelohi",
		"evsplati", "evsplatfi",
		"evcmpeq", "evcmpgts", "evcmpgtu", "evcmplts", "evcmpltu", "evsel",
		"evldd", "evlddx", "evstdd", "evstddx",
		"evmra", "evaddssiaaw", "evaddusiaaw", "evsubfssiaaw", "evsubfusiaaw",
		"evmwumi", "evmwumia", "evmwsmi", "evmwsmia", "evmwsmiaa", "evmwumiaa",
		"evmhessf", "evmhossf", "brinc", "evdivws", "evdivwu"},
}

var (
	opNames  = []string{""}
	opByName = map[string]Op{}
)

func init() {
	for _, group := range opGroups {
		for _, name := range group {
			if _, dup := opByName[name]; dup {
				panic("insts: duplicate mnemonic " + name)
			}
			opByName[name] = Op(len(opNames))
			opNames = append(opNames, name)
		}
	}
}

// Lookup returns the Op for a mnemonic.
func Lookup(mnemonic string) (Op, bool) {
	op, ok := opByName[mnemonic]
	return op, ok
}

// MustLookup is like Lookup but panics on an unknown mnemonic. It is meant
// for static tables.
func MustLookup(mnemonic string) Op {
	op, ok := opByName[mnemonic]
	if !ok {
		panic("insts: unknown mnemonic " + mnemonic)
	}
	return op
}

// Ops returns every known Op in table order.
func Ops() []Op {
	ops := make([]Op, 0, len(opNames)-1)
	for i := 1; i < len(opNames); i++ {
		ops = append(ops, Op(i))
	}
	return ops
}

// NumOps returns one more than the largest Op value, suitable for sizing
// an Op-indexed slice.
func NumOps() int {
	return len(opNames)
}

func (op Op) String() string {
	if op == OpUnknown || int(op) >= len(opNames) {
		return fmt.Sprintf("op(%d)", uint16(op))
	}
	return opNames[op]
}
