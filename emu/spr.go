package emu

import "strconv"

// SPR numbers.
const (
	SPRXER     = 1
	SPRLR      = 8
	SPRCTR     = 9
	SPRDEC     = 22
	SPRSRR0    = 26
	SPRSRR1    = 27
	SPRPID0    = 48
	SPRDECAR   = 54
	SPRCSRR0   = 58
	SPRCSRR1   = 59
	SPRDEAR    = 61
	SPRESR     = 62
	SPRIVPR    = 63
	SPRUSPRG0  = 256
	SPRUSPRG4  = 260 // user read-only view of SPRG4-7
	SPRTBLR    = 268
	SPRTBUR    = 269
	SPRSPRG0   = 272
	SPRSPRG4   = 276
	SPRTBLW    = 284
	SPRTBUW    = 285
	SPRPIR     = 286
	SPRPVR     = 287
	SPRIVOR0   = 400
	SPRSPEFSCR = 512
	SPRIVOR32  = 528
	SPRMCSRR0  = 570
	SPRMCSRR1  = 571
	SPRMCSR    = 572
	SPRMAS0    = 624
	SPRMAS1    = 625
	SPRMAS2    = 626
	SPRMAS3    = 627
	SPRMAS4    = 628
	SPRMAS6    = 630
	SPRPID1    = 633
	SPRPID2    = 634
	SPRTLB0CFG = 688
	SPRTLB1CFG = 689
	SPRMAS7    = 944
	SPRHID0    = 1008
	SPRHID1    = 1009
	SPRMMUCSR0 = 1012
	SPRMMUCFG  = 1015
	SPRSVR     = 1023
)

// MMUCSR0 flash-invalidate bits.
const (
	MMUCSR0TLB0FI uint64 = 0x4
	MMUCSR0TLB1FI uint64 = 0x2
)

// Processor identification values reported at reset.
const (
	ResetPVR uint64 = 0x80210030
	ResetSVR uint64 = 0x80390020
)

// Access lanes of an SPR.
const (
	sprSupervisorRead uint8 = 1 << iota
	sprSupervisorWrite
	sprUserRead
	sprUserWrite
)

const (
	sprSupervisorRW = sprSupervisorRead | sprSupervisorWrite
	sprUserRW       = sprSupervisorRW | sprUserRead | sprUserWrite
	sprReadOnly     = sprSupervisorRead
)

// sprInfo is the static description of one SPR.
type sprInfo struct {
	name   string
	access uint8

	// alias is the bank slot backing a read-only view, or 0.
	alias int
}

var sprTable = map[int]sprInfo{
	SPRXER:     {name: "XER", access: sprUserRW},
	SPRLR:      {name: "LR", access: sprUserRW},
	SPRCTR:     {name: "CTR", access: sprUserRW},
	SPRDEC:     {name: "DEC", access: sprSupervisorRW},
	SPRSRR0:    {name: "SRR0", access: sprSupervisorRW},
	SPRSRR1:    {name: "SRR1", access: sprSupervisorRW},
	SPRPID0:    {name: "PID0", access: sprSupervisorRW},
	SPRDECAR:   {name: "DECAR", access: sprSupervisorWrite},
	SPRCSRR0:   {name: "CSRR0", access: sprSupervisorRW},
	SPRCSRR1:   {name: "CSRR1", access: sprSupervisorRW},
	SPRDEAR:    {name: "DEAR", access: sprSupervisorRW},
	SPRESR:     {name: "ESR", access: sprSupervisorRW},
	SPRIVPR:    {name: "IVPR", access: sprSupervisorRW},
	SPRUSPRG0:  {name: "USPRG0", access: sprUserRW},
	SPRTBLR:    {name: "TBL", access: sprSupervisorRead | sprUserRead},
	SPRTBUR:    {name: "TBU", access: sprSupervisorRead | sprUserRead},
	SPRTBLW:    {name: "TBL", access: sprSupervisorWrite},
	SPRTBUW:    {name: "TBU", access: sprSupervisorWrite},
	SPRPIR:     {name: "PIR", access: sprReadOnly},
	SPRPVR:     {name: "PVR", access: sprReadOnly},
	SPRSPEFSCR: {name: "SPEFSCR", access: sprUserRW},
	SPRMCSRR0:  {name: "MCSRR0", access: sprSupervisorRW},
	SPRMCSRR1:  {name: "MCSRR1", access: sprSupervisorRW},
	SPRMCSR:    {name: "MCSR", access: sprSupervisorRW},
	SPRMAS0:    {name: "MAS0", access: sprSupervisorRW},
	SPRMAS1:    {name: "MAS1", access: sprSupervisorRW},
	SPRMAS2:    {name: "MAS2", access: sprSupervisorRW},
	SPRMAS3:    {name: "MAS3", access: sprSupervisorRW},
	SPRMAS4:    {name: "MAS4", access: sprSupervisorRW},
	SPRMAS6:    {name: "MAS6", access: sprSupervisorRW},
	SPRMAS7:    {name: "MAS7", access: sprSupervisorRW},
	SPRPID1:    {name: "PID1", access: sprSupervisorRW},
	SPRPID2:    {name: "PID2", access: sprSupervisorRW},
	SPRTLB0CFG: {name: "TLB0CFG", access: sprReadOnly},
	SPRTLB1CFG: {name: "TLB1CFG", access: sprReadOnly},
	SPRHID0:    {name: "HID0", access: sprSupervisorRW},
	SPRHID1:    {name: "HID1", access: sprSupervisorRW},
	SPRMMUCSR0: {name: "MMUCSR0", access: sprSupervisorRW},
	SPRMMUCFG:  {name: "MMUCFG", access: sprReadOnly},
	SPRSVR:     {name: "SVR", access: sprReadOnly},
}

func init() {
	for i := 0; i < 8; i++ {
		sprTable[SPRSPRG0+i] = sprInfo{name: "SPRG" + strconv.Itoa(i), access: sprSupervisorRW}
	}
	for i := 0; i < 4; i++ {
		sprTable[SPRUSPRG4+i] = sprInfo{
			name:   "SPRG" + strconv.Itoa(4+i),
			access: sprSupervisorRead | sprUserRead,
			alias:  SPRSPRG4 + i,
		}
	}
	for i := 0; i < 16; i++ {
		sprTable[SPRIVOR0+i] = sprInfo{name: "IVOR" + strconv.Itoa(i), access: sprSupervisorRW}
	}
	for i := 0; i < 4; i++ {
		sprTable[SPRIVOR32+i] = sprInfo{name: "IVOR" + strconv.Itoa(32+i), access: sprSupervisorRW}
	}
}

// SPRName returns the architected name of an SPR, or "" if it is not
// implemented.
func SPRName(n int) string {
	return sprTable[n].name
}

// PMR numbers. The user-mode numbers are read-only views of the
// supervisor registers, 16 below them.
const (
	PMRUPMC0  = 0
	PMRPMC0   = 16
	PMRUPMLCa = 128
	PMRPMLCa  = 144
	PMRUPMLCb = 256
	PMRPMLCb  = 272
	PMRUPMGC0 = 384
	PMRPMGC0  = 400
)

// pmrSlot resolves a PMR number to its bank slot and whether it is a
// user-mode view.
func pmrSlot(n int) (slot int, user, ok bool) {
	for _, base := range []int{PMRPMC0, PMRPMLCa, PMRPMLCb} {
		switch {
		case n >= base && n < base+4:
			return n, false, true
		case n >= base-16 && n < base-12:
			return n + 16, true, true
		}
	}
	switch n {
	case PMRPMGC0:
		return n, false, true
	case PMRUPMGC0:
		return PMRPMGC0, true, true
	}
	return 0, false, false
}
