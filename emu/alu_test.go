package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/e500sim/emu"
)

var _ = Describe("Fixed-point arithmetic", func() {
	var (
		e *emu.Emulator
		r *emu.RegFile
	)

	BeforeEach(func() {
		e = newEmulator()
		r = e.RegFile()
	})

	Describe("add", func() {
		It("should add without touching XER or CR", func() {
			r.GPR[1] = 5
			r.GPR[2] = 7

			mustExec(e, "add r0, r1, r2")

			Expect(r.GPR[0]).To(Equal(uint64(12)))
			Expect(r.XER).To(BeZero())
			Expect(r.CR).To(BeZero())
		})

		It("should record GT in CR0 for add.", func() {
			r.GPR[1] = 5
			r.GPR[2] = 7

			mustExec(e, "add. r0, r1, r2")

			Expect(r.CRField(0)).To(Equal(emu.CRGT))
		})

		It("should copy a sticky SO into CR0 and leave it set", func() {
			r.XER = emu.XERSO
			r.GPR[1] = 5
			r.GPR[2] = 7

			mustExec(e, "add. r0, r1, r2")

			Expect(r.CRField(0)).To(Equal(emu.CRGT | emu.CRSO))
			Expect(r.XER).To(Equal(emu.XERSO))
		})

		It("should set OV and SO on signed overflow in addo", func() {
			r.GPR[1] = 0x7FFFFFFF
			r.GPR[2] = 1

			mustExec(e, "addo r3, r1, r2")

			Expect(r.GPR[3]).To(Equal(uint64(0x80000000)))
			Expect(r.OV()).To(BeTrue())
			Expect(r.SO()).To(BeTrue())
		})

		It("should clear OV but keep SO on a later addo without overflow", func() {
			r.GPR[1] = 0x7FFFFFFF
			r.GPR[2] = 1
			mustExec(e, "addo r3, r1, r2")

			mustExec(e, "addo r4, r2, r2")

			Expect(r.GPR[4]).To(Equal(uint64(2)))
			Expect(r.OV()).To(BeFalse())
			Expect(r.SO()).To(BeTrue())
		})
	})

	Describe("carrying forms", func() {
		It("should chain addc and adde", func() {
			r.GPR[1] = 0xFFFFFFFF
			r.GPR[2] = 1
			r.GPR[5] = 1
			r.GPR[6] = 2

			mustExec(e, "addc r3, r1, r2")
			Expect(r.GPR[3]).To(BeZero())
			Expect(r.CA()).To(BeTrue())

			mustExec(e, "adde r4, r5, r6")
			Expect(r.GPR[4]).To(Equal(uint64(4)))
			Expect(r.CA()).To(BeFalse())
		})

		It("should leave CA alone in plain add", func() {
			r.XER = emu.XERCA
			r.GPR[1] = 0xFFFFFFFF
			r.GPR[2] = 1

			mustExec(e, "add r3, r1, r2")

			Expect(r.CA()).To(BeTrue())
		})

		It("should set CA in subfc when no borrow occurs", func() {
			r.GPR[4] = 3
			r.GPR[5] = 10

			mustExec(e, "subfc r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(7)))
			Expect(r.CA()).To(BeTrue())
		})

		It("should clear CA in subfc on borrow", func() {
			r.GPR[4] = 10
			r.GPR[5] = 3

			mustExec(e, "subfc r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFFF9)))
			Expect(r.CA()).To(BeFalse())
		})

		It("should add minus one plus CA in addme", func() {
			r.XER = emu.XERCA
			r.GPR[4] = 10

			mustExec(e, "addme r3, r4")

			Expect(r.GPR[3]).To(Equal(uint64(10)))
			Expect(r.CA()).To(BeTrue())
		})

		It("should add CA in addze", func() {
			r.XER = emu.XERCA
			r.GPR[4] = 10

			mustExec(e, "addze r3, r4")

			Expect(r.GPR[3]).To(Equal(uint64(11)))
			Expect(r.CA()).To(BeFalse())
		})

		It("should set CA from addic and record from addic.", func() {
			r.GPR[4] = 0xFFFFFFFF

			mustExec(e, "addic. r3, r4, 1")

			Expect(r.CA()).To(BeTrue())
			Expect(r.CRField(0)).To(Equal(emu.CREQ))
		})

		It("should subtract from an immediate in subfic", func() {
			r.GPR[4] = 3

			mustExec(e, "subfic r3, r4, 10")

			Expect(r.GPR[3]).To(Equal(uint64(7)))
			Expect(r.CA()).To(BeTrue())
		})
	})

	Describe("subf and neg", func() {
		It("should compute rB - rA", func() {
			r.GPR[4] = 3
			r.GPR[5] = 10

			mustExec(e, "subf r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(7)))
		})

		It("should accept the sub mnemonic with swapped operands", func() {
			r.GPR[4] = 10
			r.GPR[5] = 3

			mustExec(e, "sub r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(7)))
		})

		It("should overflow when negating the most negative word", func() {
			r.GPR[4] = 0x80000000

			mustExec(e, "nego r3, r4")

			Expect(r.GPR[3]).To(Equal(uint64(0x80000000)))
			Expect(r.OV()).To(BeTrue())
			Expect(r.SO()).To(BeTrue())
		})

		It("should negate ordinary values", func() {
			r.GPR[4] = 5

			mustExec(e, "neg r3, r4")

			Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFFFB)))
		})
	})

	Describe("immediates", func() {
		It("should treat rA=0 as zero in addi", func() {
			r.GPR[0] = 100

			mustExec(e, "addi r3, r0, 5")

			Expect(r.GPR[3]).To(Equal(uint64(5)))
		})

		It("should sign-extend li", func() {
			mustExec(e, "li r3, -1")

			Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFFFF)))
		})

		It("should shift lis into the upper halfword", func() {
			mustExec(e, "lis r3, 0x1234")

			Expect(r.GPR[3]).To(Equal(uint64(0x12340000)))
		})

		It("should multiply by an immediate", func() {
			r.GPR[4] = 6

			mustExec(e, "mulli r3, r4, -7")

			Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFFD6)))
		})
	})

	Describe("multiply", func() {
		It("should report overflow when the product exceeds a word", func() {
			r.GPR[4] = 0x10000
			r.GPR[5] = 0x10000

			mustExec(e, "mullwo r3, r4, r5")

			Expect(r.GPR[3]).To(BeZero())
			Expect(r.OV()).To(BeTrue())
		})

		It("should return the signed high word in mulhw", func() {
			r.GPR[4] = uint64(0xFFFFFFFE) // -2
			r.GPR[5] = 3

			mustExec(e, "mulhw r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFFFF)))
		})

		It("should return the unsigned high word in mulhwu", func() {
			r.GPR[4] = 0xFFFFFFFF
			r.GPR[5] = 2

			mustExec(e, "mulhwu r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(1)))
		})
	})

	Describe("divide", func() {
		It("should truncate toward zero", func() {
			r.GPR[4] = uint64(0xFFFFFFF9) // -7
			r.GPR[5] = 2

			mustExec(e, "divw r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFFFD)))
		})

		It("should leave rD unmodified and set OV on division by zero", func() {
			r.GPR[3] = 0x1234
			r.GPR[4] = 10

			mustExec(e, "divwo r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(0x1234)))
			Expect(r.OV()).To(BeTrue())
			Expect(r.SO()).To(BeTrue())
		})

		It("should not touch XER in divw without o", func() {
			r.GPR[3] = 0x1234
			r.GPR[4] = 10

			mustExec(e, "divw r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(0x1234)))
			Expect(r.XER).To(BeZero())
		})

		It("should take CR0 from the unchanged rD on MinInt32 / -1", func() {
			r.GPR[3] = 7
			r.GPR[4] = 0x80000000
			r.GPR[5] = 0xFFFFFFFF

			mustExec(e, "divwo. r3, r4, r5")

			Expect(r.GPR[3]).To(Equal(uint64(7)))
			Expect(r.CRField(0)).To(Equal(emu.CRGT | emu.CRSO))
		})

		It("should overflow divwuo on zero only", func() {
			r.GPR[4] = 0x80000000
			r.GPR[5] = 0xFFFFFFFF

			mustExec(e, "divwuo r3, r4, r5")
			Expect(r.GPR[3]).To(BeZero())
			Expect(r.OV()).To(BeFalse())

			r.GPR[5] = 0
			mustExec(e, "divwuo r3, r4, r5")
			Expect(r.OV()).To(BeTrue())
		})
	})

	Describe("64-bit mode", func() {
		BeforeEach(func() {
			e = configured(func(c *emu.Config) { c.Mode64 = true })
			r = e.RegFile()
		})

		It("should not overflow at the word boundary", func() {
			r.GPR[1] = 0x7FFFFFFF
			r.GPR[2] = 1

			mustExec(e, "addo. r3, r1, r2")

			Expect(r.GPR[3]).To(Equal(uint64(0x80000000)))
			Expect(r.OV()).To(BeFalse())
			Expect(r.CRField(0)).To(Equal(emu.CRGT))
		})

		It("should overflow at the doubleword boundary", func() {
			r.GPR[1] = 0x7FFFFFFFFFFFFFFF
			r.GPR[2] = 1

			mustExec(e, "addo r3, r1, r2")

			Expect(r.OV()).To(BeTrue())
		})

		It("should carry out of 64 bits", func() {
			r.GPR[1] = 0xFFFFFFFF
			r.GPR[2] = 1

			mustExec(e, "addc r3, r1, r2")

			Expect(r.GPR[3]).To(Equal(uint64(0x100000000)))
			Expect(r.CA()).To(BeFalse())
		})
	})
})

var _ = Describe("Logical", func() {
	var (
		e *emu.Emulator
		r *emu.RegFile
	)

	BeforeEach(func() {
		e = newEmulator()
		r = e.RegFile()
		r.GPR[4] = 0xF0F0
		r.GPR[5] = 0xFF00
	})

	It("should compute the register forms", func() {
		mustExec(e,
			"and r10, r4, r5",
			"andc r11, r4, r5",
			"or r12, r4, r5",
			"xor r13, r4, r5",
			"nor r14, r4, r5",
		)

		Expect(r.GPR[10]).To(Equal(uint64(0xF000)))
		Expect(r.GPR[11]).To(Equal(uint64(0x00F0)))
		Expect(r.GPR[12]).To(Equal(uint64(0xFFF0)))
		Expect(r.GPR[13]).To(Equal(uint64(0x0FF0)))
		Expect(r.GPR[14]).To(Equal(uint64(0xFFFF000F)))
	})

	It("should always record in andi.", func() {
		mustExec(e, "andi. r3, r4, 0x0F")

		Expect(r.GPR[3]).To(BeZero())
		Expect(r.CRField(0)).To(Equal(emu.CREQ))
	})

	It("should not record in ori", func() {
		r.CR = 0

		mustExec(e, "ori r3, r4, 0x000F", "oris r6, r4, 1")

		Expect(r.GPR[3]).To(Equal(uint64(0xF0FF)))
		Expect(r.GPR[6]).To(Equal(uint64(0x1F0F0)))
		Expect(r.CR).To(BeZero())
	})

	It("should copy a register with mr", func() {
		mustExec(e, "mr r3, r4")

		Expect(r.GPR[3]).To(Equal(uint64(0xF0F0)))
	})

	It("should sign-extend bytes and halfwords", func() {
		r.GPR[6] = 0x80

		mustExec(e, "extsb r3, r6", "extsh r7, r4")

		Expect(r.GPR[3]).To(Equal(uint64(0xFFFFFF80)))
		Expect(r.GPR[7]).To(Equal(uint64(0xFFFFF0F0)))
	})

	It("should count leading zeros in the low word", func() {
		r.GPR[6] = 1
		r.GPR[7] = 0

		mustExec(e, "cntlzw r3, r6", "cntlzw. r8, r7")

		Expect(r.GPR[3]).To(Equal(uint64(31)))
		Expect(r.GPR[8]).To(Equal(uint64(32)))
		Expect(r.CRField(0)).To(Equal(emu.CRGT))
	})
})

var _ = Describe("Compare", func() {
	var (
		e *emu.Emulator
		r *emu.RegFile
	)

	BeforeEach(func() {
		e = newEmulator()
		r = e.RegFile()
		r.GPR[3] = 0xFFFFFFFF
		r.GPR[4] = 1
	})

	It("should compare words as signed in cmpw", func() {
		mustExec(e, "cmpw cr1, r3, r4")

		Expect(r.CRField(1)).To(Equal(emu.CRLT))
		Expect(r.CRField(0)).To(BeZero())
	})

	It("should compare words as unsigned in cmplw", func() {
		mustExec(e, "cmplw r3, r4")

		Expect(r.CRField(0)).To(Equal(emu.CRGT))
	})

	It("should sign-extend the cmpwi immediate", func() {
		mustExec(e, "cmpwi cr7, r3, -1")

		Expect(r.CRField(7)).To(Equal(emu.CREQ))
	})

	It("should zero-extend the cmplwi immediate", func() {
		r.GPR[5] = 0xFFFF

		mustExec(e, "cmplwi r5, 0xFFFF")

		Expect(r.CRField(0)).To(Equal(emu.CREQ))
	})

	It("should copy SO into the target field", func() {
		r.XER = emu.XERSO

		mustExec(e, "cmpw cr2, r4, r4")

		Expect(r.CRField(2)).To(Equal(emu.CREQ | emu.CRSO))
	})

	It("should compare doublewords when L is set", func() {
		mustExec(e, "cmp cr0, 1, r3, r4")

		Expect(r.CRField(0)).To(Equal(emu.CRGT))
	})

	Describe("isel", func() {
		It("should pick rA when the CR bit is set", func() {
			r.SetCRBit(2, true)

			mustExec(e, "isel r5, r3, r4, 2")

			Expect(r.GPR[5]).To(Equal(uint64(0xFFFFFFFF)))
		})

		It("should pick rB when the CR bit is clear", func() {
			mustExec(e, "isel r5, r3, r4, 2")

			Expect(r.GPR[5]).To(Equal(uint64(1)))
		})

		It("should read rA=0 as zero", func() {
			r.GPR[0] = 99
			r.SetCRBit(0, true)

			mustExec(e, "isel r5, r0, r4, 0")

			Expect(r.GPR[5]).To(BeZero())
		})
	})
})

var _ = Describe("Upper word in 32-bit mode", func() {
	var (
		e *emu.Emulator
		r *emu.RegFile
	)

	BeforeEach(func() {
		e = newEmulator()
		r = e.RegFile()
	})

	It("should write only the low word of an add", func() {
		r.GPR[1] = 0x5_00000001
		r.GPR[2] = 0x7_00000002
		r.GPR[3] = 0xAAAABBBB_00000000

		mustExec(e, "add r3, r1, r2")

		Expect(r.GPR[3]).To(Equal(uint64(0xAAAABBBB_00000003)))
	})

	It("should drop the carry out of the low word", func() {
		r.GPR[1] = 0xFFFFFFFF
		r.GPR[2] = 1

		mustExec(e, "addc r5, r1, r2")

		Expect(r.GPR[5]).To(BeZero())
		Expect(r.CA()).To(BeTrue())
	})

	It("should keep the high lane through logical, rotate, multiply and load results", func() {
		for _, n := range []int{3, 4, 5, 6} {
			r.GPR[n] = 0x12345678_00000000
		}
		r.GPR[7] = 0x2000
		r.GPR[8] = 0xFFFF
		e.Bus().Write32(0x2000, 0xCAFEBABE)

		mustExec(e,
			"nor r3, r8, r8",
			"rlwinm r4, r8, 16, 0, 31",
			"mullw r5, r8, r8",
			"lwz r6, 0(r7)",
		)

		Expect(r.GPR[3]).To(Equal(uint64(0x12345678_FFFF0000)))
		Expect(r.GPR[4]).To(Equal(uint64(0x12345678_FFFF0000)))
		Expect(r.GPR[5]).To(Equal(uint64(0x12345678_FFFE0001)))
		Expect(r.GPR[6]).To(Equal(uint64(0x12345678_CAFEBABE)))
	})

	It("should leave the lane SPE instructions read", func() {
		r.GPR[1] = 1
		r.GPR[2] = 2
		r.GPR[3] = 0x00000001_00000000

		mustExec(e, "add r3, r1, r2", "evaddw r4, r3, r3")

		Expect(r.GPR[4]).To(Equal(pair(2, 6)))
	})

	It("should write whole registers in 64-bit mode", func() {
		e = configured(func(c *emu.Config) { c.Mode64 = true })
		r = e.RegFile()
		r.GPR[1] = 0x5_00000001
		r.GPR[2] = 0x7_00000002

		mustExec(e, "add r3, r1, r2")

		Expect(r.GPR[3]).To(Equal(uint64(0xC_00000003)))
	})
})
