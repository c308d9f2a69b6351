package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/e500sim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read unwritten bytes as zero", func() {
		Expect(memory.Read64(0xDEAD0000)).To(BeZero())
		Expect(memory.ReadBytes(0x10, 3)).To(Equal([]byte{0, 0, 0}))
	})

	It("should store values big-endian", func() {
		memory.Write64(0x100, 0x0102030405060708)

		Expect(memory.ReadBytes(0x100, 8)).To(Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
		Expect(memory.Read32(0x104)).To(Equal(uint32(0x05060708)))
		Expect(memory.Read16(0x102)).To(Equal(uint16(0x0304)))
		Expect(memory.Read8(0x107)).To(Equal(uint8(8)))
	})

	It("should handle accesses crossing a page boundary", func() {
		memory.Write32(0xFFE, 0xAABBCCDD)

		Expect(memory.Read16(0xFFE)).To(Equal(uint16(0xAABB)))
		Expect(memory.Read16(0x1000)).To(Equal(uint16(0xCCDD)))
		Expect(memory.Read32(0xFFE)).To(Equal(uint32(0xAABBCCDD)))
	})

	It("should load and read byte slices", func() {
		memory.LoadBytes(0xFFFFF000, []byte("e500"))

		Expect(memory.ReadBytes(0xFFFFF000, 4)).To(Equal([]byte("e500")))
		Expect(memory.Read32(0xFFFFF000)).To(Equal(uint32(0x65353030)))
	})

	It("should reach addresses above 4 GiB", func() {
		memory.Write16(0x1_0000_0000, 0xBEEF)

		Expect(memory.Read16(0x1_0000_0000)).To(Equal(uint16(0xBEEF)))
		Expect(memory.Read16(0)).To(BeZero())
	})
})
