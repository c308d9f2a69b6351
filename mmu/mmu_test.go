package mmu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/e500sim/fault"
	"github.com/sarchlab/e500sim/mmu"
)

type mapping struct {
	tlbsel int
	esel   int
	ea     uint64
	ra     uint64
	tsize  uint8
	tid    uint32
	ts     uint8
	perms  mmu.Perm
	wimge  uint8
	iprot  bool
	valid  bool
}

func (m mapping) mas() mmu.MAS {
	var mas mmu.MAS
	mas.MAS0 = mmu.MAS0TLBSel.Set(mas.MAS0, uint32(m.tlbsel))
	mas.MAS0 = mmu.MAS0ESel.Set(mas.MAS0, uint32(m.esel))

	mas.MAS1 = mmu.MAS1V.Set(mas.MAS1, b2u(m.valid))
	mas.MAS1 = mmu.MAS1IProt.Set(mas.MAS1, b2u(m.iprot))
	mas.MAS1 = mmu.MAS1TID.Set(mas.MAS1, m.tid)
	mas.MAS1 = mmu.MAS1TS.Set(mas.MAS1, uint32(m.ts))
	mas.MAS1 = mmu.MAS1TSize.Set(mas.MAS1, uint32(m.tsize))

	mas.MAS2 = mmu.MAS2EPN.Set(mas.MAS2, uint32(m.ea>>12))
	mas.MAS2 = mmu.MAS2WIMGE.Set(mas.MAS2, uint32(m.wimge))

	mas.MAS3 = mmu.MAS3RPN.Set(mas.MAS3, uint32(m.ra>>12))
	mas.MAS3 = mmu.MAS3Perms.Set(mas.MAS3, mmu.EncodePerms(m.perms))
	mas.MAS7 = mmu.MAS7RPNU.Set(0, uint32(m.ra>>32))
	return mas
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func selector(tlbsel, esel int, ea uint64) mmu.MAS {
	var mas mmu.MAS
	mas.MAS0 = mmu.MAS0TLBSel.Set(0, uint32(tlbsel))
	mas.MAS0 = mmu.MAS0ESel.Set(mas.MAS0, uint32(esel))
	mas.MAS2 = mmu.MAS2EPN.Set(0, uint32(ea>>12))
	return mas
}

var _ = Describe("Permissions", func() {
	It("should round-trip every MAS3 permission pattern", func() {
		for bits := uint32(0); bits < 64; bits++ {
			Expect(mmu.EncodePerms(mmu.DecodePerms(bits))).To(Equal(bits))
		}
	})

	It("should map MAS3 order onto lanes", func() {
		// UX SX UW SW UR SR
		Expect(mmu.DecodePerms(0x01)).To(Equal(mmu.PermSR))
		Expect(mmu.DecodePerms(0x02)).To(Equal(mmu.PermUR))
		Expect(mmu.DecodePerms(0x04)).To(Equal(mmu.PermSW))
		Expect(mmu.DecodePerms(0x08)).To(Equal(mmu.PermUW))
		Expect(mmu.DecodePerms(0x10)).To(Equal(mmu.PermSX))
		Expect(mmu.DecodePerms(0x20)).To(Equal(mmu.PermUX))
		Expect(mmu.DecodePerms(0x15)).To(Equal(mmu.PermSupervisorAll))
	})

	It("should check the lane for the privilege level", func() {
		p := mmu.PermSR | mmu.PermUX
		Expect(p.Allows(mmu.AccessRead, false)).To(BeTrue())
		Expect(p.Allows(mmu.AccessRead, true)).To(BeFalse())
		Expect(p.Allows(mmu.AccessExecute, true)).To(BeTrue())
		Expect(p.Allows(mmu.AccessExecute, false)).To(BeFalse())
	})
})

var _ = Describe("MMU", func() {
	var m *mmu.MMU

	BeforeEach(func() {
		m = mmu.New(mmu.DefaultConfig())
	})

	Describe("boot state", func() {
		It("should map the top 4 KiB for supervisor execution", func() {
			t, found, err := m.Translate(mmu.Request{
				EA:     0xFFFFFFFC,
				Access: mmu.AccessExecute,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(t.RA).To(Equal(uint64(0xFFFFFFFC)))
			Expect(t.WIMGE).To(Equal(mmu.AttrI))
			Expect(t.Size).To(Equal(uint64(4096)))
		})

		It("should protect the boot entry", func() {
			e, err := m.Entry(mmu.TLB1, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Valid).To(BeTrue())
			Expect(e.IPROT).To(BeTrue())
		})

		It("should deny user execution of the boot page", func() {
			_, found, err := m.Translate(mmu.Request{
				EA:     0xFFFFF000,
				Access: mmu.AccessExecute,
				User:   true,
			})

			Expect(found).To(BeTrue())
			kind, ok := fault.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(fault.KindInstructionStorage))
		})
	})

	Describe("Write and Read", func() {
		It("should round-trip a TLB1 entry", func() {
			w := mapping{
				tlbsel: mmu.TLB1, esel: 3,
				ea: 0x40000000, ra: 0x1_20000000, tsize: mmu.TSize16M,
				tid: 7, ts: 1, perms: mmu.PermSR | mmu.PermSW | mmu.PermUR,
				wimge: mmu.AttrM | mmu.AttrG, iprot: true, valid: true,
			}
			Expect(m.Write(w.mas())).To(Succeed())

			got, err := m.Read(selector(mmu.TLB1, 3, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.MAS1).To(Equal(w.mas().MAS1))
			Expect(got.MAS2).To(Equal(w.mas().MAS2))
			Expect(got.MAS3).To(Equal(w.mas().MAS3))
			Expect(got.MAS7).To(Equal(w.mas().MAS7))
		})

		It("should drop page offset bits below the page size", func() {
			w := mapping{
				tlbsel: mmu.TLB1, esel: 1,
				ea: 0x10005000, ra: 0x20007000, tsize: mmu.TSize16K,
				perms: mmu.PermAll, valid: true,
			}
			Expect(m.Write(w.mas())).To(Succeed())

			got, err := m.Read(selector(mmu.TLB1, 1, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.EffectiveAddress()).To(Equal(uint64(0x10004000)))
			Expect(got.RealAddress()).To(Equal(uint64(0x20004000)))
		})

		It("should index TLB0 by effective address and force 4 KiB pages", func() {
			w := mapping{
				tlbsel: mmu.TLB0, esel: 2,
				ea: 0x00123000, ra: 0x00456000, tsize: mmu.TSize64K,
				perms: mmu.PermAll, iprot: true, valid: true,
			}
			Expect(m.Write(w.mas())).To(Succeed())

			set := int((uint64(0x00123000) >> 12) % 128)
			e, err := m.Entry(mmu.TLB0, set, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Valid).To(BeTrue())
			Expect(e.Size).To(Equal(uint64(4096)))
			Expect(e.IPROT).To(BeFalse())

			got, err := m.Read(selector(mmu.TLB0, 2, 0x00123000))
			Expect(err).NotTo(HaveOccurred())
			Expect(mmu.MAS1TSize.Get(got.MAS1)).To(Equal(uint32(mmu.TSize4K)))
			Expect(got.RealAddress()).To(Equal(uint64(0x00456000)))
		})

		It("should advance the TLB0 replacement hint", func() {
			w := mapping{tlbsel: mmu.TLB0, esel: 0, ea: 0x5000, ra: 0x5000, valid: true}
			Expect(m.Write(w.mas())).To(Succeed())

			got, err := m.Read(selector(mmu.TLB0, 0, 0x5000))
			Expect(err).NotTo(HaveOccurred())
			Expect(mmu.MAS0NV.Get(got.MAS0)).To(Equal(uint32(1)))
		})

		It("should reject bad selectors", func() {
			Expect(m.Write(selector(2, 0, 0))).To(MatchError(mmu.ErrBadSelector))
			_, err := m.Read(selector(mmu.TLB1, 16, 0))
			Expect(err).To(MatchError(mmu.ErrBadSelector))
		})

		It("should reject unsupported TLB1 page sizes", func() {
			w := mapping{tlbsel: mmu.TLB1, esel: 1, tsize: 0, valid: true}
			Expect(m.Write(w.mas())).To(MatchError(mmu.ErrBadSelector))
		})
	})

	Describe("Translate", func() {
		BeforeEach(func() {
			w := mapping{
				tlbsel: mmu.TLB1, esel: 1,
				ea: 0x10000000, ra: 0x30000000, tsize: mmu.TSize64K,
				tid: 5, perms: mmu.PermSR | mmu.PermSX | mmu.PermUR,
				wimge: mmu.AttrM, valid: true,
			}
			Expect(m.Write(w.mas())).To(Succeed())
		})

		It("should translate every offset in the page", func() {
			for off := uint64(0); off < 0x10000; off += 0x7F3 {
				t, found, err := m.Translate(mmu.Request{
					EA: 0x10000000 + off, PID: 5, Access: mmu.AccessRead,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())
				Expect(t.RA).To(Equal(0x30000000 + off))
				Expect(t.WIMGE).To(Equal(mmu.AttrM))
				Expect(t.Size).To(Equal(uint64(0x10000)))
			}
		})

		It("should raise direction-specific storage exceptions", func() {
			_, _, err := m.Translate(mmu.Request{
				EA: 0x10000010, PID: 5, Access: mmu.AccessWrite,
			})
			kind, _ := fault.KindOf(err)
			Expect(kind).To(Equal(fault.KindDataStorageWrite))

			_, _, err = m.Translate(mmu.Request{
				EA: 0x10000010, PID: 5, Access: mmu.AccessExecute, User: true,
			})
			kind, _ = fault.KindOf(err)
			Expect(kind).To(Equal(fault.KindInstructionStorage))

			_, _, err = m.Translate(mmu.Request{
				EA: 0x10000010, PID: 5, Access: mmu.AccessRead, User: true,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should miss on another process id or address space", func() {
			_, found, err := m.Translate(mmu.Request{EA: 0x10000000, PID: 6})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			_, found, _ = m.Translate(mmu.Request{EA: 0x10000000, PID: 5, AS: 1})
			Expect(found).To(BeFalse())
		})

		It("should match TID zero for every process", func() {
			w := mapping{
				tlbsel: mmu.TLB0, ea: 0x8000, ra: 0x9000,
				perms: mmu.PermAll, valid: true,
			}
			Expect(m.Write(w.mas())).To(Succeed())

			for _, pid := range []uint32{0, 1, 200} {
				t, found, err := m.Translate(mmu.Request{EA: 0x8004, PID: pid})
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())
				Expect(t.RA).To(Equal(uint64(0x9004)))
			}
		})

		It("should serve repeated translations from the cache", func() {
			req := mmu.Request{EA: 0x10000100, PID: 5}
			_, _, _ = m.Translate(req)
			before := m.Cache().Stats().Hits

			t, found, err := m.Translate(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(t.RA).To(Equal(uint64(0x30000100)))
			Expect(m.Cache().Stats().Hits).To(Equal(before + 1))
		})
	})

	Describe("translation cache coherency", func() {
		req := mmu.Request{EA: 0x00042010, Access: mmu.AccessRead}
		base := mapping{
			tlbsel: mmu.TLB0, esel: 1, ea: 0x00042000, ra: 0x00100000,
			perms: mmu.PermAll, valid: true,
		}

		BeforeEach(func() {
			Expect(m.Write(base.mas())).To(Succeed())
			t, found, err := m.Translate(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(t.RA).To(Equal(uint64(0x00100010)))
		})

		It("should reflect an overwritten entry", func() {
			changed := base
			changed.ra = 0x00200000
			changed.wimge = mmu.AttrI
			Expect(m.Write(changed.mas())).To(Succeed())

			t, found, err := m.Translate(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(t.RA).To(Equal(uint64(0x00200010)))
			Expect(t.WIMGE).To(Equal(mmu.AttrI))
		})

		It("should reflect narrowed permissions", func() {
			changed := base
			changed.perms = mmu.PermSW
			Expect(m.Write(changed.mas())).To(Succeed())

			_, _, err := m.Translate(req)
			kind, _ := fault.KindOf(err)
			Expect(kind).To(Equal(fault.KindDataStorageRead))
		})

		It("should miss after a single-entry invalidate", func() {
			Expect(m.Invalidate(0x00042FFF, false, mmu.TLB0)).To(Succeed())

			_, found, err := m.Translate(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(m.Cache().Len()).To(BeZero())
		})

		It("should miss after a bulk invalidate", func() {
			Expect(m.Invalidate(0, true, mmu.TLB0)).To(Succeed())

			_, found, _ := m.Translate(req)
			Expect(found).To(BeFalse())
		})
	})

	Describe("Invalidate", func() {
		BeforeEach(func() {
			for i, iprot := range []bool{false, true} {
				w := mapping{
					tlbsel: mmu.TLB1, esel: i + 1,
					ea: 0x20000000 + uint64(i)<<20, ra: 0x20000000 + uint64(i)<<20,
					tsize: mmu.TSize1M, perms: mmu.PermAll,
					iprot: iprot, valid: true,
				}
				Expect(m.Write(w.mas())).To(Succeed())
			}
		})

		It("should spare protected TLB1 entries on bulk invalidate", func() {
			Expect(m.Invalidate(0, true, mmu.TLB1)).To(Succeed())

			e, _ := m.Entry(mmu.TLB1, 0, 1)
			Expect(e.Valid).To(BeFalse())
			e, _ = m.Entry(mmu.TLB1, 0, 2)
			Expect(e.Valid).To(BeTrue())
			e, _ = m.Entry(mmu.TLB1, 0, 0)
			Expect(e.Valid).To(BeTrue())
		})

		It("should remove a protected entry on single invalidate", func() {
			Expect(m.Invalidate(0x20100000, false, mmu.TLB1)).To(Succeed())

			e, _ := m.Entry(mmu.TLB1, 0, 2)
			Expect(e.Valid).To(BeFalse())
			e, _ = m.Entry(mmu.TLB1, 0, 1)
			Expect(e.Valid).To(BeTrue())
		})

		It("should reject a bad array on bulk invalidate", func() {
			Expect(m.Invalidate(0, true, 3)).To(MatchError(mmu.ErrBadSelector))
		})
	})

	Describe("SearchMAS", func() {
		It("should load the matching entry and its location", func() {
			w := mapping{
				tlbsel: mmu.TLB1, esel: 4, ea: 0x50000000, ra: 0x60000000,
				tsize: mmu.TSize4K, tid: 9, ts: 1, perms: mmu.PermAll, valid: true,
			}
			Expect(m.Write(w.mas())).To(Succeed())

			var in mmu.MAS
			in.MAS6 = mmu.MAS6SPID.Set(0, 9)
			in.MAS6 = mmu.MAS6SAS.Set(in.MAS6, 1)

			out, found := m.SearchMAS(0x50000ABC, in)
			Expect(found).To(BeTrue())
			Expect(out.TLBSel()).To(Equal(mmu.TLB1))
			Expect(out.ESel()).To(Equal(4))
			Expect(out.RealAddress()).To(Equal(uint64(0x60000000)))
			Expect(mmu.MAS1V.Get(out.MAS1)).To(Equal(uint32(1)))
		})

		It("should load MAS4 defaults on a miss", func() {
			var in mmu.MAS
			in.MAS4 = mmu.MAS4TLBSelD.Set(0, mmu.TLB1)
			in.MAS4 = mmu.MAS4TSizeD.Set(in.MAS4, uint32(mmu.TSize64K))
			in.MAS4 = mmu.MAS4WIMGED.Set(in.MAS4, uint32(mmu.AttrG))
			in.MAS6 = mmu.MAS6SPID.Set(0, 3)

			out, found := m.SearchMAS(0x70001234, in)
			Expect(found).To(BeFalse())
			Expect(out.TLBSel()).To(Equal(mmu.TLB1))
			Expect(mmu.MAS1V.Get(out.MAS1)).To(BeZero())
			Expect(mmu.MAS1TID.Get(out.MAS1)).To(Equal(uint32(3)))
			Expect(mmu.MAS1TSize.Get(out.MAS1)).To(Equal(uint32(mmu.TSize64K)))
			Expect(out.EffectiveAddress()).To(Equal(uint64(0x70001000)))
			Expect(mmu.MAS2WIMGE.Get(out.MAS2)).To(Equal(uint32(mmu.AttrG)))
			Expect(out.MAS3).To(BeZero())
			Expect(out.MAS4).To(Equal(in.MAS4))
		})

		It("should take the TID from MAS6 even when TIDSELD names a PID", func() {
			var in mmu.MAS
			in.MAS4 = mmu.MAS4TIDSelD.Set(0, 2)
			in.MAS6 = mmu.MAS6SPID.Set(0, 3)

			out, _ := m.SearchMAS(0x70001234, in)
			Expect(mmu.MAS1TID.Get(out.MAS1)).To(Equal(uint32(3)))
		})
	})

	Describe("MissMAS", func() {
		DescribeTable("should select the TID with MAS4[TIDSELD]",
			func(sel, tid uint32) {
				var in mmu.MAS
				in.MAS4 = mmu.MAS4TIDSelD.Set(0, sel)
				in.MAS4 = mmu.MAS4TSizeD.Set(in.MAS4, uint32(mmu.TSize4K))

				out := m.MissMAS(0x30005678, 1, [3]uint32{11, 22, 33}, in)

				Expect(mmu.MAS1TID.Get(out.MAS1)).To(Equal(tid))
				Expect(mmu.MAS1TS.Get(out.MAS1)).To(Equal(uint32(1)))
				Expect(mmu.MAS1V.Get(out.MAS1)).To(BeZero())
				Expect(out.EffectiveAddress()).To(Equal(uint64(0x30005000)))
				Expect(mmu.MAS6SPID.Get(out.MAS6)).To(Equal(uint32(11)))
				Expect(mmu.MAS6SAS.Get(out.MAS6)).To(Equal(uint32(1)))
			},
			Entry("PID0", uint32(0), uint32(11)),
			Entry("PID1", uint32(1), uint32(22)),
			Entry("PID2", uint32(2), uint32(33)),
			Entry("TID zero", uint32(3), uint32(0)),
		)
	})

	Describe("translation cache capacity", func() {
		It("should evict the least recently used translation", func() {
			cfg := mmu.DefaultConfig()
			cfg.CacheSets = 1
			cfg.CacheWays = 2
			m = mmu.New(cfg)

			for i := uint64(0); i < 3; i++ {
				w := mapping{
					tlbsel: mmu.TLB0, esel: 0, ea: i << 12, ra: (i + 8) << 12,
					perms: mmu.PermAll, valid: true,
				}
				Expect(m.Write(w.mas())).To(Succeed())
			}
			for i := uint64(0); i < 3; i++ {
				_, found, err := m.Translate(mmu.Request{EA: i << 12})
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())
			}

			Expect(m.Cache().Len()).To(Equal(2))
			Expect(m.Cache().Stats().Inserts).To(Equal(uint64(3)))
		})
	})
})

var _ = Describe("Config", func() {
	It("should accept the defaults", func() {
		Expect(mmu.DefaultConfig().Validate()).To(Succeed())
	})

	It("should reject a non power-of-two TLB0 set count", func() {
		cfg := mmu.DefaultConfig()
		cfg.TLB0Sets = 100
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should reject an empty translation cache", func() {
		cfg := mmu.DefaultConfig()
		cfg.CacheWays = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})
})
