package emu

import "encoding/binary"

// Bus is the physical memory an emulator core reads and writes. Addresses
// are real addresses; multi-byte values are big-endian.
type Bus interface {
	Read8(addr uint64) uint8
	Read16(addr uint64) uint16
	Read32(addr uint64) uint32
	Read64(addr uint64) uint64
	Write8(addr uint64, value uint8)
	Write16(addr uint64, value uint16)
	Write32(addr uint64, value uint32)
	Write64(addr uint64, value uint64)
}

const pageBits = 12
const pageSize = 1 << pageBits

// Memory is a sparse big-endian memory. Unwritten bytes read as zero.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr uint64, create bool) *[pageSize]byte {
	p := m.pages[addr>>pageBits]
	if p == nil && create {
		p = new([pageSize]byte)
		m.pages[addr>>pageBits] = p
	}
	return p
}

// read copies len(buf) bytes starting at addr.
func (m *Memory) read(addr uint64, buf []byte) {
	for i := range buf {
		a := addr + uint64(i)
		if p := m.page(a, false); p != nil {
			buf[i] = p[a&(pageSize-1)]
		} else {
			buf[i] = 0
		}
	}
}

func (m *Memory) write(addr uint64, buf []byte) {
	for i, b := range buf {
		a := addr + uint64(i)
		m.page(a, true)[a&(pageSize-1)] = b
	}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint64) uint8 {
	var b [1]byte
	m.read(addr, b[:])
	return b[0]
}

// Read16 reads a big-endian halfword.
func (m *Memory) Read16(addr uint64) uint16 {
	var b [2]byte
	m.read(addr, b[:])
	return binary.BigEndian.Uint16(b[:])
}

// Read32 reads a big-endian word.
func (m *Memory) Read32(addr uint64) uint32 {
	var b [4]byte
	m.read(addr, b[:])
	return binary.BigEndian.Uint32(b[:])
}

// Read64 reads a big-endian doubleword.
func (m *Memory) Read64(addr uint64) uint64 {
	var b [8]byte
	m.read(addr, b[:])
	return binary.BigEndian.Uint64(b[:])
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	m.write(addr, []byte{value})
}

// Write16 writes a big-endian halfword.
func (m *Memory) Write16(addr uint64, value uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], value)
	m.write(addr, b[:])
}

// Write32 writes a big-endian word.
func (m *Memory) Write32(addr uint64, value uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], value)
	m.write(addr, b[:])
}

// Write64 writes a big-endian doubleword.
func (m *Memory) Write64(addr uint64, value uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], value)
	m.write(addr, b[:])
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint64, data []byte) {
	m.write(addr, data)
}

// ReadBytes returns n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint64, n int) []byte {
	buf := make([]byte, n)
	m.read(addr, buf)
	return buf
}
