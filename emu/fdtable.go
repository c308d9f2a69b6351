package emu

import (
	"io"
	"os"
)

// Guest open flags (PowerPC Linux values).
const (
	GuestOWronly = 0x1
	GuestORdwr   = 0x2
	GuestOCreat  = 0x40
	GuestOTrunc  = 0x200
	GuestOAppend = 0x400
)

// hostFlags converts guest open flags to host os flags.
func hostFlags(guest uint64) int {
	var flags int
	switch {
	case guest&GuestORdwr != 0:
		flags = os.O_RDWR
	case guest&GuestOWronly != 0:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if guest&GuestOCreat != 0 {
		flags |= os.O_CREATE
	}
	if guest&GuestOTrunc != 0 {
		flags |= os.O_TRUNC
	}
	if guest&GuestOAppend != 0 {
		flags |= os.O_APPEND
	}
	return flags
}

// FDTable maps guest file descriptors to host files. Descriptors 0-2 are
// the standard streams and are served by the syscall handler directly.
type FDTable struct {
	files  map[uint64]*os.File
	closed map[uint64]bool
	nextFD uint64
}

// NewFDTable creates a table with only the standard streams open.
func NewFDTable() *FDTable {
	return &FDTable{
		files:  make(map[uint64]*os.File),
		closed: make(map[uint64]bool),
		nextFD: 3,
	}
}

// Open opens a host file and returns its guest descriptor.
func (t *FDTable) Open(path string, guestFlags uint64, mode os.FileMode) (uint64, error) {
	f, err := os.OpenFile(path, hostFlags(guestFlags), mode)
	if err != nil {
		return 0, err
	}
	fd := t.nextFD
	t.nextFD++
	t.files[fd] = f
	return fd, nil
}

// IsOpen reports whether fd refers to an open descriptor.
func (t *FDTable) IsOpen(fd uint64) bool {
	if fd <= 2 {
		return !t.closed[fd]
	}
	_, ok := t.files[fd]
	return ok
}

// File returns the host file behind fd. Standard streams have none.
func (t *FDTable) File(fd uint64) (*os.File, bool) {
	f, ok := t.files[fd]
	return f, ok
}

// Close closes fd. Closing a standard stream only marks it closed.
func (t *FDTable) Close(fd uint64) error {
	if !t.IsOpen(fd) {
		return os.ErrInvalid
	}
	if fd <= 2 {
		t.closed[fd] = true
		return nil
	}
	f := t.files[fd]
	delete(t.files, fd)
	return f.Close()
}

// Seek moves the file position of a host-backed descriptor.
func (t *FDTable) Seek(fd uint64, offset int64, whence int) (int64, error) {
	f, ok := t.files[fd]
	if !ok {
		return 0, os.ErrInvalid
	}
	if whence < io.SeekStart || whence > io.SeekEnd {
		return 0, os.ErrInvalid
	}
	return f.Seek(offset, whence)
}
