package emu

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// PowerPC Linux syscall numbers.
const (
	SyscallExit      uint64 = 1   // exit(status)
	SyscallRead      uint64 = 3   // read(fd, buf, count)
	SyscallWrite     uint64 = 4   // write(fd, buf, count)
	SyscallOpen      uint64 = 5   // open(path, flags, mode)
	SyscallClose     uint64 = 6   // close(fd)
	SyscallLseek     uint64 = 19  // lseek(fd, offset, whence)
	SyscallExitGroup uint64 = 234 // exit_group(status)
)

// Linux error codes.
const (
	ENOENT = 2  // No such file or directory
	EIO    = 5  // I/O error
	EBADF  = 9  // Bad file descriptor
	EACCES = 13 // Permission denied
	EINVAL = 22 // Invalid argument
	ENOSYS = 38 // Function not implemented
)

// maxPathLen bounds the guest path strings read by open.
const maxPathLen = 4096

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling system calls raised by sc.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// PowerPC Linux convention:
	//   - Syscall number in r0
	//   - Arguments in r3-r8
	//   - Return value in r3; CR0[SO] set on error with r3 = errno
	Handle() SyscallResult
}

// DefaultSyscallHandler provides a basic syscall handler implementation.
// Buffers are addressed through the bus with real addresses.
type DefaultSyscallHandler struct {
	regFile *RegFile
	bus     Bus
	fdTable *FDTable
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, bus Bus, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		bus:     bus,
		fdTable: NewFDTable(),
		stdout:  stdout,
		stderr:  stderr,
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// FDTable returns the handler's descriptor table.
func (h *DefaultSyscallHandler) FDTable() *FDTable {
	return h.fdTable
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	switch h.regFile.ReadGPR(0) {
	case SyscallRead:
		return h.handleRead()
	case SyscallWrite:
		return h.handleWrite()
	case SyscallOpen:
		return h.handleOpen()
	case SyscallClose:
		return h.handleClose()
	case SyscallLseek:
		return h.handleLseek()
	case SyscallExit, SyscallExitGroup:
		return h.handleExit()
	default:
		return h.handleUnknown()
	}
}

func (h *DefaultSyscallHandler) handleExit() SyscallResult {
	return SyscallResult{
		Exited:   true,
		ExitCode: int64(int32(h.regFile.ReadGPR(3))),
	}
}

func (h *DefaultSyscallHandler) handleRead() SyscallResult {
	fd := h.regFile.ReadGPR(3)
	bufPtr := h.regFile.ReadGPR(4)
	count := h.regFile.ReadGPR(5)

	var reader io.Reader
	switch {
	case !h.fdTable.IsOpen(fd):
		h.setError(EBADF)
		return SyscallResult{}
	case fd == 0:
		reader = h.stdin
	default:
		f, ok := h.fdTable.File(fd)
		if !ok {
			h.setError(EBADF)
			return SyscallResult{}
		}
		reader = f
	}

	// If no stdin is configured, return EOF
	if reader == nil {
		h.setResult(0)
		return SyscallResult{}
	}

	buf := make([]byte, count)
	n, err := reader.Read(buf)
	if err != nil && n == 0 {
		if errors.Is(err, io.EOF) {
			h.setResult(0)
		} else {
			h.setError(EIO)
		}
		return SyscallResult{}
	}

	for i := 0; i < n; i++ {
		h.bus.Write8(bufPtr+uint64(i), buf[i])
	}

	h.setResult(uint64(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadGPR(3)
	bufPtr := h.regFile.ReadGPR(4)
	count := h.regFile.ReadGPR(5)

	var writer io.Writer
	switch {
	case !h.fdTable.IsOpen(fd):
		h.setError(EBADF)
		return SyscallResult{}
	case fd == 1:
		writer = h.stdout
	case fd == 2:
		writer = h.stderr
	default:
		f, ok := h.fdTable.File(fd)
		if !ok {
			h.setError(EBADF)
			return SyscallResult{}
		}
		writer = f
	}

	buf := make([]byte, count)
	for i := uint64(0); i < count; i++ {
		buf[i] = h.bus.Read8(bufPtr + i)
	}

	n, err := writer.Write(buf)
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.setResult(uint64(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleOpen() SyscallResult {
	path := h.readString(h.regFile.ReadGPR(3))
	flags := h.regFile.ReadGPR(4)
	mode := os.FileMode(h.regFile.ReadGPR(5) & 0o777)

	fd, err := h.fdTable.Open(path, flags, mode)
	if err != nil {
		h.setError(errno(err))
		return SyscallResult{}
	}

	h.setResult(fd)
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleClose() SyscallResult {
	if err := h.fdTable.Close(h.regFile.ReadGPR(3)); err != nil {
		h.setError(EBADF)
		return SyscallResult{}
	}
	h.setResult(0)
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleLseek() SyscallResult {
	fd := h.regFile.ReadGPR(3)
	offset := int64(int32(h.regFile.ReadGPR(4)))
	whence := int(h.regFile.ReadGPR(5))

	if _, ok := h.fdTable.File(fd); !ok {
		h.setError(EBADF)
		return SyscallResult{}
	}
	pos, err := h.fdTable.Seek(fd, offset, whence)
	if err != nil {
		h.setError(EINVAL)
		return SyscallResult{}
	}

	h.setResult(uint64(pos))
	return SyscallResult{}
}

// readString reads a NUL-terminated guest string.
func (h *DefaultSyscallHandler) readString(addr uint64) string {
	var buf []byte
	for i := uint64(0); i < maxPathLen; i++ {
		b := h.bus.Read8(addr + i)
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

// errno maps a host error to a Linux error number.
func errno(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ENOENT
	case errors.Is(err, fs.ErrPermission):
		return EACCES
	case errors.Is(err, fs.ErrInvalid):
		return EINVAL
	}
	return EIO
}

func (h *DefaultSyscallHandler) handleUnknown() SyscallResult {
	h.setError(ENOSYS)
	return SyscallResult{}
}

// setResult returns a value in r3 and clears CR0[SO].
func (h *DefaultSyscallHandler) setResult(v uint64) {
	h.regFile.WriteGPR(3, v)
	h.regFile.SetCRField(0, h.regFile.CRField(0)&^CRSO)
}

// setError returns errno in r3 and sets CR0[SO].
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteGPR(3, uint64(errno))
	h.regFile.SetCRField(0, h.regFile.CRField(0)|CRSO)
}
