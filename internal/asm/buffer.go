package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WordSize is the size in bytes of one SPARC instruction word.
const WordSize = 4

// ErrSizeLimit is returned when a write would grow a CodeSection beyond its
// configured limit.
var ErrSizeLimit = errors.New("code size limit exceeded")

var zero [WordSize]byte

// CodeSection represents the caller-owned section where the machine code of
// all emitted functions is appended.
//
// To emit a function, the program must call Next to obtain a buffer view
// capable of writing data at the end of the section. The section only ever
// grows, except that a Buffer can drop what it wrote itself via Reset or
// Truncate, which is how a failed emission discards its partial output.
//
// The zero value is a valid, empty code section without a size limit.
type CodeSection struct {
	code []byte
	// limit is the maximum length of code in bytes, or zero for no limit.
	limit int
}

// NewCodeSection returns an empty CodeSection which can grow up to limit
// bytes. A zero limit means unlimited.
func NewCodeSection(limit int) *CodeSection {
	return &CodeSection{limit: limit}
}

// Len returns the number of bytes written to the section.
func (s *CodeSection) Len() int {
	return len(s.code)
}

// Bytes returns the content of the section.
//
// The returned slice remains valid until more bytes are written to a buffer
// of the section.
func (s *CodeSection) Bytes() []byte {
	return s.code
}

// Next returns a buffer pointed at the end of the section, which is first
// aligned to WordSize.
//
// Buffers are passed by value, but they hold a reference to the code section
// that they were created from.
func (s *CodeSection) Next() (Buffer, error) {
	if pad := len(s.code) % WordSize; pad != 0 {
		if err := s.write(zero[:WordSize-pad]); err != nil {
			return Buffer{}, err
		}
	}
	return Buffer{sec: s, off: len(s.code)}, nil
}

func (s *CodeSection) reserve(n int) error {
	if s.limit > 0 && len(s.code)+n > s.limit {
		return fmt.Errorf("%w: writing %d bytes at offset %d exceeds %d", ErrSizeLimit, n, len(s.code), s.limit)
	}
	return nil
}

func (s *CodeSection) write(b []byte) error {
	if err := s.reserve(len(b)); err != nil {
		return err
	}
	s.code = append(s.code, b...)
	return nil
}

func (s *CodeSection) writeUint32(u uint32) error {
	if err := s.reserve(WordSize); err != nil {
		return err
	}
	// Instructions are big-endian regardless of the host byte order.
	s.code = binary.BigEndian.AppendUint32(s.code, u)
	return nil
}

// Buffer is a reference type representing a section beginning at the end of a
// code section where new instructions can be written.
type Buffer struct {
	sec *CodeSection
	off int
}

// Offset returns the offset of the buffer in its code section.
func (buf Buffer) Offset() int {
	return buf.off
}

// Len returns the number of bytes written through this buffer.
func (buf Buffer) Len() int {
	return len(buf.sec.code) - buf.off
}

// Bytes returns the bytes written through this buffer.
func (buf Buffer) Bytes() []byte {
	i := buf.off
	j := len(buf.sec.code)
	return buf.sec.code[i:j:j]
}

// Reset drops everything written through this buffer.
func (buf Buffer) Reset() {
	buf.sec.code = buf.sec.code[:buf.off]
}

// Truncate keeps only the first n bytes written through this buffer.
func (buf Buffer) Truncate(n int) {
	buf.sec.code = buf.sec.code[:buf.off+n]
}

// Write4Bytes appends one instruction word in big-endian byte order.
func (buf Buffer) Write4Bytes(u uint32) error {
	return buf.sec.writeUint32(u)
}

// Write appends already encoded instruction words. The length of b must be
// a multiple of WordSize.
func (buf Buffer) Write(b []byte) (int, error) {
	if len(b)%WordSize != 0 {
		return 0, fmt.Errorf("length %d is not a multiple of the word size", len(b))
	}
	if err := buf.sec.write(b); err != nil {
		return 0, err
	}
	return len(b), nil
}
