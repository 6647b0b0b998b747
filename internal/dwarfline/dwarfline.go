// Package dwarfline writes and reads the opcode stream of a DWARF line
// number program, limited to the opcodes needed to describe the address to
// line mapping of emitted code.
//
// The header of the .debug_line section is owned by the caller.
//
// See DWARF Version 5, section 6.2.
package dwarfline

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tetratelabs/sparcemit/internal/leb128"
)

// Standard opcodes.
const (
	OpCopy             byte = 0x01
	OpAdvancePC        byte = 0x02
	OpAdvanceLine      byte = 0x03
	OpSetPrologueEnd   byte = 0x0a
	OpSetEpilogueBegin byte = 0x0b
)

// OpExtended introduces an extended opcode: its ULEB128 length, then the
// extended opcode and its operands.
const OpExtended byte = 0x00

// Extended opcodes.
const (
	ExtOpSetAddress byte = 0x02
)

// AddressSize is the size of a target address, big-endian on SPARC V9.
const AddressSize = 8

// Writer appends line program opcodes to an io.Writer. Errors of the
// underlying writer are returned as-is.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (lw *Writer) emit(op byte, operand []byte) error {
	lw.buf = append(lw.buf[:0], op)
	lw.buf = append(lw.buf, operand...)
	_, err := lw.w.Write(lw.buf)
	return err
}

// AdvancePC writes DW_LNS_advance_pc. delta is in bytes since the minimum
// instruction length is one.
func (lw *Writer) AdvancePC(delta uint64) error {
	return lw.emit(OpAdvancePC, leb128.EncodeUint64(delta))
}

// AdvanceLine writes DW_LNS_advance_line.
func (lw *Writer) AdvanceLine(delta int64) error {
	return lw.emit(OpAdvanceLine, leb128.EncodeInt64(delta))
}

// Copy writes DW_LNS_copy, which appends a row to the line table.
func (lw *Writer) Copy() error {
	return lw.emit(OpCopy, nil)
}

// SetPrologueEnd writes DW_LNS_set_prologue_end.
func (lw *Writer) SetPrologueEnd() error {
	return lw.emit(OpSetPrologueEnd, nil)
}

// SetEpilogueBegin writes DW_LNS_set_epilogue_begin.
func (lw *Writer) SetEpilogueBegin() error {
	return lw.emit(OpSetEpilogueBegin, nil)
}

// SetAddress writes DW_LNE_set_address.
func (lw *Writer) SetAddress(addr uint64) error {
	operand := append(leb128.EncodeUint64(1+AddressSize), ExtOpSetAddress)
	return lw.emit(OpExtended, binary.BigEndian.AppendUint64(operand, addr))
}

// Row is one row of the line table.
type Row struct {
	Address       uint64
	Line          int64
	PrologueEnd   bool
	EpilogueBegin bool
}

// Decode runs the line program in b from the initial state at the given line
// and returns the rows it appends.
func Decode(b []byte, line int64) (rows []Row, err error) {
	var state Row
	state.Line = line
	for i := 0; i < len(b); {
		op := b[i]
		i++
		switch op {
		case OpCopy:
			rows = append(rows, state)
			state.PrologueEnd, state.EpilogueBegin = false, false
		case OpAdvancePC:
			delta, n, err := leb128.LoadUint64(b[i:])
			if err != nil {
				return nil, fmt.Errorf("advance_pc at %d: %w", i-1, err)
			}
			i += int(n)
			state.Address += delta
		case OpAdvanceLine:
			delta, n, err := leb128.LoadInt64(b[i:])
			if err != nil {
				return nil, fmt.Errorf("advance_line at %d: %w", i-1, err)
			}
			i += int(n)
			state.Line += delta
		case OpSetPrologueEnd:
			state.PrologueEnd = true
		case OpSetEpilogueBegin:
			state.EpilogueBegin = true
		case OpExtended:
			size, n, err := leb128.LoadUint64(b[i:])
			if err != nil {
				return nil, fmt.Errorf("extended opcode at %d: %w", i-1, err)
			}
			i += int(n)
			if size == 0 || uint64(len(b)-i) < size {
				return nil, fmt.Errorf("extended opcode at %d: length %d exceeds the program", i-1-int(n), size)
			}
			ext, operand := b[i], b[i+1:i+int(size)]
			switch {
			case ext == ExtOpSetAddress && len(operand) == AddressSize:
				state.Address = binary.BigEndian.Uint64(operand)
			default:
				return nil, fmt.Errorf("unsupported extended opcode 0x%x of length %d at %d", ext, size, i-1-int(n))
			}
			i += int(size)
		default:
			return nil, fmt.Errorf("unsupported opcode 0x%x at %d", op, i-1)
		}
	}
	return rows, nil
}
