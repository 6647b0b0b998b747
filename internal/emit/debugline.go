package emit

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/tetratelabs/sparcemit/mir"
)

// LineProgram consumes the line number records of emitted code. Addresses
// are offsets in the code section functions are emitted to, and one program
// describes every function of an Emitter.
type LineProgram interface {
	AdvancePC(delta uint64) error
	AdvanceLine(delta int64) error
	Copy() error
	SetPrologueEnd() error
	SetEpilogueBegin() error
	// SetAddress moves the address backwards, after the code of a failed
	// function was dropped.
	SetAddress(addr uint64) error
}

// DebugKind is the kind of debug information produced alongside the code.
type DebugKind uint8

const (
	// DebugNone produces no debug information.
	DebugNone DebugKind = iota
	// DebugDWARF sends every line record to a LineProgram.
	DebugDWARF
	// DebugReduced is for formats without line programs. Line records are
	// dropped.
	DebugReduced
)

// String implements fmt.Stringer.
func (k DebugKind) String() string {
	switch k {
	case DebugNone:
		return "none"
	case DebugDWARF:
		return "dwarf"
	case DebugReduced:
		return "reduced"
	}
	return fmt.Sprintf("debugkind(%d)", uint8(k))
}

// DebugOutput selects the debug information sink.
type DebugOutput struct {
	Kind DebugKind
	// Program is the line program of DebugDWARF and must be nil otherwise.
	Program LineProgram
}

// lineProgram returns the LineProgram line records are sent to.
func (o DebugOutput) lineProgram() (LineProgram, error) {
	switch o.Kind {
	case DebugNone, DebugReduced:
		if o.Program != nil {
			return nil, fmt.Errorf("line program set for debug output %s", o.Kind)
		}
		return noopLineProgram{}, nil
	case DebugDWARF:
		if o.Program == nil {
			return nil, fmt.Errorf("debug output %s requires a line program", o.Kind)
		}
		return o.Program, nil
	}
	return nil, fmt.Errorf("invalid debug output %s", o.Kind)
}

type noopLineProgram struct{}

func (noopLineProgram) AdvancePC(uint64) error { return nil }
func (noopLineProgram) AdvanceLine(int64) error { return nil }
func (noopLineProgram) Copy() error { return nil }
func (noopLineProgram) SetPrologueEnd() error { return nil }
func (noopLineProgram) SetEpilogueBegin() error { return nil }
func (noopLineProgram) SetAddress(uint64) error { return nil }

// debugLineEmitter turns debug markers into line records. Line state is
// per function, starting at its declaration, while the registers of the
// program carry over from one function to the next.
type debugLineEmitter struct {
	prog   LineProgram
	logger commonlog.Logger

	// started is false until the first function. Then addr and line are the
	// address and line registers of the program.
	started bool
	addr    uint64
	line    uint32

	prevLine, prevColumn uint32
	prevOffset           int64
}

// reset starts the line state of a function declared at loc whose code
// starts at base in the section. The registers of the program are moved to
// base and the declaration line without appending a row.
func (d *debugLineEmitter) reset(loc mir.SourceLocation, base int64) error {
	d.prevLine, d.prevColumn = loc.Line, loc.Column
	d.prevOffset = 0
	if !d.started {
		// The program starts at address 0 and the line of the first
		// function.
		d.started = true
		d.line = loc.Line
	}

	switch addr := uint64(base); {
	case addr > d.addr:
		if err := d.prog.AdvancePC(addr - d.addr); err != nil {
			return err
		}
		d.addr = addr
	case addr < d.addr:
		if err := d.prog.SetAddress(addr); err != nil {
			return err
		}
		d.addr = addr
	}
	if deltaLine := int64(loc.Line) - int64(d.line); deltaLine != 0 {
		if err := d.prog.AdvanceLine(deltaLine); err != nil {
			return err
		}
		d.line = loc.Line
	}
	return nil
}

// emit handles inst at offset. It does nothing for instructions other than
// debug markers.
func (d *debugLineEmitter) emit(inst mir.Inst, offset int64) error {
	switch inst := inst.(type) {
	case mir.DbgLine:
		return d.advance(inst.Line, inst.Column, offset)
	case mir.DbgPrologueEnd:
		if err := d.prog.SetPrologueEnd(); err != nil {
			return err
		}
		return d.advance(d.prevLine, d.prevColumn, offset)
	case mir.DbgEpilogueBegin:
		if err := d.prog.SetEpilogueBegin(); err != nil {
			return err
		}
		return d.advance(d.prevLine, d.prevColumn, offset)
	}
	return nil
}

func (d *debugLineEmitter) advance(line, column uint32, offset int64) error {
	deltaPC := offset - d.prevOffset
	if deltaPC < 0 {
		panic(fmt.Sprintf("BUG: line record at offset %d before previous %d", offset, d.prevOffset))
	}
	deltaLine := int64(line) - int64(d.prevLine)

	if err := d.prog.AdvancePC(uint64(deltaPC)); err != nil {
		return err
	}
	d.addr += uint64(deltaPC)
	if deltaLine != 0 {
		if err := d.prog.AdvanceLine(deltaLine); err != nil {
			return err
		}
		d.line = line
	}
	if err := d.prog.Copy(); err != nil {
		return err
	}
	if d.logger.AllowLevel(commonlog.Debug) {
		d.logger.Debug("line", "offset", offset, "line", line, "column", column, "deltaPC", deltaPC, "deltaLine", deltaLine)
	}

	d.prevLine, d.prevColumn = line, column
	d.prevOffset = offset
	return nil
}
