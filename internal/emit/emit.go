// Package emit lowers a mir.Function into SPARC V9 machine code.
//
// Emission of one function has two phases. The branch resolver first walks
// the instruction stream until the encoding of every branch is stable, which
// fixes the offset of every instruction. Then the stream is walked once more
// to encode each instruction and send the line records of its debug markers.
// The first error aborts emission and drops whatever the function wrote.
package emit

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/tetratelabs/sparcemit/internal/asm"
	"github.com/tetratelabs/sparcemit/internal/logging"
	"github.com/tetratelabs/sparcemit/mir"
)

// Emitter emits functions one at a time. It is not safe for concurrent use,
// but can be reused for any number of functions.
type Emitter struct {
	resolver *branchResolver
	lines    debugLineEmitter
	logger   commonlog.Logger

	// fn is the function being emitted.
	fn *mir.Function
}

// NewEmitter returns an Emitter sending line records to debug. Subsystems
// enabled in scopes log through commonlog.
func NewEmitter(debug DebugOutput, scopes logging.LogScopes) (*Emitter, error) {
	prog, err := debug.lineProgram()
	if err != nil {
		return nil, err
	}
	return &Emitter{
		resolver: newBranchResolver(defaultTiers, scopes.Logger(logging.LogScopeBranch)),
		lines:    debugLineEmitter{prog: prog, logger: scopes.Logger(logging.LogScopeDebugLine)},
		logger:   scopes.Logger(logging.LogScopeEncode),
	}, nil
}

// Result describes the code of one emitted function.
type Result struct {
	// Size is the number of bytes written.
	Size int64
	// Passes is the number of branch resolution passes.
	Passes int
	// Offsets holds the offset of every instruction relative to the start of
	// the function. Debug markers share the offset of the next instruction.
	Offsets []int64
}

// Emit appends the code of fn to buf. On error, which is an *Error unless it
// comes from the line program, buf is truncated to its length on entry and
// the line program may have received part of the records.
func (e *Emitter) Emit(fn *mir.Function, buf asm.Buffer) (res Result, err error) {
	base := buf.Len()
	e.fn = fn
	defer func() {
		e.resolver.reset()
		e.fn = nil
		if err != nil {
			buf.Truncate(base)
			res = Result{}
		}
	}()

	if err = e.resolver.resolve(fn); err != nil {
		return
	}
	res.Passes = e.resolver.passes
	res.Offsets = make([]int64, len(fn.Insts))

	if err = e.lines.reset(fn.Source, int64(buf.Offset()+base)); err != nil {
		return
	}
	var offset int64
	for i, inst := range fn.Insts {
		if o, ok := e.resolver.offsets[i]; ok && o != offset {
			panic(fmt.Sprintf("BUG: %s: resolved offset %d of #%d but emitting at %d", fn.Name, o, i, offset))
		}
		res.Offsets[i] = offset

		if mir.IsDebugMarker(inst) {
			if err = e.lines.emit(inst, offset); err != nil {
				return
			}
			continue
		}

		var word uint32
		if word, err = e.dispatch(i, inst, offset); err != nil {
			return
		}
		if err = buf.Write4Bytes(word); err != nil {
			err = &Error{
				Loc:   fn.LocationOf(i),
				Index: i,
				Kind:  ErrResourceExhaustion,
				Msg:   fmt.Sprintf("%s: %v", inst, err),
				cause: err,
			}
			return
		}
		if e.logger.AllowLevel(commonlog.Debug) {
			e.logger.Debug("encoded", "index", i, "offset", offset, "inst", inst.String(), "word", fmt.Sprintf("%08x", word))
		}
		offset += e.resolver.size(i, inst)
	}

	if n := int64(buf.Len() - base); n != offset {
		panic(fmt.Sprintf("BUG: %s: wrote %d bytes but resolved %d", fn.Name, n, offset))
	}
	res.Size = offset
	return
}
