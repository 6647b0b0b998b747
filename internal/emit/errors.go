package emit

import (
	"errors"
	"fmt"

	"github.com/tetratelabs/sparcemit/mir"
)

var (
	// ErrEncodingRangeExceeded is the Kind of an Error returned when no
	// branch encoding can express a displacement.
	ErrEncodingRangeExceeded = errors.New("encoding range exceeded")
	// ErrUnsupportedInstruction is the Kind of an Error returned when an
	// instruction, one of its operands or its branch encoding has no
	// machine encoding.
	ErrUnsupportedInstruction = errors.New("unsupported instruction")
	// ErrResourceExhaustion is the Kind of an Error returned when the code
	// section cannot grow any further.
	ErrResourceExhaustion = errors.New("resource exhaustion")
	// ErrInvalidBranchTarget is the Kind of an Error returned when a branch
	// targets an index outside of the instruction stream.
	ErrInvalidBranchTarget = errors.New("invalid branch target")
)

// Error is the single diagnostic of a failed emission. It matches its Kind
// and, if any, the error that caused it via errors.Is.
type Error struct {
	// Loc is the source location of the offending instruction.
	Loc mir.SourceLocation
	// Index is the index of the offending instruction in the stream.
	Index int
	// Kind is one of the Err* sentinels of this package.
	Kind error
	Msg  string

	cause error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Loc, e.Kind, e.Msg)
}

// Unwrap allows errors.Is and errors.As to see both the Kind and the cause.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

func newError(fn *mir.Function, i int, kind error, format string, args ...interface{}) *Error {
	return &Error{Loc: fn.LocationOf(i), Index: i, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
