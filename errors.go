package sparcemit

import "github.com/tetratelabs/sparcemit/internal/emit"

// EmitError is the error of a failed EmitFunction. Its Kind is one of the
// Err sentinels below, which it also matches with errors.Is.
type EmitError = emit.Error

var (
	// ErrEncodingRangeExceeded is the kind of errors where a branch
	// displacement doesn't fit any encoding of the branch.
	ErrEncodingRangeExceeded = emit.ErrEncodingRangeExceeded
	// ErrUnsupportedInstruction is the kind of errors where an instruction
	// or one of its operands has no encoding.
	ErrUnsupportedInstruction = emit.ErrUnsupportedInstruction
	// ErrResourceExhaustion is the kind of errors where the code would
	// exceed EmitConfig.WithMaxCodeSize.
	ErrResourceExhaustion = emit.ErrResourceExhaustion
	// ErrInvalidBranchTarget is the kind of errors where a branch targets
	// an index outside of its function.
	ErrInvalidBranchTarget = emit.ErrInvalidBranchTarget
)
