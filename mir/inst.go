// Package mir defines the SPARC V9 machine IR consumed by the emitter: a
// linear, register-allocated instruction stream whose branch targets are
// indices into the same stream.
//
// Inst is a closed sum type. Each operand shape is its own struct with its
// own op enum, so an instruction cannot carry an op whose encoding needs a
// different operand shape.
package mir

import (
	"fmt"
	"strings"
)

// Inst is one element of the instruction stream. The only implementations are
// the types declared in this package.
type Inst interface {
	fmt.Stringer
	isInst()
}

// Arith3Op is the op of an Arith3 instruction.
type Arith3Op uint8

const (
	OpAdd Arith3Op = iota
	OpAddcc
	OpAnd
	OpAndcc
	OpAndn
	OpOr
	OpOrcc
	OpOrn
	OpXor
	OpXorcc
	OpXnor
	OpSub
	OpSubcc
	OpMulx
	OpSdivx
	OpUdivx
	OpSll
	OpSrl
	OpSra
	OpSllx
	OpSrlx
	OpSrax
	OpJmpl
	OpSave
	OpRestore
	OpLdub
	OpLduh
	OpLduw
	OpLdx
	OpLdsb
	OpLdsh
	OpLdsw
	OpStb
	OpSth
	OpStw
	OpStx

	numArith3Ops
)

var arith3OpNames = [...]string{
	OpAdd:     "add",
	OpAddcc:   "addcc",
	OpAnd:     "and",
	OpAndcc:   "andcc",
	OpAndn:    "andn",
	OpOr:      "or",
	OpOrcc:    "orcc",
	OpOrn:     "orn",
	OpXor:     "xor",
	OpXorcc:   "xorcc",
	OpXnor:    "xnor",
	OpSub:     "sub",
	OpSubcc:   "subcc",
	OpMulx:    "mulx",
	OpSdivx:   "sdivx",
	OpUdivx:   "udivx",
	OpSll:     "sll",
	OpSrl:     "srl",
	OpSra:     "sra",
	OpSllx:    "sllx",
	OpSrlx:    "srlx",
	OpSrax:    "srax",
	OpJmpl:    "jmpl",
	OpSave:    "save",
	OpRestore: "restore",
	OpLdub:    "ldub",
	OpLduh:    "lduh",
	OpLduw:    "lduw",
	OpLdx:     "ldx",
	OpLdsb:    "ldsb",
	OpLdsh:    "ldsh",
	OpLdsw:    "ldsw",
	OpStb:     "stb",
	OpSth:     "sth",
	OpStw:     "stw",
	OpStx:     "stx",
}

// Valid returns true if op is one of the declared Arith3Op values.
func (op Arith3Op) Valid() bool { return op < numArith3Ops }

// IsLoad returns true for the memory loads.
func (op Arith3Op) IsLoad() bool { return op >= OpLdub && op <= OpLdsw }

// IsStore returns true for the memory stores.
func (op Arith3Op) IsStore() bool { return op >= OpStb && op <= OpStx }

// IsShift returns true for the 32-bit and 64-bit shifts.
func (op Arith3Op) IsShift() bool { return op >= OpSll && op <= OpSrax }

// String implements fmt.Stringer.
func (op Arith3Op) String() string {
	if op.Valid() {
		return arith3OpNames[op]
	}
	return fmt.Sprintf("arith3(%d)", uint8(op))
}

// Arith3 is the three-operand form "op rs1, src2, rd" shared by the ALU
// operations, shifts, jmpl, save/restore and the memory accesses, where
// the address is rs1+src2. For stores Rd is the register being stored.
type Arith3 struct {
	Op   Arith3Op
	Rd   Reg
	Rs1  Reg
	Src2 RegOrImm
}

func (Arith3) isInst() {}

// String implements fmt.Stringer.
func (i Arith3) String() string {
	switch {
	case i.Op.IsLoad():
		return fmt.Sprintf("%s [%s + %s], %s", i.Op, i.Rs1, i.Src2, i.Rd)
	case i.Op.IsStore():
		return fmt.Sprintf("%s %s, [%s + %s]", i.Op, i.Rd, i.Rs1, i.Src2)
	default:
		return fmt.Sprintf("%s %s, %s, %s", i.Op, i.Rs1, i.Src2, i.Rd)
	}
}

// Arith2Op is the op of an Arith2 instruction.
type Arith2Op uint8

const (
	// OpCmp is "subcc R, Src, %g0".
	OpCmp Arith2Op = iota
	// OpMov is "or %g0, Src, R".
	OpMov
	// OpNot is "xnor Src, %g0, R".
	OpNot
	// OpReturn is "return R + Src".
	OpReturn

	numArith2Ops
)

// Valid returns true if op is one of the declared Arith2Op values.
func (op Arith2Op) Valid() bool { return op < numArith2Ops }

// String implements fmt.Stringer.
func (op Arith2Op) String() string {
	switch op {
	case OpCmp:
		return "cmp"
	case OpMov:
		return "mov"
	case OpNot:
		return "not"
	case OpReturn:
		return "return"
	}
	return fmt.Sprintf("arith2(%d)", uint8(op))
}

// Arith2 is the two-operand form used by the synthetic instructions. The
// role of R depends on Op: the compared register for cmp, the destination
// for mov and not, and the base address for return.
type Arith2 struct {
	Op  Arith2Op
	R   Reg
	Src RegOrImm
}

func (Arith2) isInst() {}

// String implements fmt.Stringer.
func (i Arith2) String() string {
	switch i.Op {
	case OpCmp:
		return fmt.Sprintf("cmp %s, %s", i.R, i.Src)
	case OpReturn:
		return fmt.Sprintf("return %s + %s", i.R, i.Src)
	default:
		return fmt.Sprintf("%s %s, %s", i.Op, i.Src, i.R)
	}
}

// Branch is implemented by the instructions whose encoding depends on the
// byte distance to another instruction of the stream.
type Branch interface {
	Inst
	// BranchTarget returns the index of the instruction jumped to.
	BranchTarget() int
}

// BranchInt is BPcc: branch on integer condition codes with prediction.
type BranchInt struct {
	Cond         Cond
	CCR          CCR
	Annul        bool
	PredictTaken bool
	Target       int
}

func (BranchInt) isInst() {}

// BranchTarget implements Branch.
func (i BranchInt) BranchTarget() int { return i.Target }

// String implements fmt.Stringer.
func (i BranchInt) String() string {
	return fmt.Sprintf("b%s%s %s, #%d", i.Cond, branchSuffix(i.Annul, i.PredictTaken), i.CCR, i.Target)
}

// BranchReg is BPr: branch on the contents of an integer register.
type BranchReg struct {
	RCond        RCond
	Rs1          Reg
	Annul        bool
	PredictTaken bool
	Target       int
}

func (BranchReg) isInst() {}

// BranchTarget implements Branch.
func (i BranchReg) BranchTarget() int { return i.Target }

// String implements fmt.Stringer.
func (i BranchReg) String() string {
	return fmt.Sprintf("br%s%s %s, #%d", i.RCond, branchSuffix(i.Annul, i.PredictTaken), i.Rs1, i.Target)
}

func branchSuffix(annul, predictTaken bool) string {
	var sb strings.Builder
	if annul {
		sb.WriteString(",a")
	}
	if predictTaken {
		sb.WriteString(",pt")
	} else {
		sb.WriteString(",pn")
	}
	return sb.String()
}

// SetHi is "sethi %hi(Imm22<<10), Rd".
type SetHi struct {
	Rd    Reg
	Imm22 uint32
}

func (SetHi) isInst() {}

// String implements fmt.Stringer.
func (i SetHi) String() string {
	return fmt.Sprintf("sethi 0x%x, %s", i.Imm22, i.Rd)
}

// Trap is Tcc: trap on integer condition codes. The trap number is
// Rs1 + Src, where an immediate Src is a 7-bit software trap number.
type Trap struct {
	Cond Cond
	CCR  CCR
	Rs1  Reg
	Src  RegOrImm
}

func (Trap) isInst() {}

// String implements fmt.Stringer.
func (i Trap) String() string {
	return fmt.Sprintf("t%s %s, %s + %s", i.Cond, i.CCR, i.Rs1, i.Src)
}

// CondMove is MOVcc: move Src into Rd if Cond holds on CCR. An immediate
// Src is an 11-bit signed value.
type CondMove struct {
	Cond Cond
	CCR  CCR
	Rd   Reg
	Src  RegOrImm
}

func (CondMove) isInst() {}

// String implements fmt.Stringer.
func (i CondMove) String() string {
	return fmt.Sprintf("mov%s %s, %s, %s", i.Cond, i.CCR, i.Src, i.Rd)
}

// NullaryOp is the op of a Nullary instruction.
type NullaryOp uint8

const (
	OpNop NullaryOp = iota
	OpFlushw

	numNullaryOps
)

// Valid returns true if op is one of the declared NullaryOp values.
func (op NullaryOp) Valid() bool { return op < numNullaryOps }

// String implements fmt.Stringer.
func (op NullaryOp) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpFlushw:
		return "flushw"
	}
	return fmt.Sprintf("nullary(%d)", uint8(op))
}

// Nullary is an instruction without operands.
type Nullary struct {
	Op NullaryOp
}

func (Nullary) isInst() {}

// String implements fmt.Stringer.
func (i Nullary) String() string { return i.Op.String() }

// DbgLine marks that the following instructions belong to the given source
// line and column. It occupies no bytes.
type DbgLine struct {
	Line, Column uint32
}

func (DbgLine) isInst() {}

// String implements fmt.Stringer.
func (i DbgLine) String() string {
	return fmt.Sprintf(".dbg_line %d:%d", i.Line, i.Column)
}

// DbgPrologueEnd marks the end of the function prologue. It occupies no bytes.
type DbgPrologueEnd struct{}

func (DbgPrologueEnd) isInst() {}

// String implements fmt.Stringer.
func (DbgPrologueEnd) String() string { return ".dbg_prologue_end" }

// DbgEpilogueBegin marks the beginning of the function epilogue. It occupies
// no bytes.
type DbgEpilogueBegin struct{}

func (DbgEpilogueBegin) isInst() {}

// String implements fmt.Stringer.
func (DbgEpilogueBegin) String() string { return ".dbg_epilogue_begin" }

// IsDebugMarker returns true if i only carries debug information and is
// never encoded into the code.
func IsDebugMarker(i Inst) bool {
	switch i.(type) {
	case DbgLine, DbgPrologueEnd, DbgEpilogueBegin:
		return true
	}
	return false
}
