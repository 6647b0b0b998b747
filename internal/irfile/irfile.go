// Package irfile reads and writes machine IR files: a CBOR map holding a
// format version and a list of functions, each a list of instruction
// records.
//
// Decoding validates register numbers, condition fields, immediate ranges and
// branch targets, so that any function read from a file can be emitted.
package irfile

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tetratelabs/sparcemit/internal/isa/sparc64"
	"github.com/tetratelabs/sparcemit/mir"
)

// Version is the format version written by Marshal.
const Version = 1

// ErrInvalid is wrapped by the errors of malformed files.
var ErrInvalid = errors.New("invalid machine IR")

type file struct {
	Version   uint       `cbor:"1,keyasint"`
	Functions []function `cbor:"2,keyasint"`
}

type function struct {
	Name   string `cbor:"1,keyasint"`
	File   string `cbor:"2,keyasint,omitempty"`
	Line   uint32 `cbor:"3,keyasint,omitempty"`
	Column uint32 `cbor:"4,keyasint,omitempty"`
	Insts  []inst `cbor:"5,keyasint"`
}

// Instruction kinds.
const (
	kindArith3        = "arith3"
	kindArith2        = "arith2"
	kindBPcc          = "bpcc"
	kindBPr           = "bpr"
	kindSetHi         = "sethi"
	kindTrap          = "trap"
	kindCondMove      = "movcc"
	kindNullary       = "nullary"
	kindLine          = "line"
	kindPrologueEnd   = "prologue_end"
	kindEpilogueBegin = "epilogue_begin"
)

// inst is the record of any instruction. Fields not used by Kind are left
// empty. Exactly one of Rs2 and Imm is set for operands which can be either
// a register or an immediate.
type inst struct {
	Kind    string `cbor:"1,keyasint"`
	Op      string `cbor:"2,keyasint,omitempty"`
	Rd      uint8  `cbor:"3,keyasint,omitempty"`
	Rs1     uint8  `cbor:"4,keyasint,omitempty"`
	Rs2     *uint8 `cbor:"5,keyasint,omitempty"`
	Imm     *int64 `cbor:"6,keyasint,omitempty"`
	Cond    uint8  `cbor:"7,keyasint,omitempty"`
	CCR     uint8  `cbor:"8,keyasint,omitempty"`
	Annul   bool   `cbor:"9,keyasint,omitempty"`
	Predict bool   `cbor:"10,keyasint,omitempty"`
	Target  int    `cbor:"11,keyasint,omitempty"`
	Line    uint32 `cbor:"12,keyasint,omitempty"`
	Column  uint32 `cbor:"13,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	arith3Ops  = map[string]mir.Arith3Op{}
	arith2Ops  = map[string]mir.Arith2Op{}
	nullaryOps = map[string]mir.NullaryOp{}
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("irfile: failed to create CBOR enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("irfile: failed to create CBOR dec mode: %v", err))
	}

	for op := mir.Arith3Op(0); op.Valid(); op++ {
		arith3Ops[op.String()] = op
	}
	for op := mir.Arith2Op(0); op.Valid(); op++ {
		arith2Ops[op.String()] = op
	}
	for op := mir.NullaryOp(0); op.Valid(); op++ {
		nullaryOps[op.String()] = op
	}
}

// Marshal encodes fns. The encoding is canonical: equal functions always
// encode to the same bytes.
func Marshal(fns ...*mir.Function) ([]byte, error) {
	f := file{Version: Version, Functions: make([]function, 0, len(fns))}
	for _, fn := range fns {
		rec, err := fromFunction(fn)
		if err != nil {
			return nil, err
		}
		f.Functions = append(f.Functions, rec)
	}
	return encMode.Marshal(&f)
}

// Unmarshal decodes and validates the functions of a machine IR file.
func Unmarshal(data []byte) ([]*mir.Function, error) {
	var f file
	if err := decMode.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, f.Version)
	}
	fns := make([]*mir.Function, 0, len(f.Functions))
	for i := range f.Functions {
		fn, err := toFunction(&f.Functions[i])
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func fromFunction(fn *mir.Function) (function, error) {
	rec := function{
		Name:   fn.Name,
		File:   fn.Source.File,
		Line:   fn.Source.Line,
		Column: fn.Source.Column,
		Insts:  make([]inst, len(fn.Insts)),
	}
	for i, in := range fn.Insts {
		r := &rec.Insts[i]
		switch in := in.(type) {
		case mir.Arith3:
			r.Kind, r.Op, r.Rd, r.Rs1 = kindArith3, in.Op.String(), uint8(in.Rd), uint8(in.Rs1)
			r.setSrc(in.Src2)
		case mir.Arith2:
			r.Kind, r.Op, r.Rd = kindArith2, in.Op.String(), uint8(in.R)
			r.setSrc(in.Src)
		case mir.BranchInt:
			r.Kind, r.Cond, r.CCR = kindBPcc, uint8(in.Cond), uint8(in.CCR)
			r.Annul, r.Predict, r.Target = in.Annul, in.PredictTaken, in.Target
		case mir.BranchReg:
			r.Kind, r.Cond, r.Rs1 = kindBPr, uint8(in.RCond), uint8(in.Rs1)
			r.Annul, r.Predict, r.Target = in.Annul, in.PredictTaken, in.Target
		case mir.SetHi:
			imm := int64(in.Imm22)
			r.Kind, r.Rd, r.Imm = kindSetHi, uint8(in.Rd), &imm
		case mir.Trap:
			r.Kind, r.Cond, r.CCR, r.Rs1 = kindTrap, uint8(in.Cond), uint8(in.CCR), uint8(in.Rs1)
			r.setSrc(in.Src)
		case mir.CondMove:
			r.Kind, r.Cond, r.CCR, r.Rd = kindCondMove, uint8(in.Cond), uint8(in.CCR), uint8(in.Rd)
			r.setSrc(in.Src)
		case mir.Nullary:
			r.Kind, r.Op = kindNullary, in.Op.String()
		case mir.DbgLine:
			r.Kind, r.Line, r.Column = kindLine, in.Line, in.Column
		case mir.DbgPrologueEnd:
			r.Kind = kindPrologueEnd
		case mir.DbgEpilogueBegin:
			r.Kind = kindEpilogueBegin
		default:
			return function{}, fmt.Errorf("function %q: instruction %d: cannot encode %T", fn.Name, i, in)
		}
	}
	return rec, nil
}

func (r *inst) setSrc(src mir.RegOrImm) {
	if src.IsImm() {
		imm := int64(src.Imm())
		r.Imm = &imm
	} else {
		rs2 := uint8(src.Reg())
		r.Rs2 = &rs2
	}
}

func toFunction(rec *function) (*mir.Function, error) {
	fn := &mir.Function{
		Name:   rec.Name,
		Source: mir.SourceLocation{File: rec.File, Line: rec.Line, Column: rec.Column},
		Insts:  make([]mir.Inst, len(rec.Insts)),
	}
	for i := range rec.Insts {
		in, err := rec.Insts[i].toInst(len(rec.Insts))
		if err != nil {
			return nil, fmt.Errorf("%w: function %q: instruction %d: %v", ErrInvalid, rec.Name, i, err)
		}
		fn.Insts[i] = in
	}
	return fn, nil
}

// toInst converts the record of an instruction of a function with n
// instructions.
func (r *inst) toInst(n int) (mir.Inst, error) {
	switch r.Kind {
	case kindArith3:
		op, ok := arith3Ops[r.Op]
		if !ok {
			return nil, fmt.Errorf("unknown %s op %q", r.Kind, r.Op)
		}
		immBits, signed := uint(13), true
		switch {
		case op == mir.OpSll || op == mir.OpSrl || op == mir.OpSra:
			immBits, signed = 5, false
		case op.IsShift():
			immBits, signed = 6, false
		}
		src, err := r.src(immBits, signed)
		if err != nil {
			return nil, err
		}
		return mir.Arith3{Op: op, Rd: mir.Reg(r.Rd), Rs1: mir.Reg(r.Rs1), Src2: src}, r.regs(r.Rd, r.Rs1)
	case kindArith2:
		op, ok := arith2Ops[r.Op]
		if !ok {
			return nil, fmt.Errorf("unknown %s op %q", r.Kind, r.Op)
		}
		src, err := r.src(13, true)
		if err != nil {
			return nil, err
		}
		return mir.Arith2{Op: op, R: mir.Reg(r.Rd), Src: src}, r.regs(r.Rd)
	case kindBPcc:
		if err := r.branch(n); err != nil {
			return nil, err
		}
		if err := r.conds(); err != nil {
			return nil, err
		}
		return mir.BranchInt{Cond: mir.Cond(r.Cond), CCR: mir.CCR(r.CCR), Annul: r.Annul, PredictTaken: r.Predict, Target: r.Target}, nil
	case kindBPr:
		if err := r.branch(n); err != nil {
			return nil, err
		}
		if c := mir.RCond(r.Cond); !c.Valid() {
			return nil, fmt.Errorf("invalid register condition %s", c)
		}
		return mir.BranchReg{RCond: mir.RCond(r.Cond), Rs1: mir.Reg(r.Rs1), Annul: r.Annul, PredictTaken: r.Predict, Target: r.Target}, r.regs(r.Rs1)
	case kindSetHi:
		if r.Imm == nil || !sparc64.FitsUnsigned(*r.Imm, 22) {
			return nil, errors.New("sethi requires a 22-bit unsigned immediate")
		}
		return mir.SetHi{Rd: mir.Reg(r.Rd), Imm22: uint32(*r.Imm)}, r.regs(r.Rd)
	case kindTrap:
		if err := r.conds(); err != nil {
			return nil, err
		}
		src, err := r.src(7, false)
		if err != nil {
			return nil, err
		}
		return mir.Trap{Cond: mir.Cond(r.Cond), CCR: mir.CCR(r.CCR), Rs1: mir.Reg(r.Rs1), Src: src}, r.regs(r.Rs1)
	case kindCondMove:
		if err := r.conds(); err != nil {
			return nil, err
		}
		src, err := r.src(11, true)
		if err != nil {
			return nil, err
		}
		return mir.CondMove{Cond: mir.Cond(r.Cond), CCR: mir.CCR(r.CCR), Rd: mir.Reg(r.Rd), Src: src}, r.regs(r.Rd)
	case kindNullary:
		op, ok := nullaryOps[r.Op]
		if !ok {
			return nil, fmt.Errorf("unknown %s op %q", r.Kind, r.Op)
		}
		return mir.Nullary{Op: op}, nil
	case kindLine:
		return mir.DbgLine{Line: r.Line, Column: r.Column}, nil
	case kindPrologueEnd:
		return mir.DbgPrologueEnd{}, nil
	case kindEpilogueBegin:
		return mir.DbgEpilogueBegin{}, nil
	}
	return nil, fmt.Errorf("unknown kind %q", r.Kind)
}

// src returns the register or immediate operand, checking that an
// immediate fits the given number of bits.
func (r *inst) src(immBits uint, signed bool) (mir.RegOrImm, error) {
	switch {
	case r.Imm != nil && r.Rs2 != nil:
		return mir.RegOrImm{}, errors.New("both a register and an immediate operand")
	case r.Rs2 != nil:
		return mir.R(mir.Reg(*r.Rs2)), r.regs(*r.Rs2)
	case r.Imm == nil:
		return mir.RegOrImm{}, errors.New("missing register or immediate operand")
	}
	imm := *r.Imm
	if signed && !sparc64.FitsSigned(imm, immBits) {
		return mir.RegOrImm{}, fmt.Errorf("immediate %d does not fit %d signed bits", imm, immBits)
	}
	if !signed && !sparc64.FitsUnsigned(imm, immBits) {
		return mir.RegOrImm{}, fmt.Errorf("immediate %d does not fit %d unsigned bits", imm, immBits)
	}
	return mir.Imm(int32(imm)), nil
}

func (r *inst) regs(regs ...uint8) error {
	for _, n := range regs {
		if reg := mir.Reg(n); !reg.Valid() {
			return fmt.Errorf("invalid register %s", reg)
		}
	}
	return nil
}

func (r *inst) conds() error {
	if c := mir.Cond(r.Cond); !c.Valid() {
		return fmt.Errorf("invalid condition %s", c)
	}
	if c := mir.CCR(r.CCR); !c.Valid() {
		return fmt.Errorf("invalid condition code register %s", c)
	}
	return nil
}

func (r *inst) branch(n int) error {
	if r.Target < 0 || r.Target >= n {
		return fmt.Errorf("branch target %d is outside of [0, %d)", r.Target, n)
	}
	return nil
}
