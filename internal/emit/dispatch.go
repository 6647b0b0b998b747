package emit

import (
	"fmt"

	"github.com/tetratelabs/sparcemit/internal/asm"
	"github.com/tetratelabs/sparcemit/internal/isa/sparc64"
	"github.com/tetratelabs/sparcemit/mir"
)

type arith3Encoding struct {
	op, op3 uint32
	// shift is set for the shifts, whose immediate is a shift count.
	shift, x bool
}

var arith3Encodings = [...]arith3Encoding{
	mir.OpAdd:     {op: sparc64.OpArith, op3: sparc64.Op3Add},
	mir.OpAddcc:   {op: sparc64.OpArith, op3: sparc64.Op3Addcc},
	mir.OpAnd:     {op: sparc64.OpArith, op3: sparc64.Op3And},
	mir.OpAndcc:   {op: sparc64.OpArith, op3: sparc64.Op3Andcc},
	mir.OpAndn:    {op: sparc64.OpArith, op3: sparc64.Op3Andn},
	mir.OpOr:      {op: sparc64.OpArith, op3: sparc64.Op3Or},
	mir.OpOrcc:    {op: sparc64.OpArith, op3: sparc64.Op3Orcc},
	mir.OpOrn:     {op: sparc64.OpArith, op3: sparc64.Op3Orn},
	mir.OpXor:     {op: sparc64.OpArith, op3: sparc64.Op3Xor},
	mir.OpXorcc:   {op: sparc64.OpArith, op3: sparc64.Op3Xorcc},
	mir.OpXnor:    {op: sparc64.OpArith, op3: sparc64.Op3Xnor},
	mir.OpSub:     {op: sparc64.OpArith, op3: sparc64.Op3Sub},
	mir.OpSubcc:   {op: sparc64.OpArith, op3: sparc64.Op3Subcc},
	mir.OpMulx:    {op: sparc64.OpArith, op3: sparc64.Op3Mulx},
	mir.OpSdivx:   {op: sparc64.OpArith, op3: sparc64.Op3Sdivx},
	mir.OpUdivx:   {op: sparc64.OpArith, op3: sparc64.Op3Udivx},
	mir.OpSll:     {op: sparc64.OpArith, op3: sparc64.Op3Sll, shift: true},
	mir.OpSrl:     {op: sparc64.OpArith, op3: sparc64.Op3Srl, shift: true},
	mir.OpSra:     {op: sparc64.OpArith, op3: sparc64.Op3Sra, shift: true},
	mir.OpSllx:    {op: sparc64.OpArith, op3: sparc64.Op3Sll, shift: true, x: true},
	mir.OpSrlx:    {op: sparc64.OpArith, op3: sparc64.Op3Srl, shift: true, x: true},
	mir.OpSrax:    {op: sparc64.OpArith, op3: sparc64.Op3Sra, shift: true, x: true},
	mir.OpJmpl:    {op: sparc64.OpArith, op3: sparc64.Op3Jmpl},
	mir.OpSave:    {op: sparc64.OpArith, op3: sparc64.Op3Save},
	mir.OpRestore: {op: sparc64.OpArith, op3: sparc64.Op3Restore},
	mir.OpLdub:    {op: sparc64.OpMem, op3: sparc64.Op3Ldub},
	mir.OpLduh:    {op: sparc64.OpMem, op3: sparc64.Op3Lduh},
	mir.OpLduw:    {op: sparc64.OpMem, op3: sparc64.Op3Lduw},
	mir.OpLdx:     {op: sparc64.OpMem, op3: sparc64.Op3Ldx},
	mir.OpLdsb:    {op: sparc64.OpMem, op3: sparc64.Op3Ldsb},
	mir.OpLdsh:    {op: sparc64.OpMem, op3: sparc64.Op3Ldsh},
	mir.OpLdsw:    {op: sparc64.OpMem, op3: sparc64.Op3Ldsw},
	mir.OpStb:     {op: sparc64.OpMem, op3: sparc64.Op3Stb},
	mir.OpSth:     {op: sparc64.OpMem, op3: sparc64.Op3Sth},
	mir.OpStw:     {op: sparc64.OpMem, op3: sparc64.Op3Stw},
	mir.OpStx:     {op: sparc64.OpMem, op3: sparc64.Op3Stx},
}

// operandError is an operand without encoding. The dispatcher turns it into
// an Error located at the instruction.
type operandError string

func (e operandError) Error() string { return string(e) }

func operandErrorf(format string, args ...interface{}) error {
	return operandError(fmt.Sprintf(format, args...))
}

func reg(r mir.Reg) (uint32, error) {
	if !r.Valid() {
		return 0, operandErrorf("invalid register %s", r)
	}
	return uint32(r), nil
}

func ccField(ccr mir.CCR) (uint32, error) {
	switch ccr {
	case mir.ICC:
		return sparc64.CCIcc, nil
	case mir.XCC:
		return sparc64.CCXcc, nil
	}
	return 0, operandErrorf("invalid condition code register %s", ccr)
}

func cond(c mir.Cond) (uint32, error) {
	if !c.Valid() {
		return 0, operandErrorf("invalid condition %s", c)
	}
	return uint32(c), nil
}

// format3 encodes the register or immediate form of a format 3 instruction
// depending on src.
func format3(op, op3 uint32, rd, rs1 mir.Reg, src mir.RegOrImm) (uint32, error) {
	d, err := reg(rd)
	if err != nil {
		return 0, err
	}
	s1, err := reg(rs1)
	if err != nil {
		return 0, err
	}
	if src.IsImm() {
		imm := src.Imm()
		if !sparc64.FitsSigned(int64(imm), 13) {
			return 0, operandErrorf("immediate %d does not fit simm13", imm)
		}
		return sparc64.Format3Imm(op, op3, d, s1, imm), nil
	}
	s2, err := reg(src.Reg())
	if err != nil {
		return 0, err
	}
	return sparc64.Format3Reg(op, op3, d, s1, s2), nil
}

func encodeArith3(inst mir.Arith3) (uint32, error) {
	if !inst.Op.Valid() {
		return 0, operandErrorf("invalid op %s", inst.Op)
	}
	enc := arith3Encodings[inst.Op]
	if !enc.shift {
		return format3(enc.op, enc.op3, inst.Rd, inst.Rs1, inst.Src2)
	}

	d, err := reg(inst.Rd)
	if err != nil {
		return 0, err
	}
	s1, err := reg(inst.Rs1)
	if err != nil {
		return 0, err
	}
	if !inst.Src2.IsImm() {
		s2, err := reg(inst.Src2.Reg())
		if err != nil {
			return 0, err
		}
		return sparc64.ShiftReg(enc.op3, d, s1, s2, enc.x), nil
	}
	bits := uint(5)
	if enc.x {
		bits = 6
	}
	cnt := int64(inst.Src2.Imm())
	if !sparc64.FitsUnsigned(cnt, bits) {
		return 0, operandErrorf("shift count %d does not fit %d bits", cnt, bits)
	}
	return sparc64.ShiftImm(enc.op3, d, s1, uint32(cnt), enc.x), nil
}

func encodeArith2(inst mir.Arith2) (uint32, error) {
	switch inst.Op {
	case mir.OpCmp:
		return format3(sparc64.OpArith, sparc64.Op3Subcc, mir.G0, inst.R, inst.Src)
	case mir.OpMov:
		return format3(sparc64.OpArith, sparc64.Op3Or, inst.R, mir.G0, inst.Src)
	case mir.OpNot:
		if inst.Src.IsImm() {
			return format3(sparc64.OpArith, sparc64.Op3Xnor, inst.R, mir.G0, inst.Src)
		}
		return format3(sparc64.OpArith, sparc64.Op3Xnor, inst.R, inst.Src.Reg(), mir.R(mir.G0))
	case mir.OpReturn:
		return format3(sparc64.OpArith, sparc64.Op3Return, mir.G0, inst.R, inst.Src)
	}
	return 0, operandErrorf("invalid op %s", inst.Op)
}

func encodeSetHi(inst mir.SetHi) (uint32, error) {
	d, err := reg(inst.Rd)
	if err != nil {
		return 0, err
	}
	if !sparc64.FitsUnsigned(int64(inst.Imm22), 22) {
		return 0, operandErrorf("immediate 0x%x does not fit imm22", inst.Imm22)
	}
	return sparc64.SetHi(d, inst.Imm22), nil
}

func encodeTrap(inst mir.Trap) (uint32, error) {
	c, err := cond(inst.Cond)
	if err != nil {
		return 0, err
	}
	cc, err := ccField(inst.CCR)
	if err != nil {
		return 0, err
	}
	s1, err := reg(inst.Rs1)
	if err != nil {
		return 0, err
	}
	if inst.Src.IsImm() {
		n := int64(inst.Src.Imm())
		if !sparc64.FitsUnsigned(n, 7) {
			return 0, operandErrorf("software trap number %d does not fit 7 bits", n)
		}
		return sparc64.TccImm(c, cc, s1, uint32(n)), nil
	}
	s2, err := reg(inst.Src.Reg())
	if err != nil {
		return 0, err
	}
	return sparc64.TccReg(c, cc, s1, s2), nil
}

func encodeCondMove(inst mir.CondMove) (uint32, error) {
	c, err := cond(inst.Cond)
	if err != nil {
		return 0, err
	}
	cc, err := ccField(inst.CCR)
	if err != nil {
		return 0, err
	}
	d, err := reg(inst.Rd)
	if err != nil {
		return 0, err
	}
	if inst.Src.IsImm() {
		imm := inst.Src.Imm()
		if !sparc64.FitsSigned(int64(imm), 11) {
			return 0, operandErrorf("immediate %d does not fit simm11", imm)
		}
		return sparc64.MOVccImm(c, cc, d, imm), nil
	}
	s2, err := reg(inst.Src.Reg())
	if err != nil {
		return 0, err
	}
	return sparc64.MOVccReg(c, cc, d, s2), nil
}

func encodeNullary(inst mir.Nullary) (uint32, error) {
	switch inst.Op {
	case mir.OpNop:
		return sparc64.Nop, nil
	case mir.OpFlushw:
		return sparc64.Flushw(), nil
	}
	return 0, operandErrorf("invalid op %s", inst.Op)
}

// wordDisp converts a resolved byte displacement into the word displacement
// field of the given width.
func wordDisp(disp int64, bits uint) int32 {
	if disp%asm.WordSize != 0 || !sparc64.FitsSigned(disp/asm.WordSize, bits) {
		panic(fmt.Sprintf("BUG: resolved displacement %d does not fit disp%d", disp, bits))
	}
	return int32(disp / asm.WordSize)
}

func encodeBranchInt(inst mir.BranchInt, typ BranchType, disp int64) (uint32, error) {
	if typ != BranchTypeBPcc {
		return 0, operandErrorf("branch encoding %s", typ)
	}
	c, err := cond(inst.Cond)
	if err != nil {
		return 0, err
	}
	cc, err := ccField(inst.CCR)
	if err != nil {
		return 0, err
	}
	return sparc64.BPcc(c, inst.Annul, cc, inst.PredictTaken, wordDisp(disp, 19)), nil
}

func encodeBranchReg(inst mir.BranchReg, typ BranchType, disp int64) (uint32, error) {
	if typ != BranchTypeBPr {
		return 0, operandErrorf("branch encoding %s", typ)
	}
	if !inst.RCond.Valid() {
		return 0, operandErrorf("invalid register condition %s", inst.RCond)
	}
	s1, err := reg(inst.Rs1)
	if err != nil {
		return 0, err
	}
	return sparc64.BPr(uint32(inst.RCond), inst.Annul, inst.PredictTaken, s1, wordDisp(disp, 16)), nil
}

// dispatch encodes the word of the instruction at index i, which must not be
// a debug marker. Branches use the encoding and target offset selected by
// the resolver.
func (e *Emitter) dispatch(i int, inst mir.Inst, offset int64) (word uint32, err error) {
	switch inst := inst.(type) {
	case mir.Arith3:
		word, err = encodeArith3(inst)
	case mir.Arith2:
		word, err = encodeArith2(inst)
	case mir.BranchInt:
		word, err = encodeBranchInt(inst, e.resolver.branchType(i, inst), e.resolver.targetOffset(inst)-offset)
	case mir.BranchReg:
		word, err = encodeBranchReg(inst, e.resolver.branchType(i, inst), e.resolver.targetOffset(inst)-offset)
	case mir.SetHi:
		word, err = encodeSetHi(inst)
	case mir.Trap:
		word, err = encodeTrap(inst)
	case mir.CondMove:
		word, err = encodeCondMove(inst)
	case mir.Nullary:
		word, err = encodeNullary(inst)
	default:
		return 0, newError(e.fn, i, ErrUnsupportedInstruction, "%T has no encoding", inst)
	}
	if err != nil {
		return 0, newError(e.fn, i, ErrUnsupportedInstruction, "%s: %v", inst, err)
	}
	return word, nil
}
