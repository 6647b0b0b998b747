// Package sparc64 packs SPARC V9 instruction fields into 32-bit words.
//
// Every function here is pure and does no validation beyond masking: the
// caller is responsible for checking that registers, immediates and
// displacements fit their fields (see the Fits* helpers).
//
// See The SPARC Architecture Manual, Version 9, Appendix A and Appendix E.
package sparc64

// Values of the op field in bits 31-30.
const (
	opFormat2 uint32 = 0b00
	// OpArith selects the arithmetic/logical/control format 3 instructions.
	OpArith uint32 = 0b10
	// OpMem selects the load/store format 3 instructions.
	OpMem uint32 = 0b11
)

// Values of the op2 field of format 2 instructions.
const (
	op2BPcc  uint32 = 0b001
	op2BPr   uint32 = 0b011
	op2SetHi uint32 = 0b100
)

// op3 values when op is OpArith.
const (
	Op3Add     uint32 = 0x00
	Op3And     uint32 = 0x01
	Op3Or      uint32 = 0x02
	Op3Xor     uint32 = 0x03
	Op3Sub     uint32 = 0x04
	Op3Andn    uint32 = 0x05
	Op3Orn     uint32 = 0x06
	Op3Xnor    uint32 = 0x07
	Op3Mulx    uint32 = 0x09
	Op3Udivx   uint32 = 0x0d
	Op3Addcc   uint32 = 0x10
	Op3Andcc   uint32 = 0x11
	Op3Orcc    uint32 = 0x12
	Op3Xorcc   uint32 = 0x13
	Op3Subcc   uint32 = 0x14
	Op3Sll     uint32 = 0x25
	Op3Srl     uint32 = 0x26
	Op3Sra     uint32 = 0x27
	Op3Flushw  uint32 = 0x2b
	Op3MOVcc   uint32 = 0x2c
	Op3Sdivx   uint32 = 0x2d
	Op3Jmpl    uint32 = 0x38
	Op3Return  uint32 = 0x39
	Op3Tcc     uint32 = 0x3a
	Op3Save    uint32 = 0x3c
	Op3Restore uint32 = 0x3d
)

// op3 values when op is OpMem.
const (
	Op3Lduw uint32 = 0x00
	Op3Ldub uint32 = 0x01
	Op3Lduh uint32 = 0x02
	Op3Stw  uint32 = 0x04
	Op3Stb  uint32 = 0x05
	Op3Sth  uint32 = 0x06
	Op3Ldsw uint32 = 0x08
	Op3Ldsb uint32 = 0x09
	Op3Ldsh uint32 = 0x0a
	Op3Ldx  uint32 = 0x0b
	Op3Stx  uint32 = 0x0e
)

// Values of the cc1:cc0 field selecting the integer condition codes.
const (
	CCIcc uint32 = 0b00
	CCXcc uint32 = 0b10
)

// Nop is "sethi 0, %g0".
const Nop uint32 = 0x01000000

// Format3Reg encodes "op3 rs1, rs2, rd" with i=0.
func Format3Reg(op, op3, rd, rs1, rs2 uint32) uint32 {
	return op<<30 | (rd&0x1f)<<25 | (op3&0x3f)<<19 | (rs1&0x1f)<<14 | rs2&0x1f
}

// Format3Imm encodes "op3 rs1, simm13, rd" with i=1.
func Format3Imm(op, op3, rd, rs1 uint32, simm13 int32) uint32 {
	return op<<30 | (rd&0x1f)<<25 | (op3&0x3f)<<19 | (rs1&0x1f)<<14 | 1<<13 | uint32(simm13)&0x1fff
}

// ShiftReg encodes a shift by the low bits of rs2. x selects the 64-bit
// shifts (sllx, srlx, srax).
func ShiftReg(op3, rd, rs1, rs2 uint32, x bool) uint32 {
	return Format3Reg(OpArith, op3, rd, rs1, rs2) | bool2uint32(x)<<12
}

// ShiftImm encodes a shift by a constant count: shcnt32 in bits 4-0, or
// shcnt64 in bits 5-0 when x is set.
func ShiftImm(op3, rd, rs1, shcnt uint32, x bool) uint32 {
	mask := uint32(0x1f)
	if x {
		mask = 0x3f
	}
	return OpArith<<30 | (rd&0x1f)<<25 | (op3&0x3f)<<19 | (rs1&0x1f)<<14 | 1<<13 | bool2uint32(x)<<12 | shcnt&mask
}

// SetHi encodes "sethi imm22, rd".
func SetHi(rd, imm22 uint32) uint32 {
	return opFormat2<<30 | (rd&0x1f)<<25 | op2SetHi<<22 | imm22&0x3fffff
}

// BPcc encodes a branch on integer condition codes with prediction. disp19
// is the displacement in words.
func BPcc(cond uint32, annul bool, cc uint32, predictTaken bool, disp19 int32) uint32 {
	return opFormat2<<30 | bool2uint32(annul)<<29 | (cond&0xf)<<25 | op2BPcc<<22 |
		(cc&0b11)<<20 | bool2uint32(predictTaken)<<19 | uint32(disp19)&0x7ffff
}

// BPr encodes a branch on register contents with prediction. disp16 is the
// displacement in words, split into d16hi (bits 21-20) and d16lo (13-0).
func BPr(rcond uint32, annul, predictTaken bool, rs1 uint32, disp16 int32) uint32 {
	d := uint32(disp16) & 0xffff
	return opFormat2<<30 | bool2uint32(annul)<<29 | (rcond&0b111)<<25 | op2BPr<<22 |
		(d>>14)<<20 | bool2uint32(predictTaken)<<19 | (rs1&0x1f)<<14 | d&0x3fff
}

// TccReg encodes "t<cond> cc, rs1 + rs2".
func TccReg(cond, cc, rs1, rs2 uint32) uint32 {
	return OpArith<<30 | (cond&0xf)<<25 | Op3Tcc<<19 | (rs1&0x1f)<<14 | (cc&0b11)<<11 | rs2&0x1f
}

// TccImm encodes "t<cond> cc, rs1 + swTrap" where swTrap is 7 bits.
func TccImm(cond, cc, rs1, swTrap uint32) uint32 {
	return OpArith<<30 | (cond&0xf)<<25 | Op3Tcc<<19 | (rs1&0x1f)<<14 | 1<<13 | (cc&0b11)<<11 | swTrap&0x7f
}

// MOVccReg encodes "mov<cond> cc, rs2, rd" on the integer condition codes.
func MOVccReg(cond, cc, rd, rs2 uint32) uint32 {
	return OpArith<<30 | (rd&0x1f)<<25 | Op3MOVcc<<19 | 1<<18 | (cond&0xf)<<14 | (cc&0b11)<<11 | rs2&0x1f
}

// MOVccImm encodes "mov<cond> cc, simm11, rd" on the integer condition codes.
func MOVccImm(cond, cc, rd uint32, simm11 int32) uint32 {
	return OpArith<<30 | (rd&0x1f)<<25 | Op3MOVcc<<19 | 1<<18 | (cond&0xf)<<14 | 1<<13 | (cc&0b11)<<11 | uint32(simm11)&0x7ff
}

// Flushw encodes "flushw".
func Flushw() uint32 {
	return Format3Reg(OpArith, Op3Flushw, 0, 0, 0)
}

// FitsSigned returns true if v is representable as a two's complement
// integer of the given number of bits.
func FitsSigned(v int64, bits uint) bool {
	limit := int64(1) << (bits - 1)
	return v >= -limit && v < limit
}

// FitsUnsigned returns true if v is representable as an unsigned integer of
// the given number of bits.
func FitsUnsigned(v int64, bits uint) bool {
	return v >= 0 && v < int64(1)<<bits
}

func bool2uint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
