package mir

import "fmt"

// Reg is an integer register of the current register window, numbered as it
// is encoded in rd, rs1 and rs2 fields.
type Reg uint8

const (
	G0 Reg = iota
	G1
	G2
	G3
	G4
	G5
	G6
	G7
	O0
	O1
	O2
	O3
	O4
	O5
	O6
	O7
	L0
	L1
	L2
	L3
	L4
	L5
	L6
	L7
	I0
	I1
	I2
	I3
	I4
	I5
	I6
	I7

	// NumRegs is the number of integer registers visible in one window.
	NumRegs = 32

	// SP is the stack pointer, an alias of %o6.
	SP = O6
	// FP is the frame pointer, an alias of %i6.
	FP = I6
)

// Valid returns true if r can be encoded in a 5-bit register field.
func (r Reg) Valid() bool {
	return r < NumRegs
}

// String implements fmt.Stringer.
func (r Reg) String() string {
	switch {
	case r == SP:
		return "%sp"
	case r == FP:
		return "%fp"
	case r < O0:
		return fmt.Sprintf("%%g%d", r)
	case r < L0:
		return fmt.Sprintf("%%o%d", r-O0)
	case r < I0:
		return fmt.Sprintf("%%l%d", r-L0)
	case r < NumRegs:
		return fmt.Sprintf("%%i%d", r-I0)
	default:
		return fmt.Sprintf("%%invalid(%d)", uint8(r))
	}
}

// RegOrImm is the second source operand of the arithmetic and memory forms:
// either rs2 or a sign-extended immediate. The zero value is %g0.
type RegOrImm struct {
	isImm bool
	reg   Reg
	imm   int32
}

// R returns a register operand.
func R(r Reg) RegOrImm {
	return RegOrImm{reg: r}
}

// Imm returns an immediate operand. The width of the field the value is
// encoded into depends on the instruction and is checked during emission.
func Imm(v int32) RegOrImm {
	return RegOrImm{isImm: true, imm: v}
}

// IsImm returns true if the operand is an immediate.
func (o RegOrImm) IsImm() bool { return o.isImm }

// Reg returns the register of a register operand.
func (o RegOrImm) Reg() Reg { return o.reg }

// Imm returns the value of an immediate operand.
func (o RegOrImm) Imm() int32 { return o.imm }

// String implements fmt.Stringer.
func (o RegOrImm) String() string {
	if o.isImm {
		return fmt.Sprintf("%d", o.imm)
	}
	return o.reg.String()
}
