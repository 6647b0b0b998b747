package mir

import "fmt"

// Cond is an integer condition code as encoded in the 4-bit cond field of
// BPcc, Tcc and MOVcc.
type Cond uint8

const (
	CondNever Cond = iota
	CondEq
	CondLe
	CondLt
	CondLeu
	CondCs
	CondNeg
	CondVs
	CondAlways
	CondNe
	CondGt
	CondGe
	CondGtu
	CondCc
	CondPos
	CondVc
)

var condNames = [...]string{
	CondNever:  "n",
	CondEq:     "e",
	CondLe:     "le",
	CondLt:     "l",
	CondLeu:    "leu",
	CondCs:     "cs",
	CondNeg:    "neg",
	CondVs:     "vs",
	CondAlways: "a",
	CondNe:     "ne",
	CondGt:     "g",
	CondGe:     "ge",
	CondGtu:    "gu",
	CondCc:     "cc",
	CondPos:    "pos",
	CondVc:     "vc",
}

// Valid returns true if c fits the 4-bit cond field.
func (c Cond) Valid() bool {
	return int(c) < len(condNames)
}

// Negate returns the condition which holds exactly when c doesn't.
func (c Cond) Negate() Cond {
	return c ^ 0b1000
}

// String implements fmt.Stringer.
func (c Cond) String() string {
	if c.Valid() {
		return condNames[c]
	}
	return fmt.Sprintf("cond(%d)", uint8(c))
}

// RCond is a register condition as encoded in the 3-bit rcond field of BPr
// and MOVr. The values 0 and 4 are reserved.
type RCond uint8

const (
	RCondZ   RCond = 1
	RCondLez RCond = 2
	RCondLz  RCond = 3
	RCondNz  RCond = 5
	RCondGz  RCond = 6
	RCondGez RCond = 7
)

// Valid returns true if c is a non-reserved rcond value.
func (c RCond) Valid() bool {
	switch c {
	case RCondZ, RCondLez, RCondLz, RCondNz, RCondGz, RCondGez:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (c RCond) String() string {
	switch c {
	case RCondZ:
		return "z"
	case RCondLez:
		return "lez"
	case RCondLz:
		return "lz"
	case RCondNz:
		return "nz"
	case RCondGz:
		return "gz"
	case RCondGez:
		return "gez"
	}
	return fmt.Sprintf("rcond(%d)", uint8(c))
}

// CCR selects the integer condition code register a conditional
// instruction tests.
type CCR uint8

const (
	// ICC is the 32-bit condition codes.
	ICC CCR = iota
	// XCC is the 64-bit condition codes.
	XCC
)

// Valid returns true if c is ICC or XCC.
func (c CCR) Valid() bool {
	return c <= XCC
}

// String implements fmt.Stringer.
func (c CCR) String() string {
	switch c {
	case ICC:
		return "%icc"
	case XCC:
		return "%xcc"
	}
	return fmt.Sprintf("ccr(%d)", uint8(c))
}
