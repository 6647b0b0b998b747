package emit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/sparcemit/mir"
)

func TestDispatch(t *testing.T) {
	for _, tc := range []struct {
		inst mir.Inst
		exp  string
	}{
		{inst: mir.Arith3{Op: mir.OpAdd, Rd: mir.O1, Rs1: mir.O0, Src2: mir.Imm(1)}, exp: "92022001"},
		{inst: mir.Arith3{Op: mir.OpSave, Rd: mir.SP, Rs1: mir.SP, Src2: mir.Imm(-176)}, exp: "9de3bf50"},
		{inst: mir.Arith3{Op: mir.OpRestore, Rd: mir.G0, Rs1: mir.G0, Src2: mir.R(mir.G0)}, exp: "81e80000"},
		{inst: mir.Arith3{Op: mir.OpJmpl, Rd: mir.G0, Rs1: mir.I7, Src2: mir.Imm(8)}, exp: "81c7e008"},
		{inst: mir.Arith3{Op: mir.OpJmpl, Rd: mir.G0, Rs1: mir.O7, Src2: mir.Imm(8)}, exp: "81c3e008"},
		{inst: mir.Arith3{Op: mir.OpLdx, Rd: mir.O1, Rs1: mir.FP, Src2: mir.Imm(-8)}, exp: "d25fbff8"},
		{inst: mir.Arith3{Op: mir.OpStx, Rd: mir.O1, Rs1: mir.SP, Src2: mir.Imm(2175)}, exp: "d273a87f"},
		{inst: mir.Arith3{Op: mir.OpSllx, Rd: mir.O1, Rs1: mir.O0, Src2: mir.Imm(3)}, exp: "932a3003"},
		{inst: mir.Arith3{Op: mir.OpSrl, Rd: mir.O2, Rs1: mir.O0, Src2: mir.R(mir.O1)}, exp: "95320009"},
		{inst: mir.Arith2{Op: mir.OpCmp, R: mir.O0, Src: mir.Imm(0)}, exp: "80a22000"},
		{inst: mir.Arith2{Op: mir.OpMov, R: mir.I0, Src: mir.R(mir.O3)}, exp: "b010000b"},
		{inst: mir.Arith2{Op: mir.OpMov, R: mir.O0, Src: mir.Imm(-1)}, exp: "90103fff"},
		{inst: mir.Arith2{Op: mir.OpNot, R: mir.O0, Src: mir.R(mir.O1)}, exp: "903a4000"},
		{inst: mir.Arith2{Op: mir.OpNot, R: mir.O0, Src: mir.Imm(5)}, exp: "90382005"},
		{inst: mir.Arith2{Op: mir.OpReturn, R: mir.I7, Src: mir.Imm(8)}, exp: "81cfe008"},
		{inst: mir.SetHi{Rd: mir.G1, Imm22: 0x3fffff}, exp: "033fffff"},
		{inst: mir.Trap{Cond: mir.CondAlways, CCR: mir.ICC, Rs1: mir.G0, Src: mir.Imm(0x6d)}, exp: "91d0206d"},
		{inst: mir.Trap{Cond: mir.CondAlways, CCR: mir.XCC, Rs1: mir.G0, Src: mir.Imm(0x6d)}, exp: "91d0306d"},
		{inst: mir.Trap{Cond: mir.CondEq, CCR: mir.ICC, Rs1: mir.O0, Src: mir.R(mir.O1)}, exp: "83d20009"},
		{inst: mir.CondMove{Cond: mir.CondGt, CCR: mir.XCC, Rd: mir.O0, Src: mir.Imm(1)}, exp: "9166b001"},
		{inst: mir.CondMove{Cond: mir.CondEq, CCR: mir.ICC, Rd: mir.O0, Src: mir.R(mir.O1)}, exp: "91644009"},
		{inst: mir.Nullary{Op: mir.OpNop}, exp: "01000000"},
		{inst: mir.Nullary{Op: mir.OpFlushw}, exp: "81580000"},
	} {
		tc := tc
		t.Run(tc.inst.String(), func(t *testing.T) {
			e := newTestEmitter(t, DebugOutput{})
			code, _, err := emitOne(t, e, &mir.Function{Insts: []mir.Inst{tc.inst}})
			require.NoError(t, err)
			require.Equal(t, []string{tc.exp}, hexWords(code))
		})
	}
}

func TestDispatch_Branches(t *testing.T) {
	e := newTestEmitter(t, DebugOutput{})
	code, _, err := emitOne(t, e, &mir.Function{Insts: []mir.Inst{
		mir.BranchInt{Cond: mir.CondNe, CCR: mir.XCC, PredictTaken: true, Target: 2},
		mir.BranchReg{RCond: mir.RCondZ, Rs1: mir.O2, PredictTaken: true, Target: 6},
		nop,
		nop,
		nop,
		mir.BranchReg{RCond: mir.RCondNz, Rs1: mir.O0, Annul: true, Target: 4},
		mir.BranchInt{Cond: mir.CondAlways, Annul: true, Target: 0},
	}})
	require.NoError(t, err)
	require.Equal(t, []string{
		"12680002",
		"02ca8005",
		"01000000",
		"01000000",
		"01000000",
		"2af23fff",
		"3047fffa",
	}, hexWords(code))
}

func TestDispatch_Unsupported(t *testing.T) {
	for _, tc := range []struct {
		name   string
		inst   mir.Inst
		expErr string
	}{
		{
			name:   "arith3 op",
			inst:   mir.Arith3{Op: 200},
			expErr: "unsupported instruction: arith3(200) %g0, %g0, %g0: invalid op arith3(200)",
		},
		{
			name:   "simm13",
			inst:   mir.Arith3{Op: mir.OpAdd, Rd: mir.O1, Rs1: mir.O0, Src2: mir.Imm(4096)},
			expErr: "unsupported instruction: add %o0, 4096, %o1: immediate 4096 does not fit simm13",
		},
		{
			name:   "register",
			inst:   mir.Arith3{Op: mir.OpAdd, Rd: 32, Rs1: mir.O0, Src2: mir.R(mir.O1)},
			expErr: "unsupported instruction: add %o0, %o1, %invalid(32): invalid register %invalid(32)",
		},
		{
			name:   "shift count",
			inst:   mir.Arith3{Op: mir.OpSll, Rd: mir.O1, Rs1: mir.O0, Src2: mir.Imm(32)},
			expErr: "unsupported instruction: sll %o0, 32, %o1: shift count 32 does not fit 5 bits",
		},
		{
			name:   "shift count x",
			inst:   mir.Arith3{Op: mir.OpSrax, Rd: mir.O1, Rs1: mir.O0, Src2: mir.Imm(-1)},
			expErr: "unsupported instruction: srax %o0, -1, %o1: shift count -1 does not fit 6 bits",
		},
		{
			name:   "arith2 op",
			inst:   mir.Arith2{Op: 9, R: mir.O0, Src: mir.Imm(0)},
			expErr: "unsupported instruction: arith2(9) 0, %o0: invalid op arith2(9)",
		},
		{
			name:   "imm22",
			inst:   mir.SetHi{Rd: mir.G1, Imm22: 1 << 22},
			expErr: "unsupported instruction: sethi 0x400000, %g1: immediate 0x400000 does not fit imm22",
		},
		{
			name:   "software trap",
			inst:   mir.Trap{Cond: mir.CondAlways, Src: mir.Imm(128)},
			expErr: "unsupported instruction: ta %icc, %g0 + 128: software trap number 128 does not fit 7 bits",
		},
		{
			name:   "trap ccr",
			inst:   mir.Trap{Cond: mir.CondAlways, CCR: 2, Src: mir.Imm(1)},
			expErr: "unsupported instruction: ta ccr(2), %g0 + 1: invalid condition code register ccr(2)",
		},
		{
			name:   "simm11",
			inst:   mir.CondMove{Cond: mir.CondGt, CCR: mir.XCC, Rd: mir.O0, Src: mir.Imm(1024)},
			expErr: "unsupported instruction: movg %xcc, 1024, %o0: immediate 1024 does not fit simm11",
		},
		{
			name:   "cond",
			inst:   mir.CondMove{Cond: 16, Rd: mir.O0, Src: mir.Imm(0)},
			expErr: "unsupported instruction: movcond(16) %icc, 0, %o0: invalid condition cond(16)",
		},
		{
			name:   "nullary op",
			inst:   mir.Nullary{Op: 7},
			expErr: "unsupported instruction: nullary(7): invalid op nullary(7)",
		},
		{
			name:   "rcond",
			inst:   mir.BranchReg{RCond: 4, Rs1: mir.O0, Target: 0},
			expErr: "unsupported instruction: brrcond(4),pn %o0, #0: invalid register condition rcond(4)",
		},
		{
			name:   "nil",
			inst:   nil,
			expErr: "unsupported instruction: <nil> has no encoding",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEmitter(t, DebugOutput{})
			fn := &mir.Function{
				Source: mir.SourceLocation{File: "u.zig", Line: 1},
				Insts:  []mir.Inst{mir.DbgLine{Line: 7, Column: 2}, nop, tc.inst},
			}
			code, _, err := emitOne(t, e, fn)
			require.ErrorIs(t, err, ErrUnsupportedInstruction)
			require.EqualError(t, err, "u.zig:7:2: "+tc.expErr)
			require.Equal(t, 2, err.(*Error).Index)
			require.Equal(t, 0, len(code))
		})
	}
}
