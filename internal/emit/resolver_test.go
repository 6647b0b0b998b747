package emit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"

	"github.com/tetratelabs/sparcemit/internal/asm"
	"github.com/tetratelabs/sparcemit/mir"
)

const branchTypeTestLong BranchType = 100

// testTiers has a short tier reaching 16 bytes either way and a long tier
// of two words reaching everything.
var testTiers = &tierTable{
	integer: []tier{
		{typ: BranchTypeBPcc, size: 4, fits: func(d int64) bool { return d >= -16 && d <= 16 }},
		{typ: branchTypeTestLong, size: 8, fits: func(int64) bool { return true }},
	},
	register: []tier{
		{typ: BranchTypeBPr, size: 4, fits: func(d int64) bool { return d >= -16 && d <= 16 }},
	},
}

func ba(target int) mir.BranchInt {
	return mir.BranchInt{Cond: mir.CondAlways, Target: target}
}

func TestBranchResolver_Discover(t *testing.T) {
	r := newBranchResolver(defaultTiers, commonlog.MOCK_LOGGER)
	r.fn = &mir.Function{Insts: []mir.Inst{
		nop,   // 0
		ba(3), // 1
		ba(0), // 2
		ba(3), // 3
		ba(5), // 4
		mir.DbgLine{},
	}}
	require.NoError(t, r.discover())

	require.Equal(t, map[int][]int{3: {1}, 5: {4}}, r.forwardOrigins)
	require.Equal(t, map[int]int64{0: 0, 1: 0, 3: 0, 4: 0, 5: 0}, r.offsets)
	require.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0}, r.record)
}

func TestBranchResolver_Grow(t *testing.T) {
	r := newBranchResolver(testTiers, commonlog.MOCK_LOGGER)
	fn := &mir.Function{Insts: []mir.Inst{nop, ba(6), nop, nop, nop, nop, nop}}
	require.NoError(t, r.resolve(fn))

	// 20 bytes don't fit the short tier; growing makes no difference to the
	// target of the only branch, so the second pass is final.
	require.Equal(t, 2, r.passes)
	require.Equal(t, branchTypeTestLong, r.branchType(1, ba(6)))
	require.Equal(t, int64(4), r.offsets[1])
	require.Equal(t, int64(28), r.offsets[6])
}

func TestBranchResolver_Cascade(t *testing.T) {
	r := newBranchResolver(testTiers, commonlog.MOCK_LOGGER)
	fn := &mir.Function{Insts: []mir.Inst{
		nop,   // 0
		ba(6), // 1
		nop,   // 2
		nop,   // 3
		ba(0), // 4
		nop,   // 5
		nop,   // 6
	}}
	require.NoError(t, r.resolve(fn))

	// The first pass grows #1, which pushes #4 out of the short tier in the
	// second pass, and the third pass changes nothing.
	require.Equal(t, 3, r.passes)
	require.Equal(t, map[int]int{1: 1, 4: 1}, r.record)
	require.Equal(t, map[int]int64{0: 0, 1: 4, 6: 32}, r.offsets)
}

func TestBranchResolver_Monotonic(t *testing.T) {
	r := newBranchResolver(testTiers, commonlog.MOCK_LOGGER)
	r.fn = &mir.Function{Insts: []mir.Inst{ba(0)}}
	r.record[0] = 1

	// A displacement fitting the short tier doesn't shrink the branch.
	changed, err := r.relax(0, ba(0), 0)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1, r.record[0])
}

func TestBranchResolver_RangeExceeded(t *testing.T) {
	r := newBranchResolver(testTiers, commonlog.MOCK_LOGGER)
	fn := &mir.Function{
		Source: mir.SourceLocation{File: "r.zig", Line: 3},
		Insts: []mir.Inst{
			mir.BranchReg{RCond: mir.RCondZ, Rs1: mir.O0, Target: 6},
			nop, nop, nop, nop, nop, nop,
		},
	}
	err := r.resolve(fn)
	require.ErrorIs(t, err, ErrEncodingRangeExceeded)
	require.EqualError(t, err, "r.zig:3: encoding range exceeded: brz,pn %o0, #6: displacement 24 does not fit bpr")
}

func TestBranchResolver_NoTier(t *testing.T) {
	r := newBranchResolver(&tierTable{integer: testTiers.integer}, commonlog.MOCK_LOGGER)
	err := r.resolve(&mir.Function{Insts: []mir.Inst{mir.BranchReg{RCond: mir.RCondZ, Target: 0}}})
	require.ErrorIs(t, err, ErrUnsupportedInstruction)
}

func TestEmit_PointerInstruction(t *testing.T) {
	e := newTestEmitter(t, DebugOutput{})
	for _, tc := range []struct {
		inst   mir.Inst
		expErr string
	}{
		{inst: &mir.BranchInt{Cond: mir.CondAlways, Target: 0}, expErr: "no encoding for *mir.BranchInt"},
		{inst: &mir.BranchReg{RCond: mir.RCondZ, Rs1: mir.O0, Target: 0}, expErr: "no encoding for *mir.BranchReg"},
		{inst: &nop, expErr: "*mir.Nullary has no encoding"},
		{inst: &mir.DbgLine{Line: 1}, expErr: "*mir.DbgLine has no encoding"},
	} {
		tc := tc
		t.Run(fmt.Sprintf("%T", tc.inst), func(t *testing.T) {
			code, _, err := emitOne(t, e, &mir.Function{Insts: []mir.Inst{nop, tc.inst}})
			require.ErrorIs(t, err, ErrUnsupportedInstruction)
			require.Contains(t, err.Error(), tc.expErr)

			var emitErr *Error
			require.True(t, errors.As(err, &emitErr))
			require.Equal(t, 1, emitErr.Index)
			require.Equal(t, 0, len(code))
		})
	}
}

func TestEmit_UnknownBranchType(t *testing.T) {
	e := newTestEmitter(t, DebugOutput{})
	e.resolver.tiers = testTiers

	code, _, err := emitOne(t, e, &mir.Function{Insts: []mir.Inst{ba(6), nop, nop, nop, nop, nop, nop}})
	require.ErrorIs(t, err, ErrUnsupportedInstruction)
	require.Contains(t, err.Error(), "branch encoding branchtype(100)")
	require.Equal(t, 0, len(code))
}

// randomFunction returns a function of branches to random targets, nops and
// debug markers.
func randomFunction(rnd *rand.Rand) *mir.Function {
	n := 1 + rnd.Intn(200)
	insts := make([]mir.Inst, n)
	for i := range insts {
		switch rnd.Intn(6) {
		case 0:
			insts[i] = mir.BranchInt{Cond: mir.Cond(rnd.Intn(16)), CCR: mir.CCR(rnd.Intn(2)), Target: rnd.Intn(n)}
		case 1:
			insts[i] = mir.BranchReg{RCond: mir.RCondGez, Rs1: mir.Reg(rnd.Intn(32)), Target: rnd.Intn(n)}
		case 2:
			insts[i] = mir.DbgLine{Line: uint32(rnd.Intn(100))}
		default:
			insts[i] = nop
		}
	}
	return &mir.Function{Name: "random", Insts: insts}
}

// encodedDisp extracts the byte displacement of a branch word.
func encodedDisp(inst mir.Inst, word uint32) int64 {
	switch inst.(type) {
	case mir.BranchInt:
		return int64(int32(word<<13)>>13) * asm.WordSize
	case mir.BranchReg:
		d16 := (word>>20&0b11)<<14 | word&0x3fff
		return int64(int16(d16)) * asm.WordSize
	}
	panic("not a branch")
}

func TestEmit_RandomStreams(t *testing.T) {
	rnd := rand.New(rand.NewSource(0x5ba4c))
	for i := 0; i < 300; i++ {
		fn := randomFunction(rnd)

		e := newTestEmitter(t, DebugOutput{})
		code, res, err := emitOne(t, e, fn)
		require.NoError(t, err)

		var branches, size int64
		for j, inst := range fn.Insts {
			if !mir.IsDebugMarker(inst) {
				size += asm.WordSize
			}
			b, ok := inst.(mir.Branch)
			if !ok {
				continue
			}
			branches++
			want := res.Offsets[b.BranchTarget()] - res.Offsets[j]
			require.Zero(t, want%asm.WordSize)
			word := binary.BigEndian.Uint32(code[res.Offsets[j]:])
			require.Equal(t, want, encodedDisp(inst, word), "#%d %s", j, inst)
		}
		require.Equal(t, size, res.Size)
		require.Equal(t, int(size), len(code))
		require.LessOrEqual(t, int64(res.Passes), max(1, branches))

		// A fresh emitter produces the same bytes.
		again, _, err := emitOne(t, newTestEmitter(t, DebugOutput{}), fn)
		require.NoError(t, err)
		require.True(t, bytes.Equal(code, again))
	}
}

func TestBranchResolver_RandomStreams(t *testing.T) {
	rnd := rand.New(rand.NewSource(0xb4a7c4))
	r := newBranchResolver(testTiers, commonlog.MOCK_LOGGER)
	for i := 0; i < 300; i++ {
		fn := randomFunction(rnd)
		// Register branches only have the short tier.
		for j, inst := range fn.Insts {
			if b, ok := inst.(mir.BranchReg); ok {
				fn.Insts[j] = ba(b.Target)
			}
		}

		require.NoError(t, r.resolve(fn))

		// Recompute every offset from the selected tiers.
		offsets := make([]int64, len(fn.Insts)+1)
		for j, inst := range fn.Insts {
			offsets[j+1] = offsets[j] + r.size(j, inst)
		}
		for j, off := range r.offsets {
			require.Equal(t, offsets[j], off)
		}
		branches := 0
		for j, inst := range fn.Insts {
			b, ok := inst.(mir.Branch)
			if !ok {
				continue
			}
			branches++
			disp := offsets[b.BranchTarget()] - offsets[j]
			require.True(t, testTiers.family(b)[r.record[j]].fits(disp))
		}
		require.LessOrEqual(t, r.passes, max(1, branches*testTiers.maxTiers()))
		r.reset()
	}
}
