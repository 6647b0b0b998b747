package emit

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/tetratelabs/sparcemit/internal/asm"
	"github.com/tetratelabs/sparcemit/internal/isa/sparc64"
	"github.com/tetratelabs/sparcemit/mir"
)

// BranchType is the machine encoding selected for a branch instruction.
type BranchType uint8

const (
	branchTypeInvalid BranchType = iota
	// BranchTypeBPcc is a single BPcc word with a 19-bit word displacement.
	BranchTypeBPcc
	// BranchTypeBPr is a single BPr word with a 16-bit word displacement.
	BranchTypeBPr
)

// String implements fmt.Stringer.
func (t BranchType) String() string {
	switch t {
	case BranchTypeBPcc:
		return "bpcc"
	case BranchTypeBPr:
		return "bpr"
	}
	return fmt.Sprintf("branchtype(%d)", uint8(t))
}

// tier is one encoding a branch family can be relaxed to.
type tier struct {
	typ  BranchType
	size int64
	// fits returns true if the byte displacement is encodable.
	fits func(disp int64) bool
}

// tierTable lists, per branch family, its tiers from the smallest to the
// largest. The selected tier of a branch is an index into its family and
// only ever grows.
type tierTable struct {
	integer  []tier
	register []tier
}

func fitsWordDisp(bits uint) func(int64) bool {
	return func(disp int64) bool {
		return disp%asm.WordSize == 0 && sparc64.FitsSigned(disp/asm.WordSize, bits)
	}
}

var defaultTiers = &tierTable{
	integer:  []tier{{typ: BranchTypeBPcc, size: asm.WordSize, fits: fitsWordDisp(19)}},
	register: []tier{{typ: BranchTypeBPr, size: asm.WordSize, fits: fitsWordDisp(16)}},
}

// family returns the tiers of b, or nil when b is not a branch shape the
// table knows, such as a pointer to one.
func (t *tierTable) family(b mir.Branch) []tier {
	switch b.(type) {
	case mir.BranchInt:
		return t.integer
	case mir.BranchReg:
		return t.register
	}
	return nil
}

// maxTiers returns the number of tiers of the largest family.
func (t *tierTable) maxTiers() int {
	if len(t.integer) > len(t.register) {
		return len(t.integer)
	}
	return len(t.register)
}

// branchResolver computes the offset of the instructions branches depend on
// and the encoding of every branch. Its tables are only valid between
// resolve and reset, which must be called once per function.
type branchResolver struct {
	tiers  *tierTable
	logger commonlog.Logger

	fn *mir.Function
	// record is the selected tier of each branch, keyed by its index.
	record map[int]int
	// forwardOrigins maps a target index to the branches jumping forward
	// to it, in stream order.
	forwardOrigins map[int][]int
	// offsets holds the byte offset of branch targets and forward branch
	// sources, as of the latest pass.
	offsets map[int]int64
	// passes is the number of convergence passes of the latest resolve.
	passes int
}

func newBranchResolver(tiers *tierTable, logger commonlog.Logger) *branchResolver {
	return &branchResolver{
		tiers:          tiers,
		logger:         logger,
		record:         map[int]int{},
		forwardOrigins: map[int][]int{},
		offsets:        map[int]int64{},
	}
}

// reset releases the tables of the last resolved function while keeping
// their storage for the next one.
func (r *branchResolver) reset() {
	r.fn = nil
	r.passes = 0
	clear(r.record)
	clear(r.forwardOrigins)
	clear(r.offsets)
}

// resolve runs the discovery pass followed by convergence passes until no
// branch changes its encoding.
func (r *branchResolver) resolve(fn *mir.Function) error {
	r.fn = fn
	if err := r.discover(); err != nil {
		return err
	}

	bound := len(r.record) * r.tiers.maxTiers()
	if bound < 1 {
		bound = 1
	}
	for {
		if r.passes >= bound {
			panic(fmt.Sprintf("BUG: %s: branch resolution did not converge in %d passes", fn.Name, bound))
		}
		r.passes++
		changed, err := r.pass()
		if err != nil {
			return err
		}
		if !changed {
			break
		}
	}
	if r.logger.AllowLevel(commonlog.Debug) {
		r.logger.Debug("resolved", "function", fn.Name, "branches", len(r.record), "passes", r.passes)
	}
	return nil
}

func (r *branchResolver) discover() error {
	insts := r.fn.Insts
	for i, inst := range insts {
		b, ok := inst.(mir.Branch)
		if !ok {
			continue
		}
		target := b.BranchTarget()
		if target < 0 || target >= len(insts) {
			return newError(r.fn, i, ErrInvalidBranchTarget, "%s: target %d is outside of [0, %d)", inst, target, len(insts))
		}
		if len(r.tiers.family(b)) == 0 {
			return newError(r.fn, i, ErrUnsupportedInstruction, "%s: no encoding for %T", inst, inst)
		}
		if target > i {
			r.forwardOrigins[target] = append(r.forwardOrigins[target], i)
			r.offsets[i] = 0
		}
		r.offsets[target] = 0
		r.record[i] = 0
	}
	return nil
}

func (r *branchResolver) pass() (changed bool, err error) {
	var offset int64
	for i, inst := range r.fn.Insts {
		if _, ok := r.offsets[i]; ok {
			r.offsets[i] = offset
		}

		// A branch to itself is backward: its own entry was just refreshed.
		if b, ok := inst.(mir.Branch); ok && b.BranchTarget() <= i {
			c, err := r.relax(i, b, r.offsets[b.BranchTarget()]-offset)
			if err != nil {
				return false, err
			}
			changed = changed || c
		}

		for _, origin := range r.forwardOrigins[i] {
			b := r.fn.Insts[origin].(mir.Branch)
			c, err := r.relax(origin, b, offset-r.offsets[origin])
			if err != nil {
				return false, err
			}
			changed = changed || c
		}

		offset += r.size(i, inst)
	}
	return
}

// relax selects the smallest tier, no smaller than the current one, able to
// encode disp for the branch at index i.
func (r *branchResolver) relax(i int, b mir.Branch, disp int64) (changed bool, err error) {
	family := r.tiers.family(b)
	cur := r.record[i]
	for t := cur; t < len(family); t++ {
		if !family[t].fits(disp) {
			continue
		}
		if t != cur {
			r.record[i] = t
			if r.logger.AllowLevel(commonlog.Debug) {
				r.logger.Debug("relaxed", "index", i, "from", family[cur].typ, "to", family[t].typ, "displacement", disp)
			}
		}
		return t != cur, nil
	}
	return false, newError(r.fn, i, ErrEncodingRangeExceeded,
		"%s: displacement %d does not fit %s", b, disp, family[len(family)-1].typ)
}

// size returns the number of bytes inst at index i occupies with the
// currently selected encodings.
func (r *branchResolver) size(i int, inst mir.Inst) int64 {
	if mir.IsDebugMarker(inst) {
		return 0
	}
	if b, ok := inst.(mir.Branch); ok {
		return r.tiers.family(b)[r.record[i]].size
	}
	return asm.WordSize
}

// branchType returns the encoding selected for the branch at index i.
func (r *branchResolver) branchType(i int, b mir.Branch) BranchType {
	return r.tiers.family(b)[r.record[i]].typ
}

// targetOffset returns the resolved offset of the target of a branch.
func (r *branchResolver) targetOffset(b mir.Branch) int64 {
	off, ok := r.offsets[b.BranchTarget()]
	if !ok {
		panic(fmt.Sprintf("BUG: no offset for branch target %d", b.BranchTarget()))
	}
	return off
}
