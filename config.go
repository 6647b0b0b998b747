package sparcemit

import (
	"fmt"
	"io"

	"github.com/tetratelabs/sparcemit/internal/dwarfline"
	"github.com/tetratelabs/sparcemit/internal/emit"
)

// DebugKind is the kind of debug information produced alongside the code.
type DebugKind = emit.DebugKind

const (
	// DebugNone produces no debug information. This is the default.
	DebugNone = emit.DebugNone
	// DebugDWARF sends line records to the LineProgram configured by
	// EmitConfig.WithLineProgram.
	DebugDWARF = emit.DebugDWARF
	// DebugReduced is for debug formats without line programs: line records
	// are dropped.
	DebugReduced = emit.DebugReduced
)

// LineProgram consumes line number records. Addresses are offsets in
// Emitter.Code, and one program covers every function of an Emitter.
type LineProgram = emit.LineProgram

// NewDWARFLineProgram returns a LineProgram writing the standard DWARF line
// number opcodes to w.
func NewDWARFLineProgram(w io.Writer) LineProgram {
	return dwarfline.NewWriter(w)
}

// EmitConfig controls emitter behavior, with the default implementation as
// NewEmitConfig.
type EmitConfig struct {
	debug       DebugKind
	lineProgram LineProgram
	maxCodeSize int
	logScopes   string
	cache       Cache
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &EmitConfig{debug: DebugNone}

// NewEmitConfig returns a config emitting code without debug information,
// size limit, logging or cache.
func NewEmitConfig() *EmitConfig {
	return defaultConfig.clone()
}

// clone makes a copy of this emit config.
func (c *EmitConfig) clone() *EmitConfig {
	ret := *c
	return &ret
}

// WithDebugOutput selects the kind of debug information. DebugDWARF also
// requires WithLineProgram.
func (c *EmitConfig) WithDebugOutput(kind DebugKind) *EmitConfig {
	ret := c.clone()
	ret.debug = kind
	return ret
}

// WithLineProgram sets the line program of DebugDWARF output.
//
// Note: A LineProgram is stateful, so it must not be shared by emitters.
func (c *EmitConfig) WithLineProgram(p LineProgram) *EmitConfig {
	ret := c.clone()
	ret.lineProgram = p
	return ret
}

// WithMaxCodeSize limits the size in bytes of the code of all functions
// emitted by one Emitter. A function which would exceed it fails with
// ErrResourceExhaustion. Zero, the default, means no limit.
//
// Note: This panics when n is negative.
func (c *EmitConfig) WithMaxCodeSize(n int) *EmitConfig {
	if n < 0 {
		panic(fmt.Errorf("maxCodeSize invalid: %d < 0", n))
	}
	ret := c.clone()
	ret.maxCodeSize = n
	return ret
}

// WithLogScopes enables logging of the comma-separated scopes: "branch",
// "encode", "debugline", "cache" or "all". Unknown scopes make NewEmitter
// fail.
func (c *EmitConfig) WithLogScopes(scopes string) *EmitConfig {
	ret := c.clone()
	ret.logScopes = scopes
	return ret
}

// WithCache reuses the code of functions emitted before with the same
// machine IR, possibly by another process. The cache is not used with
// DebugDWARF as line records are not cached.
func (c *EmitConfig) WithCache(cache Cache) *EmitConfig {
	ret := c.clone()
	ret.cache = cache
	return ret
}
