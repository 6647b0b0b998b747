package sparcemit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"

	"github.com/tetratelabs/sparcemit/internal/asm"
	"github.com/tetratelabs/sparcemit/internal/compilationcache"
	"github.com/tetratelabs/sparcemit/internal/emit"
	"github.com/tetratelabs/sparcemit/internal/irfile"
	"github.com/tetratelabs/sparcemit/internal/logging"
	"github.com/tetratelabs/sparcemit/internal/version"
	"github.com/tetratelabs/sparcemit/mir"
)

// Emitter appends the machine code of functions to a single code section.
// It is not safe for concurrent use.
type Emitter struct {
	emitter *emit.Emitter
	code    *asm.CodeSection

	// cache is nil when the config has no cache or emits DWARF.
	cache       compilationcache.Cache
	cacheConfig string
	cacheLogger commonlog.Logger
}

// FunctionCode describes the code of one emitted function.
type FunctionCode struct {
	// Name is the name of the function.
	Name string
	// Offset is the offset of the function in Emitter.Code.
	Offset int
	// Size is the size in bytes of the function.
	Size int
	// Passes is the number of branch resolution passes. It is zero when
	// the code came from the cache.
	Passes int
	// Offsets holds the offset of every instruction relative to Offset.
	// Debug markers share the offset of the next instruction.
	Offsets []int64
	// Cached is true when the code came from the cache.
	Cached bool
}

// NewEmitter returns an Emitter configured by cfg, which defaults to
// NewEmitConfig when nil.
func NewEmitter(cfg *EmitConfig) (*Emitter, error) {
	if cfg == nil {
		cfg = NewEmitConfig()
	}
	scopes, err := logging.ParseLogScopes(cfg.logScopes)
	if err != nil {
		return nil, err
	}
	e, err := emit.NewEmitter(emit.DebugOutput{Kind: cfg.debug, Program: cfg.lineProgram}, scopes)
	if err != nil {
		return nil, err
	}
	ret := &Emitter{emitter: e, code: asm.NewCodeSection(cfg.maxCodeSize)}
	if c, ok := cfg.cache.(*cache); ok && c.store != nil && cfg.debug != DebugDWARF {
		ret.cache = c.store
		ret.cacheConfig = "sparcv9;debug=" + cfg.debug.String()
		ret.cacheLogger = scopes.Logger(logging.LogScopeCache)
	}
	return ret, nil
}

// Code returns the machine code of all functions emitted so far. The slice
// is invalidated by the next EmitFunction.
func (e *Emitter) Code() []byte {
	return e.code.Bytes()
}

// EmitFunction appends the code of fn to Code. On error, Code is unchanged
// and the error is an *EmitError, except for errors of the LineProgram or
// the cache which are returned as is.
func (e *Emitter) EmitFunction(fn *mir.Function) (FunctionCode, error) {
	buf, err := e.code.Next()
	if err != nil {
		return FunctionCode{}, err
	}

	var key compilationcache.Key
	if e.cache != nil {
		ir, err := irfile.Marshal(fn)
		if err != nil {
			return FunctionCode{}, err
		}
		key = compilationcache.KeyOf(version.GetVersion(), e.cacheConfig, ir)
		if ret, ok, err := e.fromCache(key, fn, buf); err != nil || ok {
			return ret, err
		}
	}

	res, err := e.emitter.Emit(fn, buf)
	if err != nil {
		return FunctionCode{}, err
	}
	ret := FunctionCode{
		Name:    fn.Name,
		Offset:  buf.Offset(),
		Size:    int(res.Size),
		Passes:  res.Passes,
		Offsets: res.Offsets,
	}
	if e.cache != nil {
		if err = e.addToCache(key, ret, buf.Bytes()); err != nil {
			buf.Reset()
			return FunctionCode{}, err
		}
	}
	return ret, nil
}

// cacheEntry is the content of a cache entry.
type cacheEntry struct {
	Offsets []int64 `cbor:"1,keyasint"`
	Code    []byte  `cbor:"2,keyasint"`
}

// fromCache writes the cached code of fn to buf. ok is false when there is no
// usable entry, including when the code doesn't fit buf, so that emission
// reports the error at the right instruction.
func (e *Emitter) fromCache(key compilationcache.Key, fn *mir.Function, buf asm.Buffer) (ret FunctionCode, ok bool, err error) {
	content, ok, err := e.cache.Get(key)
	if err != nil {
		return
	} else if !ok {
		e.cacheLogger.Debug("miss", "function", fn.Name, "key", hex.EncodeToString(key[:]))
		return
	}
	b, err := io.ReadAll(content)
	content.Close()
	if err != nil {
		return
	}

	var entry cacheEntry
	if err = cbor.Unmarshal(b, &entry); err != nil || !entry.valid(fn) {
		// Stale or corrupt.
		e.cacheLogger.Warning("invalid entry", "function", fn.Name, "key", hex.EncodeToString(key[:]))
		return FunctionCode{}, false, e.cache.Delete(key)
	}
	if _, err = buf.Write(entry.Code); err != nil {
		buf.Reset()
		return FunctionCode{}, false, nil
	}
	e.cacheLogger.Debug("hit", "function", fn.Name, "key", hex.EncodeToString(key[:]))
	return FunctionCode{
		Name:    fn.Name,
		Offset:  buf.Offset(),
		Size:    len(entry.Code),
		Offsets: entry.Offsets,
		Cached:  true,
	}, true, nil
}

func (c *cacheEntry) valid(fn *mir.Function) bool {
	if len(c.Offsets) != len(fn.Insts) || len(c.Code)%asm.WordSize != 0 {
		return false
	}
	for _, o := range c.Offsets {
		if o < 0 || o > int64(len(c.Code)) {
			return false
		}
	}
	return true
}

func (e *Emitter) addToCache(key compilationcache.Key, code FunctionCode, b []byte) error {
	var content bytes.Buffer
	if err := cbor.NewEncoder(&content).Encode(&cacheEntry{Offsets: code.Offsets, Code: b}); err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := e.cache.Add(key, &content); err != nil {
		return err
	}
	e.cacheLogger.Debug("added", "function", code.Name, "key", hex.EncodeToString(key[:]))
	return nil
}
