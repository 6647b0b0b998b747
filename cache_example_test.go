package sparcemit_test

import (
	"fmt"
	"log"
	"os"

	"github.com/tetratelabs/sparcemit"
	"github.com/tetratelabs/sparcemit/mir"
)

// This is a basic example of using the file system compilation cache via
// sparcemit.Cache. The main goal is to show how it is configured.
func Example_compileCache() {
	// Prepare a cache directory.
	cacheDir, err := os.MkdirTemp("", "example")
	if err != nil {
		log.Panicln(err)
	}
	defer os.RemoveAll(cacheDir)

	// Create an emit config which shares a compilation cache directory.
	cache := sparcemit.NewCache()
	if err = cache.WithCompilationCacheDirName(cacheDir); err != nil {
		log.Panicln(err)
	}
	defer cache.Close()
	config := sparcemit.NewEmitConfig().WithCache(cache)

	// Use the same cache directory for multiple emitters.
	newEmitterEmit(config)
	// Since the above stored the code to disk, below won't emit from scratch.
	// Instead, code stored in the file cache is re-used.
	newEmitterEmit(config)

	// Output:
	// cached: false
	// cached: true
}

// newEmitterEmit creates a new sparcemit.Emitter and emits a function.
func newEmitterEmit(config *sparcemit.EmitConfig) {
	e, err := sparcemit.NewEmitter(config)
	if err != nil {
		log.Panicln(err)
	}

	code, err := e.EmitFunction(&mir.Function{
		Name:  "spin",
		Insts: []mir.Inst{mir.BranchInt{Cond: mir.CondAlways, Target: 0}, mir.Nullary{Op: mir.OpNop}},
	})
	if err != nil {
		log.Panicln(err)
	}
	fmt.Println("cached:", code.Cached)
}
