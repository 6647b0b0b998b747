package compilationcache

import (
	"crypto/sha256"
	"io"
)

// Cache is the interface for caches of emitted machine code. A function's
// code depends only on its canonical machine IR encoding, the emitter version
// and the emitter configuration, so Key is derived from exactly those.
//
// Since these methods are concurrently accessed, the implementations must be Goroutine-safe.
//
// See NewFileCache and OpenSQLiteCache for the implementations.
type Cache interface {
	// Get returns the content passed to Add for key. ok is false with a nil
	// err when there is no entry. The caller closes content.
	Get(key Key) (content io.ReadCloser, ok bool, err error)
	// Add stores content for key, replacing any existing entry.
	Add(key Key, content io.Reader) (err error)
	// Delete purges the entry for key, which is not an error if absent.
	// The emitter calls this when a cached entry can't be decoded.
	Delete(key Key) (err error)
}

// Key represents the 256-bit unique identifier assigned to each cache content.
type Key = [sha256.Size]byte

// KeyOf returns the key of the code emitted for the canonical IR encoding ir
// by the emitter with the given version and configuration string.
func KeyOf(version, config string, ir []byte) Key {
	h := sha256.New()
	// Lengths delimit the parts so that no two inputs hash the same bytes.
	writeLen(h, len(version))
	_, _ = io.WriteString(h, version)
	writeLen(h, len(config))
	_, _ = io.WriteString(h, config)
	_, _ = h.Write(ir)
	var ret Key
	h.Sum(ret[:0])
	return ret
}

func writeLen(w io.Writer, n int) {
	_, _ = w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
