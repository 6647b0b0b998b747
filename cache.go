package sparcemit

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/tetratelabs/sparcemit/internal/compilationcache"
	"github.com/tetratelabs/sparcemit/internal/version"
)

// Cache is the configuration for caching emitted code across emitters and
// processes. Pass it to EmitConfig.WithCache.
//
// Entries are only valid for the sparcemit version which wrote them, so
// every version uses its own directory or keys.
type Cache interface {
	// Close releases the resources of the cache, such as the database of
	// WithCompilationCacheDB.
	Close() error

	// WithCompilationCacheDirName stores the code of each function in its
	// own file under dir, which is created if it doesn't exist.
	//
	// Note: The embedder must safeguard this directory from external changes.
	WithCompilationCacheDirName(dir string) error

	// WithCompilationCacheDB stores code in the SQLite database at dbPath,
	// which is created if it doesn't exist.
	WithCompilationCacheDB(dbPath string) error
}

// NewCache returns a new Cache to be passed to EmitConfig.WithCache. Until
// one of its With methods succeeds, nothing is cached.
func NewCache() Cache {
	return &cache{}
}

// cache implements Cache interface.
type cache struct {
	store compilationcache.Cache
	// db is set when store is the SQLite backend.
	db *compilationcache.SQLiteCache
}

// Close implements the same method on the Cache interface.
func (c *cache) Close() (err error) {
	if c.db != nil {
		err = c.db.Close()
		c.db, c.store = nil, nil
	}
	return
}

// WithCompilationCacheDirName implements the same method on the Cache interface.
func (c *cache) WithCompilationCacheDirName(dir string) error {
	return c.withCompilationCacheDirName(dir, version.GetVersion())
}

func (c *cache) withCompilationCacheDirName(dir string, sparcemitVersion string) error {
	// Resolve a potentially relative directory into an absolute one.
	var err error
	dir, err = filepath.Abs(dir)
	if err != nil {
		return err
	}

	if err = mkdir(dir); err != nil {
		return err
	}

	// Create a version-specific directory to avoid conflicts.
	dirname := path.Join(dir, "sparcemit-"+sparcemitVersion+"-sparcv9")
	if err = mkdir(dirname); err != nil {
		return err
	}

	if err = c.Close(); err != nil {
		return err
	}
	c.store = compilationcache.NewFileCache(dirname)
	return nil
}

// WithCompilationCacheDB implements the same method on the Cache interface.
func (c *cache) WithCompilationCacheDB(dbPath string) error {
	db, err := compilationcache.OpenSQLiteCache(dbPath)
	if err != nil {
		return err
	}
	if err = c.Close(); err != nil {
		db.Close()
		return err
	}
	c.store, c.db = db, db
	return nil
}

func mkdir(dirname string) error {
	if st, err := os.Stat(dirname); errors.Is(err, os.ErrNotExist) {
		// If the directory not found, create the cache dir.
		if err = os.MkdirAll(dirname, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %v", dirname, err)
		}
	} else if err != nil {
		return err
	} else if !st.IsDir() {
		return fmt.Errorf("%s is not dir", dirname)
	}
	return nil
}
