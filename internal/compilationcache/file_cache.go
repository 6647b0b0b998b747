package compilationcache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"
)

// NewFileCache returns a new Cache which stores each entry as a file named by
// its hex key in dir. The directory is created on the first Add.
func NewFileCache(dir string) Cache {
	return newFileCache(dir)
}

func newFileCache(dir string) *fileCache {
	return &fileCache{dirPath: dir}
}

// fileCache writes/reads cache into/from the fileCache.dirPath.
type fileCache struct {
	dirPath string
	mux     sync.RWMutex
}

type fileReadCloser struct {
	*os.File
	fc *fileCache
}

func (f *fileCache) path(key Key) string {
	return path.Join(f.dirPath, hex.EncodeToString(key[:]))
}

func (f *fileCache) Get(key Key) (content io.ReadCloser, ok bool, err error) {
	f.mux.RLock()
	unlock := f.mux.RUnlock
	defer func() {
		unlock()
	}()

	file, err := os.Open(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	} else {
		// Unlock is done inside the content.Close() at the call site.
		unlock = func() {}
		return &fileReadCloser{File: file, fc: f}, true, nil
	}
}

// Close wraps the os.File Close to release the read lock on fileCache.
func (f *fileReadCloser) Close() (err error) {
	defer f.fc.mux.RUnlock()
	err = f.File.Close()
	return
}

func (f *fileCache) Add(key Key, content io.Reader) (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	if err = mkdir(f.dirPath); err != nil {
		return
	}

	file, err := os.Create(f.path(key))
	if err != nil {
		return
	}
	defer file.Close()
	_, err = io.Copy(file, content)
	return
}

func (f *fileCache) Delete(key Key) (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	err = os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return
}

func mkdir(dirPath string) error {
	if st, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dirPath, 0o700)
	} else if err != nil {
		return err
	} else if !st.IsDir() {
		return fmt.Errorf("fileCache: expected dir at %s", dirPath)
	}
	return nil
}
