package compilationcache

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"

	_ "modernc.org/sqlite"
)

const busyTimeoutMillis = 5000

// SQLiteCache is a Cache storing every entry as a row of a single SQLite
// database file, for hosts where one file per function is too many.
type SQLiteCache struct {
	db *sql.DB
}

var _ Cache = (*SQLiteCache)(nil)

// OpenSQLiteCache opens or creates the cache database at dbPath.
func OpenSQLiteCache(dbPath string) (*SQLiteCache, error) {
	// The driver runs DSN pragmas on every pooled connection. Concurrent
	// emitters may share the database.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout("+strconv.Itoa(busyTimeoutMillis)+")")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS code (
		key BLOB PRIMARY KEY,
		content BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get implements Cache.Get
func (c *SQLiteCache) Get(key Key) (content io.ReadCloser, ok bool, err error) {
	var b []byte
	err = c.db.QueryRow("SELECT content FROM code WHERE key = ?", key[:]).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("querying entry: %w", err)
	}
	return io.NopCloser(bytes.NewReader(b)), true, nil
}

// Add implements Cache.Add
func (c *SQLiteCache) Add(key Key, content io.Reader) error {
	b, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	if _, err = c.db.Exec("INSERT OR REPLACE INTO code (key, content) VALUES (?, ?)", key[:], b); err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return nil
}

// Delete implements Cache.Delete
func (c *SQLiteCache) Delete(key Key) error {
	if _, err := c.db.Exec("DELETE FROM code WHERE key = ?", key[:]); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}
