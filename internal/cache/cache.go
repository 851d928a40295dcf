// Package cache stores optimized listings on disk, keyed by input and settings.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// bump when Entry changes shape
const schemaVersion uint16 = 1

// Digest identifies one (source, settings) pair.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Key hashes the raw listing together with the pass chain and options that
// shape the output.
func Key(src []byte, settings ...string) Digest {
	h := sha256.New()
	h.Write(src)
	for _, s := range settings {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Entry is what gets stored for one optimized listing.
type Entry struct {
	Schema uint16

	Output string // emitted text, closing halt included
	Passes []string

	// value numbering counters
	Removed  int
	Copied   int
	Memoized int

	// one reason per detected loop, in detection order
	LoopReasons []string

	Stored time.Time
}

// Cache is a directory of msgpack files. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns a cache rooted at dir, or at $XDG_CACHE_HOME/app when dir is empty.
func Open(dir, app string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "out", key.String()+".mp")
}

// Put writes entry under key, replacing any previous one.
func (c *Cache) Put(key Digest, entry *Entry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// already renamed on success
		_ = os.Remove(tmp)
	}()

	stored := *entry
	stored.Schema = schemaVersion
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(tmp, p)
}

// Get reads the entry for key. A missing entry or one written by another
// schema version is a miss, not an error.
func (c *Cache) Get(key Digest) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, err
	}
	if entry.Schema != schemaVersion {
		return nil, false, nil
	}
	return &entry, true, nil
}

// DropAll removes every stored entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(c.dir, "out"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var errs []error
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".mp") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, "out", e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
