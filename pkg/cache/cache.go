package cache

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/internal/hashutil"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// RevisionFile names the marker holding the revision of the disk tier
	RevisionFile = "REVISION"
	entryExt     = ".cbor"
)

// Cache is a two-tier store of encoded records. It is safe for
// concurrent use.
type Cache struct {
	fs     types.FS
	dir    string
	logger zerolog.Logger

	mu       sync.RWMutex
	revision string
	mem      map[string][]byte
	// generation counts resets; a write that raced one is discarded
	generation uint64

	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// Open opens the cache in dir for revision. When the disk tier was
// written for another revision, or carries no marker, it is emptied.
func Open(fs types.FS, dir, revision string) (*Cache, error) {
	if revision == "" {
		return nil, errors.New(errors.ErrInvalidInput, "cache revision is empty")
	}
	c := &Cache{
		fs:       fs,
		dir:      dir,
		logger:   logging.GetLogger("cache").With().Str("dir", dir).Logger(),
		mem:      make(map[string][]byte),
		keyLocks: make(map[string]*sync.Mutex),
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, wrap(errors.FromFS(err, dir), "cannot create cache directory")
	}

	current, err := fs.ReadFile(filepath.Join(dir, RevisionFile))
	switch {
	case err == nil && strings.TrimSpace(string(current)) == revision:
		c.revision = revision
		return c, nil
	case err != nil && !os.IsNotExist(err):
		return nil, wrap(errors.FromFS(err, dir), "cannot read cache revision")
	}

	c.logger.Debug().Str("from", strings.TrimSpace(string(current))).Str("to", revision).Msg("cache revision changed")
	if err := c.reset(revision); err != nil {
		return nil, err
	}
	return c, nil
}

// Revision returns the revision the cache holds entries for
func (c *Cache) Revision() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Set encodes v and stores it under key in both tiers. The disk write
// holds only the lock for key, so readers of other keys never wait on it.
func (c *Cache) Set(key string, v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCache, "cannot encode cache entry %q", key).WithDetail("key", key)
	}

	unlock := c.lockKey(key)
	defer unlock()

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	path := c.entryPath(key)
	writeErr := c.writeAtomic(path, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		// Cleared while writing; the entry belongs to the old contents
		_ = c.fs.Remove(path)
		return nil
	}
	if writeErr != nil {
		return wrap(writeErr, "cannot write cache entry").WithDetail("key", key)
	}
	c.mem[key] = data
	return nil
}

// lockKey serializes writers of one key and returns the unlock func
func (c *Cache) lockKey(key string) func() {
	c.keyMu.Lock()
	m, ok := c.keyLocks[key]
	if !ok {
		m = &sync.Mutex{}
		c.keyLocks[key] = m
	}
	c.keyMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Get decodes the entry for key into v and reports whether it existed
func (c *Cache) Get(key string, v any) (bool, error) {
	c.mu.RLock()
	data, ok := c.mem[key]
	c.mu.RUnlock()

	if !ok {
		path := c.entryPath(key)
		var err error
		data, err = c.fs.ReadFile(path)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, wrap(errors.FromFS(err, path), "cannot read cache entry").WithDetail("key", key)
		}
	}

	if err := decMode.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, errors.ErrCache, "corrupt cache entry %q", key).WithDetail("key", key)
	}
	if !ok {
		c.mu.Lock()
		// A concurrent Set wins over what was read from disk
		if _, exists := c.mem[key]; !exists {
			c.mem[key] = data
		}
		c.mu.Unlock()
	}
	return true, nil
}

// Len returns the number of entries held in memory
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// Invalidate drops every entry in both tiers and records revision
func (c *Cache) Invalidate(revision string) error {
	if revision == "" {
		return errors.New(errors.ErrInvalidInput, "cache revision is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset(revision)
}

// Clear drops every entry, keeping the current revision
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset(c.revision)
}

// reset empties the disk tier and writes the marker. Callers hold mu
// or own c exclusively.
func (c *Cache) reset(revision string) error {
	entries, err := c.fs.ReadDir(c.dir)
	if err != nil {
		return wrap(errors.FromFS(err, c.dir), "cannot list cache")
	}
	for _, entry := range entries {
		path := filepath.Join(c.dir, entry.Name())
		if err := c.fs.RemoveAll(path); err != nil {
			return wrap(errors.FromFS(err, path), "cannot clear cache")
		}
	}
	c.mem = make(map[string][]byte)
	c.generation++

	if err := c.writeAtomic(filepath.Join(c.dir, RevisionFile), []byte(revision+"\n")); err != nil {
		return wrap(err, "cannot write cache revision")
	}
	c.revision = revision
	return nil
}

func (c *Cache) entryPath(key string) string {
	digest, _ := hashutil.Sum(hashutil.SHA256, strings.NewReader(key))
	return filepath.Join(c.dir, digest.Hex+entryExt)
}

// writeAtomic writes data under a temporary name and renames it into
// place so readers never observe a partial entry
func (c *Cache) writeAtomic(path string, data []byte) error {
	var suffix [6]byte
	_, _ = rand.Read(suffix[:])
	tmp := path + ".tmp-" + hex.EncodeToString(suffix[:])
	if err := c.fs.WriteFile(tmp, data, 0644); err != nil {
		return errors.FromFS(err, tmp)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return errors.FromFS(err, path)
	}
	return nil
}

func wrap(err error, message string) *errors.KegsError {
	return errors.Wrap(err, errors.ErrCache, message)
}
