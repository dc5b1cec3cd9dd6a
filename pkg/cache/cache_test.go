// pkg/cache/cache_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: in-memory and real filesystems
// PURPOSE: Test both tiers, revision invalidation and typed records

package cache_test

import (
	"fmt"
	"os"
	"path/filepath"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arthur-debert/kegs/pkg/cache"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/filesystem"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wget() *types.Formula {
	return &types.Formula{
		Name:     "wget",
		Version:  "1.24.5",
		Revision: 1,
		Dependencies: []types.Dependency{
			{Name: "openssl@3", Kind: types.DependencyRequired},
			{Name: "pkgconf", Kind: types.DependencyBuild},
		},
		Bottles: []types.Bottle{
			{PlatformTag: "arm64_sonoma", Digest: "sha256:abc", URL: "https://example.com/wget.tar.gz"},
		},
	}
}

func cacheEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() != cache.RevisionFile {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestCache_RoundTripAcrossOpens(t *testing.T) {
	fs := filesystem.NewOS()
	dir := filepath.Join(t.TempDir(), "formula")

	c, err := cache.Open(fs, dir, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", c.Revision())
	require.NoError(t, cache.SetFormula(c, wget()))

	got, ok, err := cache.GetFormula(c, "wget")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wget(), got)
	assert.Len(t, cacheEntries(t, dir), 1)

	// A fresh instance starts with an empty memory tier and reads disk
	reopened, err := cache.Open(fs, dir, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
	got, ok, err = cache.GetFormula(reopened, "wget")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wget(), got)
	assert.Equal(t, 1, reopened.Len())

	_, ok, err = cache.GetFormula(reopened, "curl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_RevisionChangeWipesDiskTier(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()

	c, err := cache.Open(fs, dir, "r1")
	require.NoError(t, err)
	require.NoError(t, cache.SetFormula(c, wget()))
	require.NoError(t, c.Set("other", "value"))
	require.Len(t, cacheEntries(t, dir), 2)

	c2, err := cache.Open(fs, dir, "r2")
	require.NoError(t, err)
	assert.Empty(t, cacheEntries(t, dir))
	_, ok, err := cache.GetFormula(c2, "wget")
	require.NoError(t, err)
	assert.False(t, ok)

	marker, err := os.ReadFile(filepath.Join(dir, cache.RevisionFile))
	require.NoError(t, err)
	assert.Equal(t, "r2\n", string(marker))
}

func TestCache_MissingMarkerWipes(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.cbor"), []byte("x"), 0644))

	_, err := cache.Open(fs, dir, "r1")
	require.NoError(t, err)
	assert.Empty(t, cacheEntries(t, dir))
}

func TestCache_InvalidateAndClear(t *testing.T) {
	fs := filesystem.New(afero.NewMemMapFs())
	c, err := cache.Open(fs, "/cache", "r1")
	require.NoError(t, err)
	require.NoError(t, c.Set("k", 42))

	require.NoError(t, c.Clear())
	assert.Equal(t, "r1", c.Revision())
	_, ok, err := cache.Load[int](c, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("k", 43))
	require.NoError(t, c.Invalidate("r2"))
	assert.Equal(t, "r2", c.Revision())
	assert.Equal(t, 0, c.Len())
	_, ok, err = cache.Load[int](c, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	err = c.Invalidate("")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	_, err = cache.Open(fs, "/cache", "")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestCache_DeterministicEncoding(t *testing.T) {
	fs := filesystem.New(afero.NewMemMapFs())
	a, err := cache.Open(fs, "/a", "r")
	require.NoError(t, err)
	b, err := cache.Open(fs, "/b", "r")
	require.NoError(t, err)

	m1 := map[string]int{"z": 1, "a": 2, "m": 3}
	m2 := map[string]int{"m": 3, "z": 1, "a": 2}
	require.NoError(t, a.Set("m", m1))
	require.NoError(t, b.Set("m", m2))

	readOnly := func(dir string) []byte {
		entries, err := fs.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			if e.Name() != cache.RevisionFile {
				data, err := fs.ReadFile(filepath.Join(dir, e.Name()))
				require.NoError(t, err)
				return data
			}
		}
		t.Fatalf("no entry in %s", dir)
		return nil
	}
	assert.Equal(t, readOnly("/a"), readOnly("/b"))
}

func TestCache_CorruptEntry(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()
	c, err := cache.Open(fs, dir, "r1")
	require.NoError(t, err)
	require.NoError(t, c.Set("k", "v"))

	entries := cacheEntries(t, dir)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0]), []byte{0xff, 0x00}, 0644))

	reopened, err := cache.Open(fs, dir, "r1")
	require.NoError(t, err)
	_, _, err = cache.Load[string](reopened, "k")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCache))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	fs := filesystem.New(afero.NewMemMapFs())
	c, err := cache.Open(fs, "/cache", "r1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			assert.NoError(t, c.Set(key, i))
			_, _, err := cache.Load[int](c, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, c.Len())
}

// slowWriteFS delays WriteFile once slow is set and reports when a slow
// write has begun
type slowWriteFS struct {
	types.FS
	slow    atomic.Bool
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (s *slowWriteFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if s.slow.Load() {
		s.once.Do(func() { close(s.started) })
		time.Sleep(s.delay)
	}
	return s.FS.WriteFile(name, data, perm)
}

func TestCache_LargeWriteDoesNotBlockOtherKeys(t *testing.T) {
	slow := &slowWriteFS{
		FS:      filesystem.New(afero.NewMemMapFs()),
		delay:   500 * time.Millisecond,
		started: make(chan struct{}),
	}
	c, err := cache.Open(slow, "/cache", "r1")
	require.NoError(t, err)
	require.NoError(t, c.Set("small", "value"))

	slow.slow.Store(true)
	done := make(chan error, 1)
	go func() {
		done <- c.Set("big", strings.Repeat("x", 1<<20))
	}()
	<-slow.started

	begin := time.Now()
	got, ok, err := cache.Load[string](c, "small")
	elapsed := time.Since(begin)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", got)
	assert.Less(t, elapsed, 100*time.Millisecond, "read of an unrelated key waited on the large write")

	require.NoError(t, <-done)
	big, ok, err := cache.Load[string](c, "big")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, big, 1<<20)
}

func TestCache_ClearDuringWriteDropsEntry(t *testing.T) {
	slow := &slowWriteFS{
		FS:      filesystem.New(afero.NewMemMapFs()),
		delay:   200 * time.Millisecond,
		started: make(chan struct{}),
	}
	c, err := cache.Open(slow, "/cache", "r1")
	require.NoError(t, err)

	slow.slow.Store(true)
	done := make(chan error, 1)
	go func() {
		done <- c.Set("k", "stale")
	}()
	<-slow.started
	slow.slow.Store(false)
	require.NoError(t, c.Clear())
	require.NoError(t, <-done)

	_, ok, err := cache.Load[string](c, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
