// pkg/archive/extract_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: testutil bottle builder, real temp directories
// PURPOSE: Test format sniffing, prefix stripping and all-or-nothing extraction

package archive_test

import (
	"archive/tar"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/kegs/pkg/archive"
	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/filesystem"
	"github.com/arthur-debert/kegs/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bottle.tar")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func sampleBottle() *testutil.BottleBuilder {
	return testutil.NewBottle("tool", "1.0").
		Executable("tool", "#!/bin/sh\necho tool\n").
		File("share/doc/README", "docs", 0644).
		Symlink("bin/tool-alias", "tool").
		Hardlink("bin/tool-copy", "bin/tool")
}

func TestExtractFormats(t *testing.T) {
	tests := []struct {
		format string
		want   archive.Compression
	}{
		{testutil.Tar, archive.CompressionNone},
		{testutil.Gzip, archive.CompressionGzip},
		{testutil.Zstd, archive.CompressionZstd},
		{testutil.XZ, archive.CompressionXZ},
		{testutil.LZ4, archive.CompressionLZ4},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			src := writeArchive(t, sampleBottle().Build(t, tt.format))
			dest := filepath.Join(t.TempDir(), "keg")

			res, err := archive.Extract(context.Background(), filesystem.NewOS(), src, dest, archive.Options{StripComponents: 2})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Compression)

			content, err := os.ReadFile(filepath.Join(dest, "bin", "tool"))
			require.NoError(t, err)
			assert.Equal(t, "#!/bin/sh\necho tool\n", string(content))

			info, err := os.Stat(filepath.Join(dest, "bin", "tool"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

			link, err := os.Readlink(filepath.Join(dest, "bin", "tool-alias"))
			require.NoError(t, err)
			assert.Equal(t, "tool", link)

			copied, err := os.ReadFile(filepath.Join(dest, "bin", "tool-copy"))
			require.NoError(t, err)
			assert.Equal(t, content, copied)

			_, err = os.Stat(filepath.Join(dest, "share", "doc", "README"))
			assert.NoError(t, err)
		})
	}
}

func TestExtractProgress(t *testing.T) {
	src := writeArchive(t, sampleBottle().Build(t, testutil.Gzip))
	dest := filepath.Join(t.TempDir(), "keg")

	var calls int
	var lastEntries int
	var lastBytes int64
	res, err := archive.Extract(context.Background(), filesystem.NewOS(), src, dest, archive.Options{
		StripComponents: 2,
		Progress: func(entries int, bytes int64) {
			calls++
			assert.Greater(t, entries, lastEntries)
			assert.GreaterOrEqual(t, bytes, lastBytes)
			lastEntries, lastBytes = entries, bytes
		},
	})
	require.NoError(t, err)
	assert.Equal(t, res.Entries, calls)
	assert.Equal(t, res.Bytes, lastBytes)
}

func TestExtractRejectsEscapes(t *testing.T) {
	tests := []struct {
		name  string
		entry testutil.BottleEntry
	}{
		{"parent traversal", testutil.BottleEntry{Name: "tool/1.0/../../../evil", Body: "x", Mode: 0644, Typeflag: tar.TypeReg}},
		{"absolute symlink", testutil.BottleEntry{Name: "tool/1.0/bin/evil", Linkname: "/etc/passwd", Mode: 0777, Typeflag: tar.TypeSymlink}},
		{"escaping symlink", testutil.BottleEntry{Name: "tool/1.0/bin/evil", Linkname: "../../../outside", Mode: 0777, Typeflag: tar.TypeSymlink}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeArchive(t, sampleBottle().Raw(tt.entry).Build(t, testutil.Gzip))
			base := t.TempDir()
			dest := filepath.Join(base, "keg")

			_, err := archive.Extract(context.Background(), filesystem.NewOS(), src, dest, archive.Options{StripComponents: 2})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrExtractionFailed), "got %v", err)

			_, statErr := os.Stat(dest)
			assert.True(t, os.IsNotExist(statErr), "destination must be removed")
			entries, _ := os.ReadDir(base)
			assert.Empty(t, entries)
		})
	}
}

func TestExtractRejectsChainedSymlinks(t *testing.T) {
	// Each link looks harmless on its own; together d/s/t lands above dest
	bottle := testutil.NewBottle("tool", "1.0").
		Raw(testutil.BottleEntry{Name: "tool/1.0/d/", Mode: 0755, Typeflag: tar.TypeDir}).
		Raw(testutil.BottleEntry{Name: "tool/1.0/d/s", Linkname: "..", Mode: 0777, Typeflag: tar.TypeSymlink}).
		Raw(testutil.BottleEntry{Name: "tool/1.0/d/s/t", Linkname: "..", Mode: 0777, Typeflag: tar.TypeSymlink}).
		Raw(testutil.BottleEntry{Name: "tool/1.0/d/s/t/evil", Body: "x", Mode: 0644, Typeflag: tar.TypeReg})
	src := writeArchive(t, bottle.Build(t, testutil.Gzip))
	base := t.TempDir()
	dest := filepath.Join(base, "Cellar", "tool", "1.0")

	_, err := archive.Extract(context.Background(), filesystem.NewOS(), src, dest, archive.Options{StripComponents: 2})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtractionFailed), "got %v", err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "destination must be removed")
	for _, p := range []string{
		filepath.Join(base, "Cellar", "tool", "evil"),
		filepath.Join(base, "Cellar", "tool", "t"),
		filepath.Join(base, "Cellar", "evil"),
	} {
		_, statErr := os.Lstat(p)
		assert.True(t, os.IsNotExist(statErr), "%s must not exist", p)
	}
}

func TestExtractWritesThroughInternalSymlink(t *testing.T) {
	bottle := testutil.NewBottle("tool", "1.0").
		Dir("lib/v1").
		Symlink("lib/current", "v1").
		File("lib/current/data", "payload", 0644)
	src := writeArchive(t, bottle.Build(t, testutil.Gzip))
	dest := filepath.Join(t.TempDir(), "keg")

	_, err := archive.Extract(context.Background(), filesystem.NewOS(), src, dest, archive.Options{StripComponents: 2})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dest, "lib", "v1", "data"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))

	link, err := os.Readlink(filepath.Join(dest, "lib", "current"))
	require.NoError(t, err)
	assert.Equal(t, "v1", link)
}

func TestExtractCorruptArchive(t *testing.T) {
	data := sampleBottle().Build(t, testutil.Gzip)
	src := writeArchive(t, data[:len(data)/2])
	dest := filepath.Join(t.TempDir(), "keg")

	_, err := archive.Extract(context.Background(), filesystem.NewOS(), src, dest, archive.Options{})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtractionFailed), "got %v", err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractCancelled(t *testing.T) {
	src := writeArchive(t, sampleBottle().Build(t, testutil.Gzip))
	dest := filepath.Join(t.TempDir(), "keg")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := archive.Extract(ctx, filesystem.NewOS(), src, dest, archive.Options{
		Progress: func(int, int64) { cancel() },
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCancelled))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractMissingArchive(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "keg")
	_, err := archive.Extract(context.Background(), filesystem.NewOS(), filepath.Join(t.TempDir(), "nope"), dest, archive.Options{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCommonPrefix(t *testing.T) {
	fs := filesystem.NewOS()
	src := writeArchive(t, sampleBottle().Build(t, testutil.Gzip))
	prefix, err := archive.CommonPrefix(fs, src, 2)
	require.NoError(t, err)
	assert.Equal(t, "tool/1.0", prefix)

	mixed := writeArchive(t, sampleBottle().Raw(testutil.BottleEntry{
		Name: "other/file", Body: "x", Mode: 0644, Typeflag: tar.TypeReg,
	}).Build(t, testutil.Tar))
	prefix, err = archive.CommonPrefix(fs, mixed, 2)
	require.NoError(t, err)
	assert.Equal(t, "", prefix)

	stray := writeArchive(t, sampleBottle().Raw(testutil.BottleEntry{
		Name: "README", Body: "x", Mode: 0644, Typeflag: tar.TypeReg,
	}).Build(t, testutil.Tar))
	prefix, err = archive.CommonPrefix(fs, stray, 2)
	require.NoError(t, err)
	assert.Equal(t, "", prefix)
}

func TestDetect(t *testing.T) {
	assert.Equal(t, archive.CompressionGzip, archive.Detect([]byte{0x1f, 0x8b, 0x08}))
	assert.Equal(t, archive.CompressionBzip2, archive.Detect([]byte("BZh91AY")))
	assert.Equal(t, archive.CompressionNone, archive.Detect([]byte{0x1f}))
	assert.Equal(t, "xz", archive.CompressionXZ.String())
}
