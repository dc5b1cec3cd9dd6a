// pkg/paths/links_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: real temp directories
// PURPOSE: Test containment checks and atomic link replacement

package paths_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsPath(t *testing.T) {
	tests := []struct {
		parent, child string
		want          bool
	}{
		{"/a/b", "/a/b", true},
		{"/a/b", "/a/b/c", true},
		{"/a/b", "/a/b/../c", false},
		{"/a/b", "/a/bc", false},
		{"/a/b", "/a/b/..c", true},
		{"/a/b", "/a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, paths.ContainsPath(tt.parent, tt.child), "%s in %s", tt.child, tt.parent)
	}
}

func TestRelativeTarget(t *testing.T) {
	rel, err := paths.RelativeTarget("/root/bin/wget", "/root/Cellar/wget/1.0/bin/wget")
	require.NoError(t, err)
	assert.Equal(t, "../Cellar/wget/1.0/bin/wget", rel)
}

func TestReplaceSymlink(t *testing.T) {
	env := testutil.NewEnv(t)
	v1 := env.Layout.KegDir("tool", "1.0")
	v2 := env.Layout.KegDir("tool", "2.0")
	env.WriteExecutable(filepath.Join(v1, "bin", "tool"), "v1")
	env.WriteExecutable(filepath.Join(v2, "bin", "tool"), "v2")
	link := env.Layout.DefaultLink("tool")

	require.NoError(t, paths.ReplaceSymlink(env.FS, filepath.Join(v1, "bin", "tool"), link))
	content, err := os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))

	raw, err := os.Readlink(link)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(raw), "link text should be relative: %s", raw)

	require.NoError(t, paths.ReplaceSymlink(env.FS, filepath.Join(v2, "bin", "tool"), link))
	content, err = os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))

	target, err := paths.LinkTarget(env.FS, link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v2, "bin", "tool"), target)
	assert.True(t, paths.PointsInto(env.FS, link, v2))
	assert.False(t, paths.PointsInto(env.FS, link, v1))

	// No temporary links are left behind
	entries, err := os.ReadDir(env.Layout.BinDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveLinkIfInto(t *testing.T) {
	env := testutil.NewEnv(t)
	keg := env.Layout.KegDir("tool", "1.0")
	env.WriteExecutable(filepath.Join(keg, "bin", "tool"), "v1")
	link := env.Layout.DefaultLink("tool")
	require.NoError(t, paths.ReplaceSymlink(env.FS, filepath.Join(keg, "bin", "tool"), link))

	removed, err := paths.RemoveLinkIfInto(env.FS, link, env.Layout.KegDir("tool", "2.0"))
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = paths.RemoveLinkIfInto(env.FS, link, keg)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = os.Lstat(link)
	assert.True(t, os.IsNotExist(err))
}
