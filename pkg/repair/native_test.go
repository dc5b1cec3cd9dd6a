// pkg/repair/native_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: debug/macho, real temp directories
// PURPOSE: Test load command parsing and in-place rewriting of Mach-O files

package repair

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMachO assembles a minimal 64-bit little-endian dylib with the
// given install id, dependencies and rpaths
func buildMachO(id string, dylibs, rpaths []string) []byte {
	var cmds bytes.Buffer
	ncmds := 0
	pad := func(s string, header int) []byte {
		b := append([]byte(s), 0)
		for (header+len(b))%8 != 0 {
			b = append(b, 0)
		}
		return b
	}
	dylibCmd := func(cmd uint32, name string) {
		body := pad(name, 24)
		for _, v := range []uint32{cmd, uint32(24 + len(body)), 24, 2, 0x10000, 0x10000} {
			_ = binary.Write(&cmds, binary.LittleEndian, v)
		}
		cmds.Write(body)
		ncmds++
	}
	if id != "" {
		dylibCmd(lcIDDylib, id)
	}
	for _, d := range dylibs {
		dylibCmd(lcLoadDylib, d)
	}
	for _, r := range rpaths {
		body := pad(r, 12)
		for _, v := range []uint32{lcRpath, uint32(12 + len(body)), 12} {
			_ = binary.Write(&cmds, binary.LittleEndian, v)
		}
		cmds.Write(body)
		ncmds++
	}

	var out bytes.Buffer
	for _, v := range []uint32{0xfeedfacf, 0x0100000c, 0, 6, uint32(ncmds), uint32(cmds.Len()), 0, 0} {
		_ = binary.Write(&out, binary.LittleEndian, v)
	}
	out.Write(cmds.Bytes())
	return out.Bytes()
}

const (
	testID     = "@@HOMEBREW_PREFIX@@/opt/foo/lib/libfoo.1.dylib"
	testDep    = "@@HOMEBREW_CELLAR@@/bar/2.0/lib/libbar.dylib"
	testSystem = "/usr/lib/libSystem.B.dylib"
	testRpath  = "@@HOMEBREW_PREFIX@@/lib"
)

func TestParseMachO(t *testing.T) {
	data := buildMachO(testID, []string{testDep, testSystem}, []string{testRpath})
	lc, err := parseLoadCommands(data)
	require.NoError(t, err)

	assert.Equal(t, FormatMachO, lc.Format)
	assert.Equal(t, testID, lc.ID)
	assert.Equal(t, []string{testDep, testSystem}, lc.Dylibs)
	assert.Equal(t, []string{testRpath}, lc.Rpaths)
	assert.Equal(t, []string{testID, testDep, testSystem, testRpath}, lc.All())
}

func TestParseNotObject(t *testing.T) {
	_, err := parseLoadCommands([]byte("#!/bin/sh\necho hi\n"))
	assert.True(t, err == ErrNotObject)
}

func TestNativeRewrite(t *testing.T) {
	fs := filesystem.NewOS()
	path := filepath.Join(t.TempDir(), "libfoo.1.dylib")
	require.NoError(t, os.WriteFile(path, buildMachO(testID, []string{testDep, testSystem}, []string{testRpath}), 0555))

	editor := NativeEditor{FS: fs}
	r := Relocator{Prefix: "/k", Cellar: "/k/Cellar"}
	lc, err := editor.LoadCommands(path)
	require.NoError(t, err)
	replacements := r.Replacements(lc)
	assert.Len(t, replacements, 3)

	require.NoError(t, editor.Rewrite(path, replacements))

	lc, err = editor.LoadCommands(path)
	require.NoError(t, err)
	assert.Equal(t, "/k/opt/foo/lib/libfoo.1.dylib", lc.ID)
	assert.Equal(t, []string{"/k/Cellar/bar/2.0/lib/libbar.dylib", testSystem}, lc.Dylibs)
	assert.Equal(t, []string{"/k/lib"}, lc.Rpaths)
	assert.Empty(t, r.Replacements(lc))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0555), info.Mode().Perm(), "mode is preserved")
}

func TestNativeRewriteTooLong(t *testing.T) {
	fs := filesystem.NewOS()
	path := filepath.Join(t.TempDir(), "tool")
	original := buildMachO("", []string{testDep}, nil)
	require.NoError(t, os.WriteFile(path, original, 0755))

	long := "/a/very/long/prefix/that/does/not/fit/in/the/original/load/command/Cellar/bar/2.0/lib/libbar.dylib"
	err := NativeEditor{FS: fs}.Rewrite(path, map[string]string{testDep: long})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRepairFailed))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after, "a failed rewrite leaves the file untouched")
}

func TestPatchString(t *testing.T) {
	data := []byte("\x00abc\x00xabc\x00abc\x00")
	n, err := patchString(data, "abc", "z")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("\x00z\x00\x00\x00xabc\x00z\x00\x00\x00"), data)

	_, err = patchString(data, "z", "longer")
	assert.Error(t, err)
}
