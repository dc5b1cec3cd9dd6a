// internal/cli/cli_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: cobra root command, testutil bottle builder, real temp directories
// PURPOSE: Test the command line end to end against an isolated root

package cli

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/testutil"
)

type cliSetup struct {
	t      *testing.T
	base   string
	root   string
	config string
}

func newCLISetup(t *testing.T) *cliSetup {
	t.Helper()
	base := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	s := &cliSetup{
		t:      t,
		base:   base,
		root:   filepath.Join(base, "root"),
		config: filepath.Join(base, "config.toml"),
	}
	cfg := fmt.Sprintf(`root = %q

[platform]
tags = ["x86_64_linux"]

[repair]
editor = "native"
sign = false
`, s.root)
	require.NoError(t, os.WriteFile(s.config, []byte(cfg), 0644))
	t.Chdir(base)
	// keep host binaries out of resolution
	t.Setenv("PATH", "")
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))
	return s
}

// run executes kegs with args and returns its output
func (s *cliSetup) run(args ...string) (string, error) {
	s.t.Helper()
	cmd, _ := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", s.config, "--format", "text"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// formula writes a bottle for name at version and a formula record that
// points at it, returning the record's path
func (s *cliSetup) formula(name, version string) string {
	s.t.Helper()
	bottle := testutil.NewBottle(name, version).
		Executable(name, "#!/bin/sh\necho "+name+" "+version+"\n").
		WriteFile(s.t, filepath.Join(s.base, "bottles", name+"-"+version+".tar.gz"))
	data, err := os.ReadFile(bottle)
	require.NoError(s.t, err)
	sum := sha256.Sum256(data)

	record := map[string]any{
		"name":        name,
		"version":     version,
		"description": "test tool",
		"bottles": []map[string]string{{
			"digest":       "sha256:" + hex.EncodeToString(sum[:]),
			"platform_tag": "all",
			"url":          "file://" + bottle,
		}},
	}
	raw, err := json.Marshal(record)
	require.NoError(s.t, err)
	path := filepath.Join(s.base, "formulas", name+"-"+version+".json")
	require.NoError(s.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(s.t, os.WriteFile(path, raw, 0644))
	return path
}

func TestVersion(t *testing.T) {
	s := newCLISetup(t)
	out, err := s.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "kegs version dev")
}

func TestInstallLifecycle(t *testing.T) {
	s := newCLISetup(t)
	f := s.formula("tool", "1.0")

	out, err := s.run("install", f)
	require.NoError(t, err)
	assert.Contains(t, out, "installed tool 1.0")

	out, err = s.run("list")
	require.NoError(t, err)
	assert.Equal(t, "* tool 1.0\n", out)

	out, err = s.run("which", "tool")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.root, "bin", "tool")+"\n", out)

	out, err = s.run("verify", "tool")
	require.NoError(t, err)
	assert.Equal(t, "tool 1.0 installed\n", out)

	_, err = s.run("install", f)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyInstalled))

	out, err = s.run("uninstall", "tool")
	require.NoError(t, err)
	assert.Contains(t, out, "removed tool 1.0")

	_, err = s.run("which", "tool")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestUpgradeAndSwitch(t *testing.T) {
	s := newCLISetup(t)
	old := s.formula("tool", "1.0")
	next := s.formula("tool", "2.0")

	_, err := s.run("install", old)
	require.NoError(t, err)
	_, err = s.run("upgrade", "tool", next)
	require.NoError(t, err)

	out, err := s.run("list", "tool")
	require.NoError(t, err)
	assert.Equal(t, "* tool 2.0\n", out)

	_, err = s.run("switch", "tool@1.0")
	assert.True(t, errors.IsErrorCode(err, errors.ErrFormulaNotFound))
}

func TestUninstallSingleVersionWarnsAboutDefault(t *testing.T) {
	s := newCLISetup(t)
	_, err := s.run("install", s.formula("tool", "1.0"))
	require.NoError(t, err)
	_, err = s.run("install", s.formula("tool", "2.0"))
	require.NoError(t, err)

	out, err := s.run("uninstall", "tool@2.0")
	require.NoError(t, err)
	assert.Contains(t, out, "removed tool 2.0")
	assert.Contains(t, out, "warning: tool has no default version left")

	_, err = s.run("switch", "tool@1.0")
	require.NoError(t, err)
	out, err = s.run("verify", "tool")
	require.NoError(t, err)
	assert.Equal(t, "tool 1.0 installed\n", out)
}

func TestProjectInstallRecordsLock(t *testing.T) {
	s := newCLISetup(t)
	f := s.formula("tool", "1.0")
	projectDir := filepath.Join(s.base, "project")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "kegs.toml"), []byte("[dependencies]\n"), 0644))
	t.Chdir(projectDir)

	_, err := s.run("install", f)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(projectDir, ".kegs", "bin", "tool"))
	assert.NoFileExists(t, filepath.Join(s.root, "bin", "tool"))

	lock, err := os.ReadFile(filepath.Join(projectDir, "kegs.lock"))
	require.NoError(t, err)
	assert.Contains(t, string(lock), "name: tool")
	manifest, err := os.ReadFile(filepath.Join(projectDir, "kegs.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "tool")

	out, err := s.run("which", "--all", "tool")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(projectDir, ".kegs", "bin", "tool")+" (project)")

	// the manifest now declares tool, and its record is cached
	require.NoError(t, os.RemoveAll(filepath.Join(projectDir, ".kegs")))
	_, err = s.run("install")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(projectDir, ".kegs", "bin", "tool"))
}

func TestInfoFromCache(t *testing.T) {
	s := newCLISetup(t)
	_, err := s.run("info", s.formula("tool", "1.0"))
	require.NoError(t, err)

	out, err := s.run("--format", "json", "info", "tool")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "tool", got["name"])

	_, err = s.run("cache", "clear")
	require.NoError(t, err)
	_, err = s.run("info", "tool")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestFetch(t *testing.T) {
	s := newCLISetup(t)
	src := filepath.Join(s.base, "payload.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))
	sum := sha256.Sum256([]byte("payload"))
	dest := filepath.Join(s.base, "out", "payload.bin")

	_, err := s.run("fetch", "--sha256", hex.EncodeToString(sum[:]), src, dest)
	require.NoError(t, err)
	assert.FileExists(t, dest)

	bad := filepath.Join(s.base, "out", "bad.bin")
	_, err = s.run("fetch", "--sha256", "sha256:"+hex.EncodeToString(make([]byte, 32)), src, bad)
	assert.True(t, errors.IsErrorCode(err, errors.ErrChecksumMismatch))
	assert.NoFileExists(t, bad)
}

func TestInvalidInputs(t *testing.T) {
	s := newCLISetup(t)

	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{name: "unknown format", args: []string{"--format", "yaml", "list"}, code: errors.ErrInvalidInput},
		{name: "bad package name", args: []string{"list", "bad/name"}, code: errors.ErrInvalidInput},
		{name: "install outside a project without formula", args: []string{"install"}, code: errors.ErrInvalidInput},
		{name: "uninstall unknown package", args: []string{"uninstall", "nothing"}, code: errors.ErrFormulaNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err))
		})
	}
}

func TestCLI_GenConfig(t *testing.T) {
	s := newCLISetup(t)

	out, err := s.run("gen-config")
	require.NoError(t, err)
	assert.Contains(t, out, "[fetch]")

	// the config file passed with --config already exists
	_, err = s.run("gen-config", "-w")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	fresh := filepath.Join(s.base, "generated", "config.toml")
	cmd, _ := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--config", fresh, "gen-config", "-w"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), fresh)

	written, err := os.ReadFile(fresh)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))
}
