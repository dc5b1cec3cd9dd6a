// pkg/ui/printer_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test printer output in text and JSON formats

package ui_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/arthur-debert/kegs/pkg/ui"
)

func TestPrinterStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   types.InstallationStatus
		expected string
	}{
		{name: "installed", status: types.StatusInstalled(), expected: "tool 1.0 installed\n"},
		{name: "not installed", status: types.StatusNotInstalled(), expected: "tool 1.0 notInstalled\n"},
		{name: "corrupted with reason", status: types.StatusCorrupted("dangling link bin/tool"), expected: "tool 1.0 corrupted (dangling link bin/tool)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := ui.NewPrinter(ui.FormatText, &buf)
			require.NoError(t, p.Status("tool", "1.0", tt.status))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestPrinterStatusJSON(t *testing.T) {
	var buf bytes.Buffer
	p := ui.NewPrinter(ui.FormatJSON, &buf)
	require.NoError(t, p.Status("tool", "1.0", types.StatusCorrupted("missing binary bin/tool")))

	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]string{
		"name":    "tool",
		"version": "1.0",
		"state":   "corrupted",
		"reason":  "missing binary bin/tool",
	}, got)
}

func TestPrinterPackagesMarksDefault(t *testing.T) {
	pkgs := []types.InstalledPackage{
		{Name: "tool", Version: "1.0", Path: "/r/Cellar/tool/1.0"},
		{Name: "tool", Version: "2.0", Path: "/r/Cellar/tool/2.0"},
	}

	var buf bytes.Buffer
	p := ui.NewPrinter(ui.FormatText, &buf)
	require.NoError(t, p.Packages(pkgs, map[string]string{"tool": "2.0"}))
	assert.Equal(t, "  tool 1.0\n* tool 2.0\n", buf.String())

	buf.Reset()
	p = ui.NewPrinter(ui.FormatJSON, &buf)
	require.NoError(t, p.Packages(pkgs, map[string]string{"tool": "2.0"}))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, false, got[0]["default"])
	assert.Equal(t, true, got[1]["default"])
}

func TestPrinterError(t *testing.T) {
	err := errors.AlreadyInstalled("tool", "1.0")

	t.Run("text lists sorted details", func(t *testing.T) {
		var buf bytes.Buffer
		ui.NewPrinter(ui.FormatText, &buf).Error(err)
		assert.Equal(t,
			"error: [ALREADY_INSTALLED] tool 1.0 is already installed\n  name: tool\n  version: 1.0\n",
			buf.String())
	})

	t.Run("json carries the code", func(t *testing.T) {
		var buf bytes.Buffer
		ui.NewPrinter(ui.FormatJSON, &buf).Error(err)
		var got struct {
			Error struct {
				Code    string         `json:"code"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "ALREADY_INSTALLED", got.Error.Code)
		assert.Equal(t, "tool", got.Error.Details["name"])
	})
}

func TestPrinterMessagesSilentInJSON(t *testing.T) {
	var buf bytes.Buffer
	p := ui.NewPrinter(ui.FormatJSON, &buf)
	p.Message("hello %s", "world")
	p.Success("done")
	p.Warning("careful")
	assert.Empty(t, buf.String())

	p = ui.NewPrinter(ui.FormatText, &buf)
	p.Warning("link %s is owned elsewhere", "bin/tool")
	assert.Equal(t, "warning: link bin/tool is owned elsewhere\n", buf.String())
}

func TestPrinterCandidates(t *testing.T) {
	candidates := []paths.Candidate{
		{Path: "/p/.kegs/bin/tool", Source: paths.SourceProject, Root: "/p/.kegs"},
		{Path: "/usr/bin/tool", Source: paths.SourceSystem},
	}

	var buf bytes.Buffer
	require.NoError(t, ui.NewPrinter(ui.FormatText, &buf).Candidates(candidates))
	assert.Equal(t, "/p/.kegs/bin/tool (project)\n/usr/bin/tool (system)\n", buf.String())
}
