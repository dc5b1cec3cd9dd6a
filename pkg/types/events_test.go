// pkg/types/events_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test event helpers and installation status rendering

package types_test

import (
	"fmt"
	"testing"

	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestFetchEventIsTerminal(t *testing.T) {
	tests := []struct {
		kind     types.FetchEventKind
		terminal bool
	}{
		{types.FetchStart, false},
		{types.FetchProgress, false},
		{types.FetchComplete, true},
		{types.FetchFail, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.terminal, types.FetchEvent{Kind: tt.kind}.IsTerminal())
		})
	}
}

func TestPhaseEventString(t *testing.T) {
	assert.Equal(t, "extractUpdate tool@1.0 3/10 gzip",
		types.PhaseEvent{Phase: types.PhaseExtractUpdate, Name: "tool", Version: "1.0", Current: 3, Total: 10, Detail: "gzip"}.String())
	assert.Equal(t, "fail tool@1.0: boom",
		types.PhaseEvent{Phase: types.PhaseFail, Name: "tool", Version: "1.0", Err: fmt.Errorf("boom")}.String())
}

func TestPhaseRecorderAndChannel(t *testing.T) {
	rec := &types.PhaseRecorder{}
	ch := make(chan types.PhaseEvent, 2)

	for _, obs := range []types.PhaseObserver{rec, types.PhaseChannel(ch)} {
		obs.OnPhaseEvent(types.PhaseEvent{Phase: types.PhaseStart})
		obs.OnPhaseEvent(types.PhaseEvent{Phase: types.PhaseComplete})
	}

	assert.Equal(t, []types.Phase{types.PhaseStart, types.PhaseComplete}, rec.Phases())
	assert.Equal(t, types.PhaseStart, (<-ch).Phase)
	assert.Equal(t, types.PhaseComplete, (<-ch).Phase)
}

func TestInstallationStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    types.InstallationStatus
		installed bool
		rendered  string
	}{
		{"installed", types.StatusInstalled(), true, "installed"},
		{"not installed", types.StatusNotInstalled(), false, "notInstalled"},
		{"corrupted", types.StatusCorrupted("dangling link bin/tool"), false, "corrupted(dangling link bin/tool)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.installed, tt.status.IsInstalled())
			assert.Equal(t, tt.rendered, tt.status.String())
		})
	}
}

func TestInstalledPackageString(t *testing.T) {
	assert.Equal(t, "wget@1.24.5", types.InstalledPackage{Name: "wget", Version: "1.24.5"}.String())
}
