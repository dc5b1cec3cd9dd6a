// pkg/types/formula_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test formula validation, bottle preference and dependency filtering

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/kegs/pkg/types"
)

func TestFormulaValidate(t *testing.T) {
	tests := []struct {
		name    string
		formula *types.Formula
		wantErr bool
	}{
		{"valid", &types.Formula{Name: "wget", Version: "1.24.5"}, false},
		{"nil", nil, true},
		{"empty name", &types.Formula{Version: "1"}, true},
		{"empty version", &types.Formula{Name: "wget"}, true},
		{"bad name", &types.Formula{Name: "w/get", Version: "1"}, true},
		{"version with slash", &types.Formula{Name: "wget", Version: "../1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.formula.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPkgVersion(t *testing.T) {
	assert.Equal(t, "1.24.5", (&types.Formula{Version: "1.24.5"}).PkgVersion())
	assert.Equal(t, "1.24.5_2", (&types.Formula{Version: "1.24.5", Revision: 2}).PkgVersion())
}

func TestPreferredBottle(t *testing.T) {
	f := &types.Formula{
		Name:    "jq",
		Version: "1.7.1",
		Bottles: []types.Bottle{
			{Digest: "sha256:aa", PlatformTag: "arm64_ventura"},
			{Digest: "sha256:bb", PlatformTag: "arm64_sonoma"},
			{Digest: "sha256:cc", PlatformTag: "x86_64_linux"},
		},
	}

	t.Run("highest ranked compatible tag wins", func(t *testing.T) {
		b, ok := f.PreferredBottle([]string{"arm64_sonoma", "arm64_ventura"})
		require.True(t, ok)
		assert.Equal(t, "sha256:bb", b.Digest)
	})

	t.Run("falls back to older compatible tag", func(t *testing.T) {
		b, ok := f.PreferredBottle([]string{"arm64_sequoia", "arm64_ventura"})
		require.True(t, ok)
		assert.Equal(t, "arm64_ventura", b.PlatformTag)
	})

	t.Run("no compatible bottle", func(t *testing.T) {
		_, ok := f.PreferredBottle([]string{"x86_64_sonoma"})
		assert.False(t, ok)
	})

	t.Run("all tag ranks last", func(t *testing.T) {
		g := &types.Formula{Bottles: []types.Bottle{
			{Digest: "sha256:all", PlatformTag: "all"},
			{Digest: "sha256:x", PlatformTag: "x86_64_linux"},
		}}
		b, ok := g.PreferredBottle([]string{"x86_64_linux"})
		require.True(t, ok)
		assert.Equal(t, "sha256:x", b.Digest)

		b, ok = g.PreferredBottle([]string{"arm64_linux"})
		require.True(t, ok)
		assert.Equal(t, "sha256:all", b.Digest)
	})
}

func TestRuntimeDependencies(t *testing.T) {
	f := &types.Formula{Dependencies: []types.Dependency{
		{Name: "openssl@3", Kind: types.DependencyRequired},
		{Name: "pkgconf", Kind: types.DependencyBuild},
		{Name: "libidn2", Kind: types.DependencyRecommended},
		{Name: "gpgme", Kind: types.DependencyOptional},
	}}
	deps := f.RuntimeDependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, "openssl@3", deps[0].Name)
	assert.Equal(t, "libidn2", deps[1].Name)
}

func TestParseDependencyKind(t *testing.T) {
	k, err := types.ParseDependencyKind("")
	require.NoError(t, err)
	assert.Equal(t, types.DependencyRequired, k)

	k, err = types.ParseDependencyKind("Build")
	require.NoError(t, err)
	assert.Equal(t, types.DependencyBuild, k)

	_, err = types.ParseDependencyKind("test")
	assert.Error(t, err)
}

func TestInstallationStatusString(t *testing.T) {
	assert.Equal(t, "installed", types.StatusInstalled().String())
	assert.Equal(t, "corrupted(missing link bin/wget)", types.StatusCorrupted("missing link bin/wget").String())
	assert.False(t, types.StatusNotInstalled().IsInstalled())
}

func TestPhaseRecorder(t *testing.T) {
	var r types.PhaseRecorder
	r.OnPhaseEvent(types.PhaseEvent{Phase: types.PhaseStart})
	r.OnPhaseEvent(types.PhaseEvent{Phase: types.PhaseComplete})
	assert.Equal(t, []types.Phase{types.PhaseStart, types.PhaseComplete}, r.Phases())
}
