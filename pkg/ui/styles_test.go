// pkg/ui/styles_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test loading the style registry

package ui_test

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/arthur-debert/kegs/pkg/ui"
)

func TestEmbeddedStylesCoverStates(t *testing.T) {
	for _, state := range []types.InstallationState{types.StateInstalled, types.StateCorrupted, types.StateNotInstalled} {
		assert.IsType(t, lipgloss.AdaptiveColor{}, ui.StatusStyle(state).GetForeground(), "state %s", state)
	}
	assert.True(t, ui.GetStyle("Header").GetBold())
}

func TestLoadStylesRejectsBadYAML(t *testing.T) {
	err := ui.LoadStyles([]byte("colors: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse styles")
}
