// pkg/ui/progress_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test fetch and phase observers in non-interactive formats

package ui_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/arthur-debert/kegs/pkg/ui"
)

func TestFetchObserverText(t *testing.T) {
	var buf bytes.Buffer
	obs := ui.NewPrinter(ui.FormatText, &buf).FetchObserver("tool 1.0")

	obs.OnFetchEvent(types.FetchEvent{Kind: types.FetchStart, Total: 4096})
	obs.OnFetchEvent(types.FetchEvent{Kind: types.FetchProgress, Total: 4096, Transferred: 1024})
	obs.OnFetchEvent(types.FetchEvent{Kind: types.FetchComplete, Total: 4096, Transferred: 4096})

	assert.Equal(t, "fetching tool 1.0\nfetched tool 1.0 (4.0 KiB)\n", buf.String())
}

func TestFetchObserverTextFailure(t *testing.T) {
	var buf bytes.Buffer
	obs := ui.NewPrinter(ui.FormatText, &buf).FetchObserver("tool 1.0")

	obs.OnFetchEvent(types.FetchEvent{Kind: types.FetchStart, Total: -1})
	obs.OnFetchEvent(types.FetchEvent{Kind: types.FetchFail, Err: fmt.Errorf("connection reset")})

	assert.Equal(t, "fetching tool 1.0\nfetch of tool 1.0 failed: connection reset\n", buf.String())
}

func TestPhaseObserverText(t *testing.T) {
	var buf bytes.Buffer
	obs := ui.NewPrinter(ui.FormatText, &buf).PhaseObserver()

	for _, phase := range []types.Phase{
		types.PhaseStart,
		types.PhaseExtractStart, types.PhaseExtractUpdate,
		types.PhaseProcessStart, types.PhaseProcessUpdate,
		types.PhaseLinkStart, types.PhaseLinkUpdate,
		types.PhaseComplete,
	} {
		obs.OnPhaseEvent(types.PhaseEvent{Phase: phase, Name: "tool", Version: "1.0"})
	}

	assert.Equal(t,
		"installing tool 1.0\nextracting tool 1.0\nrelocating tool 1.0\nlinking tool 1.0\ninstalled tool 1.0\n",
		buf.String())
}

func TestObserversSilentInJSON(t *testing.T) {
	var buf bytes.Buffer
	p := ui.NewPrinter(ui.FormatJSON, &buf)

	p.FetchObserver("tool").OnFetchEvent(types.FetchEvent{Kind: types.FetchStart})
	p.PhaseObserver().OnPhaseEvent(types.PhaseEvent{Phase: types.PhaseStart, Name: "tool", Version: "1.0"})

	assert.Empty(t, buf.String())
}
