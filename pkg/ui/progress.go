package ui

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/kegs/pkg/types"
)

// FetchObserver renders the events of one fetch. Terminals get a pterm
// progress bar, or a spinner while the size is unknown; text output gets
// a line at start and at the end. JSON output stays silent.
func (p *Printer) FetchObserver(title string) types.FetchObserver {
	return &fetchProgress{p: p, title: title}
}

type fetchProgress struct {
	p     *Printer
	title string

	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	spinner *pterm.SpinnerPrinter
	shown   int64
}

func (f *fetchProgress) OnFetchEvent(e types.FetchEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.p.format {
	case FormatJSON:
		return
	case FormatText:
		switch e.Kind {
		case types.FetchStart:
			f.p.Message("fetching %s", f.title)
		case types.FetchComplete:
			f.p.Message("fetched %s (%s)", f.title, humanBytes(e.Transferred))
		case types.FetchFail:
			f.p.Message("fetch of %s failed: %v", f.title, e.Err)
		}
		return
	}

	switch e.Kind {
	case types.FetchStart:
		f.start(e.Total)
	case types.FetchProgress:
		if f.bar != nil && e.Transferred > f.shown {
			f.bar.Add(int(e.Transferred - f.shown))
			f.shown = e.Transferred
		}
	case types.FetchComplete:
		f.stop(true, fmt.Sprintf("fetched %s (%s)", f.title, humanBytes(e.Transferred)))
	case types.FetchFail:
		f.stop(false, fmt.Sprintf("fetch of %s failed: %v", f.title, e.Err))
	}
}

func (f *fetchProgress) start(total int64) {
	if total > 0 {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(total)).
			WithTitle(f.title).
			WithShowCount(false).
			WithWriter(f.p.out).
			Start()
		if err == nil {
			f.bar = bar
			return
		}
	}
	spinner, err := pterm.DefaultSpinner.WithWriter(f.p.out).Start("fetching " + f.title)
	if err == nil {
		f.spinner = spinner
	}
}

func (f *fetchProgress) stop(ok bool, msg string) {
	if f.bar != nil {
		_, _ = f.bar.Stop()
		f.bar = nil
	}
	if f.spinner != nil {
		if ok {
			f.spinner.Success(msg)
		} else {
			f.spinner.Fail(msg)
		}
		f.spinner = nil
		return
	}
	if ok {
		f.p.Success("%s", msg)
	} else {
		_, _ = fmt.Fprintln(f.p.out, f.p.style("Error", msg))
	}
}

// PhaseObserver renders installer phases as one spinner whose text
// follows the current step on terminals, or one line per step in text
// output. JSON output stays silent.
func (p *Printer) PhaseObserver() types.PhaseObserver {
	return &phaseProgress{p: p}
}

type phaseProgress struct {
	p       *Printer
	spinner *pterm.SpinnerPrinter
}

func phaseText(e types.PhaseEvent) string {
	subject := e.Name + " " + e.Version
	switch e.Phase {
	case types.PhaseStart:
		return "installing " + subject
	case types.PhaseExtractStart:
		return "extracting " + subject
	case types.PhaseExtractUpdate:
		return fmt.Sprintf("extracting %s (%d entries)", subject, e.Current)
	case types.PhaseProcessStart:
		return "relocating " + subject
	case types.PhaseProcessUpdate:
		if e.Total > 0 {
			return fmt.Sprintf("relocating %s (%d/%d)", subject, e.Current, e.Total)
		}
		return "relocating " + subject
	case types.PhaseLinkStart, types.PhaseLinkUpdate:
		return "linking " + subject
	case types.PhaseComplete:
		return "installed " + subject
	default:
		return fmt.Sprintf("installing %s failed: %v", subject, e.Err)
	}
}

func (o *phaseProgress) OnPhaseEvent(e types.PhaseEvent) {
	switch o.p.format {
	case FormatJSON:
		return
	case FormatText:
		switch e.Phase {
		case types.PhaseExtractUpdate, types.PhaseProcessUpdate, types.PhaseLinkUpdate:
			return
		}
		o.p.Message("%s", phaseText(e))
		return
	}

	switch e.Phase {
	case types.PhaseStart:
		spinner, err := pterm.DefaultSpinner.WithWriter(o.p.out).Start(phaseText(e))
		if err == nil {
			o.spinner = spinner
		}
	case types.PhaseComplete:
		if o.spinner != nil {
			o.spinner.Success(phaseText(e))
			o.spinner = nil
			return
		}
		o.p.Success("%s", phaseText(e))
	case types.PhaseFail:
		if o.spinner != nil {
			o.spinner.Fail(phaseText(e))
			o.spinner = nil
		}
	default:
		if o.spinner != nil {
			o.spinner.UpdateText(phaseText(e))
		}
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
