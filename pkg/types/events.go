package types

import "fmt"

// FetchEventKind is the kind of a fetch event
type FetchEventKind string

const (
	FetchStart    FetchEventKind = "start"
	FetchProgress FetchEventKind = "progress"
	FetchComplete FetchEventKind = "complete"
	FetchFail     FetchEventKind = "fail"
)

// FetchEvent is emitted by the archive fetcher. A fetch produces exactly
// one start event, then progress events with non-decreasing Transferred,
// then exactly one complete or fail event.
type FetchEvent struct {
	Kind        FetchEventKind
	URL         string
	Total       int64 // -1 when unknown
	Transferred int64
	Err         error
}

// IsTerminal reports whether no further events follow this one
func (e FetchEvent) IsTerminal() bool {
	return e.Kind == FetchComplete || e.Kind == FetchFail
}

// FetchObserver receives fetch events in order. Calls are serialized.
type FetchObserver interface {
	OnFetchEvent(FetchEvent)
}

// FetchObserverFunc adapts a function to FetchObserver
type FetchObserverFunc func(FetchEvent)

func (f FetchObserverFunc) OnFetchEvent(e FetchEvent) { f(e) }

// NopFetchObserver discards all events
var NopFetchObserver FetchObserver = FetchObserverFunc(func(FetchEvent) {})

// FetchChannel delivers fetch events into a channel. The channel is never
// closed by the sender; the terminal event marks the end of a stream.
type FetchChannel chan<- FetchEvent

func (c FetchChannel) OnFetchEvent(e FetchEvent) { c <- e }

// Phase is a step of an installer operation
type Phase string

const (
	PhaseStart         Phase = "start"
	PhaseExtractStart  Phase = "extractStart"
	PhaseExtractUpdate Phase = "extractUpdate"
	PhaseProcessStart  Phase = "processStart"
	PhaseProcessUpdate Phase = "processUpdate"
	PhaseLinkStart     Phase = "linkStart"
	PhaseLinkUpdate    Phase = "linkUpdate"
	PhaseComplete      Phase = "complete"
	PhaseFail          Phase = "fail"
)

// PhaseEvent is emitted by the installer. Phases occur in the order of the
// constants above; a fail event ends the stream early.
type PhaseEvent struct {
	Phase   Phase
	Name    string
	Version string
	Current int
	Total   int
	Detail  string
	Err     error
}

func (e PhaseEvent) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s@%s: %v", e.Phase, e.Name, e.Version, e.Err)
	}
	if e.Total > 0 {
		return fmt.Sprintf("%s %s@%s %d/%d %s", e.Phase, e.Name, e.Version, e.Current, e.Total, e.Detail)
	}
	return fmt.Sprintf("%s %s@%s %s", e.Phase, e.Name, e.Version, e.Detail)
}

// PhaseObserver receives installer phase events in order
type PhaseObserver interface {
	OnPhaseEvent(PhaseEvent)
}

// PhaseObserverFunc adapts a function to PhaseObserver
type PhaseObserverFunc func(PhaseEvent)

func (f PhaseObserverFunc) OnPhaseEvent(e PhaseEvent) { f(e) }

// NopPhaseObserver discards all events
var NopPhaseObserver PhaseObserver = PhaseObserverFunc(func(PhaseEvent) {})

// PhaseChannel delivers phase events into a channel
type PhaseChannel chan<- PhaseEvent

func (c PhaseChannel) OnPhaseEvent(e PhaseEvent) { c <- e }

// PhaseRecorder collects phase events, mostly for tests and receipts
type PhaseRecorder struct {
	Events []PhaseEvent
}

func (r *PhaseRecorder) OnPhaseEvent(e PhaseEvent) {
	r.Events = append(r.Events, e)
}

// Phases returns the recorded phases in order
func (r *PhaseRecorder) Phases() []Phase {
	phases := make([]Phase, 0, len(r.Events))
	for _, e := range r.Events {
		phases = append(phases, e.Phase)
	}
	return phases
}
