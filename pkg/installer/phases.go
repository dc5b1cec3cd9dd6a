package installer

import "github.com/arthur-debert/kegs/pkg/types"

// emitter delivers the phase events of one operation. Nothing is
// delivered after complete or fail.
type emitter struct {
	observer types.PhaseObserver
	name     string
	version  string
	done     bool
}

func newEmitter(observer types.PhaseObserver, name, version string) *emitter {
	if observer == nil {
		observer = types.NopPhaseObserver
	}
	return &emitter{observer: observer, name: name, version: version}
}

func (e *emitter) emit(phase types.Phase, current, total int, detail string) {
	if e.done {
		return
	}
	e.observer.OnPhaseEvent(types.PhaseEvent{
		Phase:   phase,
		Name:    e.name,
		Version: e.version,
		Current: current,
		Total:   total,
		Detail:  detail,
	})
}

func (e *emitter) complete() {
	e.emit(types.PhaseComplete, 0, 0, "")
	e.done = true
}

func (e *emitter) fail(err error) {
	if e.done {
		return
	}
	e.observer.OnPhaseEvent(types.PhaseEvent{
		Phase:   types.PhaseFail,
		Name:    e.name,
		Version: e.version,
		Err:     err,
	})
	e.done = true
}
