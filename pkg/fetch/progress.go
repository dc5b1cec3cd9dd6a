package fetch

import (
	"sync"

	"github.com/arthur-debert/kegs/pkg/types"
)

// reporter serializes events from concurrent streams and enforces the
// event contract: start first, non-decreasing progress, one terminal
// event, nothing after it.
type reporter struct {
	mu       sync.Mutex
	url      string
	observer types.FetchObserver
	total    int64
	current  int64
	emitted  int64
	started  bool
	finished bool
}

func newReporter(url string, observer types.FetchObserver) *reporter {
	if observer == nil {
		observer = types.NopFetchObserver
	}
	return &reporter{url: url, observer: observer, total: -1}
}

func (r *reporter) start(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startLocked(total)
}

func (r *reporter) startLocked(total int64) {
	if r.started {
		return
	}
	r.started = true
	r.total = total
	r.observer.OnFetchEvent(types.FetchEvent{Kind: types.FetchStart, URL: r.url, Total: total})
}

// add records n more bytes. Progress is only emitted when it exceeds the
// highest value already reported.
func (r *reporter) add(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || n <= 0 {
		return
	}
	r.current += n
	if r.current > r.emitted {
		r.emitted = r.current
		r.observer.OnFetchEvent(types.FetchEvent{
			Kind:        types.FetchProgress,
			URL:         r.url,
			Total:       r.total,
			Transferred: r.emitted,
		})
	}
}

// restart begins counting from zero again after a ranged transfer fell
// back to a sequential one.
func (r *reporter) restart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = 0
}

func (r *reporter) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.startLocked(r.total)
	r.finished = true
	r.observer.OnFetchEvent(types.FetchEvent{
		Kind:        types.FetchComplete,
		URL:         r.url,
		Total:       r.total,
		Transferred: r.emitted,
	})
}

func (r *reporter) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.startLocked(r.total)
	r.finished = true
	r.observer.OnFetchEvent(types.FetchEvent{
		Kind:        types.FetchFail,
		URL:         r.url,
		Total:       r.total,
		Transferred: r.emitted,
		Err:         err,
	})
}

// progressWriter counts bytes written through it
type progressWriter struct {
	r *reporter
}

func (w progressWriter) Write(p []byte) (int, error) {
	w.r.add(int64(len(p)))
	return len(p), nil
}
