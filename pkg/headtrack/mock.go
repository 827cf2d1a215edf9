package headtrack

import (
	"sync"
)

// MockSource is a frame source for testing and offline replay.
type MockSource struct {
	W, H int

	// Signal returned by ProbeSignal. Guarded so tests can flip it
	// while a readiness gate is probing.
	mu     sync.Mutex
	signal float64
}

// NewMockSource creates a mock source that is immediately ready.
func NewMockSource(w, h int) *MockSource {
	return &MockSource{W: w, H: h, signal: 1}
}

// Bounds returns the configured dimensions.
func (m *MockSource) Bounds() (int, int) { return m.W, m.H }

// ProbeSignal returns the configured signal level.
func (m *MockSource) ProbeSignal() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signal
}

// SetSignal changes the probe signal level.
func (m *MockSource) SetSignal(v float64) {
	m.mu.Lock()
	m.signal = v
	m.mu.Unlock()
}

// ScriptedTracker replays a fixed sequence of results, one per Advance.
// Past the end of the script it repeats the final result. It records
// the options it was spawned with so tests can assert on respawn
// behavior.
type ScriptedTracker struct {
	Opts    TrackerOptions
	Results []Result

	mu       sync.Mutex
	pos      int
	advanced int
	closed   bool
}

// Advance moves to the next scripted result. The first Advance lands on
// the first entry.
func (t *ScriptedTracker) Advance() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.advanced > 0 && t.pos < len(t.Results)-1 {
		t.pos++
	}
	t.advanced++
	return nil
}

// Result returns the current scripted result.
func (t *ScriptedTracker) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Results) == 0 {
		return Result{}
	}
	return t.Results[t.pos]
}

// Close marks the tracker closed.
func (t *ScriptedTracker) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (t *ScriptedTracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Advanced returns how many frames were consumed.
func (t *ScriptedTracker) Advanced() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.advanced
}

// RecordSink is a StatusSink that remembers every emission.
type RecordSink struct {
	mu       sync.Mutex
	statuses []Status
}

// Emit records the status.
func (r *RecordSink) Emit(status Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
}

// Statuses returns the emissions in order.
func (r *RecordSink) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Count returns how many times status was emitted.
func (r *RecordSink) Count(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.statuses {
		if s == status {
			n++
		}
	}
	return n
}
