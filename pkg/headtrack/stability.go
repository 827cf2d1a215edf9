package headtrack

// StabilityWindow is a fixed-capacity FIFO of recent head-diagonal
// measurements. Pose bootstrapping is deferred until the window is full
// and its values sit within a small tolerance band, so detector jitter
// during the coarse-to-fine handoff never seeds the estimator.
type StabilityWindow struct {
	capacity  int
	tolerance float64
	samples   []float64
}

// NewStabilityWindow creates a window holding capacity samples that is
// stable when max-min < tolerance.
func NewStabilityWindow(capacity int, tolerance float64) *StabilityWindow {
	return &StabilityWindow{
		capacity:  capacity,
		tolerance: tolerance,
		samples:   make([]float64, 0, capacity),
	}
}

// Push appends a sample, evicting the oldest if the window is full.
func (w *StabilityWindow) Push(value float64) {
	if len(w.samples) == w.capacity {
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, value)
}

// Stable reports whether the window is full and its span is within
// tolerance.
func (w *StabilityWindow) Stable() bool {
	if len(w.samples) < w.capacity {
		return false
	}
	min, max := w.samples[0], w.samples[0]
	for _, v := range w.samples[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max-min < w.tolerance
}

// Reset clears all samples.
func (w *StabilityWindow) Reset() {
	w.samples = w.samples[:0]
}

// Len returns the number of buffered samples.
func (w *StabilityWindow) Len() int {
	return len(w.samples)
}

// Values returns the buffered samples in arrival order.
func (w *StabilityWindow) Values() []float64 {
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}
