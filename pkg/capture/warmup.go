package capture

import (
	"gonum.org/v1/gonum/stat"
)

// WarmupStats aggregates probe-signal readings while a source warms up,
// so operators can see whether a camera is delivering usable frames and
// how steady its exposure is.
type WarmupStats struct {
	samples []float64
	max     int
}

// NewWarmupStats creates a stats window over the last n readings.
func NewWarmupStats(n int) *WarmupStats {
	return &WarmupStats{max: n}
}

// Observe folds one probe reading into the window.
func (w *WarmupStats) Observe(signal float64) {
	if len(w.samples) == w.max {
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, signal)
}

// Count returns the number of buffered readings.
func (w *WarmupStats) Count() int {
	return len(w.samples)
}

// Mean returns the mean probe signal over the window.
func (w *WarmupStats) Mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return stat.Mean(w.samples, nil)
}

// StdDev returns the probe signal spread over the window.
func (w *WarmupStats) StdDev() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	return stat.StdDev(w.samples, nil)
}

// Live reports whether the window shows a non-degenerate signal.
func (w *WarmupStats) Live() bool {
	return w.Count() > 0 && w.Mean() > 0
}
