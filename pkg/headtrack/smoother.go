package headtrack

import (
	"math"
	"time"
)

// ExpSmoother is a one-pole exponential smoother over the positional
// fields of a measurement. The effective per-sample weight is derived
// from the decay factor and the time window so the response stays
// consistent across poll cadences.
type ExpSmoother struct {
	alpha  float64
	state  Sample
	primed bool
}

// NewExpSmoother builds the default smoother. decay is the fraction of
// the old state remaining after one window has elapsed; window is the
// smoothing horizon in wall time (per-sample spacing is assumed to be
// the session's poll interval).
func NewExpSmoother(decay float64, window time.Duration) Smoother {
	if decay <= 0 || decay >= 1 {
		decay = 0.35
	}
	if window <= 0 {
		window = 35 * time.Millisecond
	}
	// One sample per poll interval; window/poll samples per window.
	// alpha chosen so decay^(1) of the old state survives a window.
	samples := float64(window) / float64(20*time.Millisecond)
	if samples < 1 {
		samples = 1
	}
	alpha := 1 - math.Pow(decay, 1/samples)
	return &ExpSmoother{alpha: alpha}
}

// Primed reports whether the smoother has consumed its first sample.
func (e *ExpSmoother) Primed() bool {
	return e.primed
}

// Init seeds the smoother with its first sample.
func (e *ExpSmoother) Init(sample Sample) {
	e.state = sample
	e.primed = true
}

// Apply filters a sample and returns the smoothed value. Applying the
// initializing sample returns it unchanged.
func (e *ExpSmoother) Apply(sample Sample) Sample {
	if !e.primed {
		e.Init(sample)
		return e.state
	}
	a := e.alpha
	e.state = Sample{
		X:      a*sample.X + (1-a)*e.state.X,
		Y:      a*sample.Y + (1-a)*e.state.Y,
		Width:  a*sample.Width + (1-a)*e.state.Width,
		Height: a*sample.Height + (1-a)*e.state.Height,
		Angle:  a*sample.Angle + (1-a)*e.state.Angle,
	}
	return e.state
}
