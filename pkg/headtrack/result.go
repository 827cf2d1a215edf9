package headtrack

import "math"

// Mode identifies which pipeline stage produced a detection result.
type Mode int

const (
	// ModeWhitebalance means the tracker is still settling its color
	// calibration and produced no detection.
	ModeWhitebalance Mode = iota
	// ModeCoarse means the result came from the full-frame face search.
	ModeCoarse
	// ModeFine means the result came from the continuous fine tracker.
	ModeFine
)

func (m Mode) String() string {
	switch m {
	case ModeWhitebalance:
		return "whitebalance"
	case ModeCoarse:
		return "coarse"
	case ModeFine:
		return "fine"
	default:
		return "unknown"
	}
}

// Result is one per-frame tracking result from the detector/tracker
// collaborator. Confidence 0 means the frame contributed no evidence;
// a fine result with zero width or height means the lock was lost.
type Result struct {
	Mode       Mode
	Confidence float64

	// Bounding region in source-frame pixels. Only valid when
	// Confidence > 0.
	X, Y          float64
	Width, Height float64

	// In-plane rotation in radians. Meaningful only in ModeFine and
	// only when the tracker was spawned with angle computation on.
	Angle float64
}

// Lost reports whether a fine result signals a lost lock.
func (r Result) Lost() bool {
	return r.Width == 0 || r.Height == 0
}

// Diagonal returns the diagonal magnitude of the bounding region.
func (r Result) Diagonal() float64 {
	return math.Sqrt(r.Width*r.Width + r.Height*r.Height)
}

// Midpoint returns the center of the bounding region.
func (r Result) Midpoint() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Sample is the positional payload handed to the smoother and the pose
// estimator.
type Sample struct {
	X, Y          float64
	Width, Height float64
	Angle         float64
}

// Sample extracts the positional fields of the result.
func (r Result) Sample() Sample {
	return Sample{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Angle: r.Angle}
}

// Diagonal returns the diagonal magnitude of the sample region.
func (s Sample) Diagonal() float64 {
	return math.Sqrt(s.Width*s.Width + s.Height*s.Height)
}
