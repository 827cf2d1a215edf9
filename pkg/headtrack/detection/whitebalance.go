package detection

import (
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Whitebalance settling: the camera's auto-exposure and color gains
// drift for the first frames after open. Detection starts only once the
// frame's mean channel values hold still over a short window.
const (
	wbWindow    = 5
	wbMaxStddev = 2.0
	wbMaxFrames = 150 // give up settling after ~3s at 50Hz and detect anyway
)

type whitebalance struct {
	frames int
	means  []float64
}

func newWhitebalance() *whitebalance {
	return &whitebalance{means: make([]float64, 0, wbWindow)}
}

// observe folds one frame into the settling window and reports whether
// the camera has settled.
func (w *whitebalance) observe(frame gocv.Mat) bool {
	w.frames++

	mean := frame.Mean()
	brightness := (mean.Val1 + mean.Val2 + mean.Val3) / 3

	if len(w.means) == wbWindow {
		w.means = w.means[1:]
	}
	w.means = append(w.means, brightness)

	if w.frames >= wbMaxFrames {
		return true
	}
	if len(w.means) < wbWindow {
		return false
	}
	return stat.StdDev(w.means, nil) < wbMaxStddev
}
