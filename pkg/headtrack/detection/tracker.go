// Package detection implements the coarse-detector/fine-tracker
// collaborator consumed by headtrack sessions: Haar-cascade face search
// for acquisition and HSV-histogram CAMShift for continuous tracking,
// with an optional whitebalance settling phase in front.
package detection

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/visionkit/go-headtrack/pkg/debug"
	"github.com/visionkit/go-headtrack/pkg/headtrack"
)

// Source supplies decoded frames to a tracker. pkg/capture devices
// satisfy it.
type Source interface {
	Bounds() (width, height int)
	ProbeSignal() float64

	// Read fills mat with the current frame and reports success.
	Read(mat *gocv.Mat) bool
}

// Config holds detector parameters shared by every spawned tracker.
type Config struct {
	CascadePath string  // Haar cascade XML for the coarse search
	MinNeighbor int     // Cascade strictness (higher = fewer false faces)
	MinFaceFrac float64 // Smallest face as a fraction of frame width
}

// DefaultConfig returns production defaults for frontal-face tracking.
func DefaultConfig() Config {
	return Config{
		CascadePath: "models/haarcascade_frontalface_default.xml",
		MinNeighbor: 4,
		MinFaceFrac: 0.1,
	}
}

// stage is the tracker's internal pipeline stage.
type stage int

const (
	stageWhitebalance stage = iota
	stageDetect
	stageTrack
)

// Tracker is one spawned detector/tracker instance. It is not safe for
// concurrent use; sessions drive it from a single poll goroutine.
type Tracker struct {
	src  Source
	cfg  Config
	opts headtrack.TrackerOptions

	stage    stage
	cascade  gocv.CascadeClassifier
	frame    gocv.Mat
	hsv      gocv.Mat
	mask     gocv.Mat
	hist     gocv.Mat
	backProj gocv.Mat

	wb     *whitebalance
	window image.Rectangle
	result headtrack.Result
	closed bool
}

// New spawns a tracker against the source. With opts.Whitebalance off
// the tracker starts directly in the coarse-detection stage.
func New(src Source, cfg Config, opts headtrack.TrackerOptions) (*Tracker, error) {
	if _, err := os.Stat(cfg.CascadePath); err != nil {
		return nil, fmt.Errorf("cascade file: %w", err)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cfg.CascadePath) {
		cascade.Close()
		return nil, fmt.Errorf("loading cascade %s failed", cfg.CascadePath)
	}

	t := &Tracker{
		src:      src,
		cfg:      cfg,
		opts:     opts,
		cascade:  cascade,
		frame:    gocv.NewMat(),
		hsv:      gocv.NewMat(),
		mask:     gocv.NewMat(),
		hist:     gocv.NewMat(),
		backProj: gocv.NewMat(),
	}
	if opts.Whitebalance {
		t.stage = stageWhitebalance
		t.wb = newWhitebalance()
	} else {
		t.stage = stageDetect
	}
	return t, nil
}

// Factory adapts a source and config into the session's TrackerFactory.
func Factory(src Source, cfg Config) headtrack.TrackerFactory {
	return func(_ headtrack.FrameSource, opts headtrack.TrackerOptions) (headtrack.FaceTracker, error) {
		return New(src, cfg, opts)
	}
}

// Advance consumes one frame and refreshes the tracker's result.
func (t *Tracker) Advance() error {
	if t.closed {
		return fmt.Errorf("tracker is closed")
	}
	if !t.src.Read(&t.frame) || t.frame.Empty() {
		return fmt.Errorf("reading frame")
	}

	switch t.stage {
	case stageWhitebalance:
		t.advanceWhitebalance()
	case stageDetect:
		t.advanceDetect()
	case stageTrack:
		t.advanceTrack()
	}
	return nil
}

// Result returns the result of the last Advance.
func (t *Tracker) Result() headtrack.Result {
	return t.result
}

// Close releases the tracker's OpenCV resources.
func (t *Tracker) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.cascade.Close()
	t.frame.Close()
	t.hsv.Close()
	t.mask.Close()
	t.hist.Close()
	t.backProj.Close()
	return nil
}

func (t *Tracker) advanceWhitebalance() {
	t.result = headtrack.Result{Mode: headtrack.ModeWhitebalance}
	if t.wb.observe(t.frame) {
		debug.FrameLog("whitebalance settled after %d frames\n", t.wb.frames)
		t.stage = stageDetect
	}
}

func (t *Tracker) advanceDetect() {
	minSide := int(float64(t.frame.Cols()) * t.cfg.MinFaceFrac)
	rects := t.cascade.DetectMultiScaleWithParams(
		t.frame,
		1.1,
		t.cfg.MinNeighbor,
		0,
		image.Pt(minSide, minSide),
		image.Pt(0, 0),
	)

	if len(rects) == 0 {
		t.result = headtrack.Result{Mode: headtrack.ModeCoarse, Confidence: 0}
		return
	}

	face := largestRect(rects)
	debug.FrameLog("cascade hit %v\n", face)
	t.result = headtrack.Result{
		Mode:       headtrack.ModeCoarse,
		Confidence: 1,
		X:          float64(face.Min.X),
		Y:          float64(face.Min.Y),
		Width:      float64(face.Dx()),
		Height:     float64(face.Dy()),
	}

	// Seed the fine tracker from the detected region.
	if err := t.seedCamshift(face); err != nil {
		debug.FrameLog("camshift seed failed: %v\n", err)
		return
	}
	t.window = face
	t.stage = stageTrack
}

func (t *Tracker) advanceTrack() {
	rot, window, ok := t.trackCamshift()
	if !ok {
		// Degenerate window is the designated lost signal.
		t.result = headtrack.Result{Mode: headtrack.ModeFine, Confidence: 1}
		return
	}
	t.window = window

	r := headtrack.Result{
		Mode:       headtrack.ModeFine,
		Confidence: 1,
		X:          float64(window.Min.X),
		Y:          float64(window.Min.Y),
		Width:      float64(window.Dx()),
		Height:     float64(window.Dy()),
	}
	if t.opts.ComputeAngles {
		r.Angle = rot
	}
	t.result = r
}

func largestRect(rects []image.Rectangle) image.Rectangle {
	best := rects[0]
	for _, r := range rects[1:] {
		if r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best = r
		}
	}
	return best
}
