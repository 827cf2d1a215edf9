// Package headtrack coordinates a per-frame head tracking pipeline: coarse
// detection, fine tracking, measurement smoothing and lazy head-pose
// bootstrapping, sequenced on a fixed polling cadence.
package headtrack

import (
	"context"
	"sync"
	"time"

	"github.com/visionkit/go-headtrack/internal/log"
)

// FrameSource is the video input a session tracks against.
type FrameSource interface {
	// Bounds returns the frame dimensions in pixels.
	Bounds() (width, height int)

	// ProbeSignal returns an aggregate brightness measure for the
	// current frame. Zero means the source is not yet delivering
	// usable frames.
	ProbeSignal() float64
}

// TrackerOptions configures a spawned detector/tracker.
type TrackerOptions struct {
	Debug         bool // Emit per-frame diagnostics
	ComputeAngles bool // Report in-plane rotation with fine results
	Whitebalance  bool // Run the whitebalance settling phase before detecting
}

// FaceTracker is the polymorphic coarse-detector/fine-tracker collaborator.
// Advance consumes one frame; Result returns what it produced.
type FaceTracker interface {
	Advance() error
	Result() Result
	Close() error
}

// TrackerFactory spawns a fresh tracker against a frame source. The
// session calls it once at start and again after every lost lock when
// retry-on-loss is enabled.
type TrackerFactory func(src FrameSource, opts TrackerOptions) (FaceTracker, error)

// Smoother filters raw measurements before they reach the pose estimator.
type Smoother interface {
	Primed() bool
	Init(sample Sample)
	Apply(sample Sample) Sample
}

// SmootherFactory builds a smoother from a decay factor and time window.
type SmootherFactory func(decay float64, window time.Duration) Smoother

// Position is a head position estimate in centimeters relative to the
// camera.
type Position struct {
	X, Y, Z float64
}

// PoseOptions configures a pose estimator at bootstrap time.
type PoseOptions struct {
	FOV          float64 // Horizontal field of view in radians (0 = estimate)
	CameraOffset float64 // Vertical camera-to-screen offset in cm
}

// PoseEstimator converts stabilized measurements into head positions.
type PoseEstimator interface {
	FOV() float64
	Update(sample Sample) Position
}

// PoseFactory builds a pose estimator from the bootstrap measurement and
// the frame dimensions.
type PoseFactory func(initial Sample, frameWidth, frameHeight int, opts PoseOptions) PoseEstimator

// DebugRenderTarget receives draw requests for the current detection.
// Purely observational; the session never reads it back.
type DebugRenderTarget interface {
	DrawRect(x, y, width, height float64)
	DrawRotatedRect(x, y, width, height, angle float64)
}

// Phase is the lifecycle phase of a session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseReady
	PhaseRunning
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseReady:
		return "ready"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session is a tracking session controller. All state is owned by one
// struct and mutated only under its mutex, by the poll goroutine or by
// Stop. Stopped is terminal; build a new session to resume.
type Session struct {
	cfg Config

	mu     sync.Mutex
	phase  Phase
	src    FrameSource
	width  int
	height int

	tracker  FaceTracker
	smoother Smoother
	window   *StabilityWindow
	pose     PoseEstimator

	// Lock bookkeeping, reset whenever a fresh tracker is spawned
	faceFound      bool
	coarseSeen     bool
	smoothPrimed   bool
	detectionStart time.Time

	// Calibration survives retries for the session's lifetime
	fov    float64
	fovSet bool

	lastStatus   Status
	lastMidX     float64
	lastMidY     float64
	hasMidpoint  bool
	lastPosition Position
	hasPosition  bool

	cancel func()
	done   chan struct{}
}

// New creates a session in the uninitialized phase.
func New(cfg Config) *Session {
	if cfg.NewSmoother == nil {
		cfg.NewSmoother = NewExpSmoother
	}
	if cfg.NewPose == nil {
		cfg.NewPose = NewPoseEstimator
	}
	return &Session{cfg: cfg}
}

// Init binds the frame source and allocates the smoother. It fails with
// ErrNotReady if the source has no drawable surface, and leaves the
// session uninitialized on any failure.
func (s *Session) Init(src FrameSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseUninitialized {
		return ErrInitialized
	}
	if s.cfg.Spawn == nil {
		return ErrNoTracker
	}
	if src == nil {
		return ErrNotReady
	}
	w, h := src.Bounds()
	if w <= 0 || h <= 0 {
		return ErrNotReady
	}

	s.src = src
	s.width = w
	s.height = h
	s.smoother = s.cfg.NewSmoother(s.cfg.SmoothingDecay, s.cfg.smootherWindow())
	s.window = NewStabilityWindow(s.cfg.StabilityCapacity, s.cfg.StabilityTolerance)
	s.phase = PhaseReady
	return nil
}

// Start moves the session to running and launches the poll loop. It
// returns false, without side effects, unless the session is ready.
func (s *Session) Start() bool {
	s.mu.Lock()
	if s.phase != PhaseReady {
		s.mu.Unlock()
		return false
	}
	s.phase = PhaseRunning
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
	return true
}

// Stop halts the session. It is idempotent and safe to call from any
// goroutine while a tick is in flight; tracker release is deferred to
// the poll goroutine's exit.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Wait blocks until the poll goroutine has exited and released the
// tracker. It returns immediately for sessions that never started.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// stopLocked is the single place the session becomes terminal. Exactly
// one "stopped" is emitted no matter how many times it runs.
func (s *Session) stopLocked() {
	if s.phase == PhaseStopped {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.phase = PhaseStopped
	s.faceFound = false
	s.emit(StatusStopped)
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Status returns the last emitted status, or "" before the first one.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}

// FOV returns the calibrated horizontal field of view, if one has been
// computed or configured for this session.
func (s *Session) FOV() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fov, s.fovSet
}

// Position returns the most recent head position estimate.
func (s *Session) Position() (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPosition, s.hasPosition
}

// Midpoint returns the center of the most recent detection region.
func (s *Session) Midpoint() (x, y float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMidX, s.lastMidY, s.hasMidpoint
}

// step consumes one detection result. Caller holds the mutex and has
// verified the session is running.
func (s *Session) step(r Result, now time.Time) {
	if r.Mode == ModeWhitebalance {
		s.emit(StatusWhitebalance)
		return
	}

	// An evidence-free frame never changes phase, timers, flags or
	// the reported status.
	if r.Confidence == 0 {
		return
	}

	// First coarse result since the last tracker spawn opens a
	// detection episode.
	if r.Mode == ModeCoarse && !s.coarseSeen {
		s.coarseSeen = true
		s.emit(StatusDetecting)
	}

	switch r.Mode {
	case ModeCoarse:
		s.stepCoarse(r, now)
	case ModeFine:
		s.stepFine(r)
	}
}

func (s *Session) stepCoarse(r Result, now time.Time) {
	if s.detectionStart.IsZero() {
		s.detectionStart = now
	}
	if now.Sub(s.detectionStart) > s.cfg.HintsAfter {
		// Re-emitted every step past the threshold; idempotent for
		// observers.
		s.emit(StatusHints)
	}

	s.lastMidX, s.lastMidY = r.Midpoint()
	s.hasMidpoint = true
	if s.cfg.Render != nil {
		s.cfg.Render.DrawRect(r.X, r.Y, r.Width, r.Height)
	}
}

func (s *Session) stepFine(r Result) {
	s.detectionStart = time.Time{}

	if r.Lost() {
		if s.cfg.RetryOnLoss {
			s.emit(StatusRedetecting)
			s.respawnTracker()
		} else {
			s.emit(StatusLost)
			s.stopLocked()
		}
		return
	}

	if !s.faceFound {
		s.faceFound = true
		s.emit(StatusFound)
	}

	sample := r.Sample()
	if s.cfg.Smoothing && s.smoother != nil {
		if !s.smoothPrimed {
			s.smoother.Init(sample)
			s.smoothPrimed = true
		}
		// The initializing sample goes through the filter too.
		sample = s.smoother.Apply(sample)
	}

	s.lastMidX = sample.X + sample.Width/2
	s.lastMidY = sample.Y + sample.Height/2
	s.hasMidpoint = true
	if s.cfg.Render != nil {
		if s.cfg.ComputeAngles {
			s.cfg.Render.DrawRotatedRect(sample.X, sample.Y, sample.Width, sample.Height, sample.Angle)
		} else {
			s.cfg.Render.DrawRect(sample.X, sample.Y, sample.Width, sample.Height)
		}
	}

	if !s.cfg.TrackHeadPosition {
		return
	}

	s.window.Push(sample.Diagonal())
	if s.pose == nil && s.window.Stable() {
		opts := PoseOptions{CameraOffset: s.cfg.CameraOffset}
		if s.fovSet {
			// Later bootstraps in the same session reuse the
			// calibrated value exactly.
			opts.FOV = s.fov
		} else {
			opts.FOV = s.cfg.FOV
		}
		s.pose = s.cfg.NewPose(sample, s.width, s.height, opts)
		if !s.fovSet {
			s.fov = s.pose.FOV()
			s.fovSet = true
			log.Info("head position tracking bootstrapped", "fov", s.fov)
		}
	}
	if s.pose != nil {
		s.lastPosition = s.pose.Update(sample)
		s.hasPosition = true
	}
}

// respawnTracker discards the current tracker and spawns a fresh one
// that skips whitebalance recalibration, resetting all lock bookkeeping.
func (s *Session) respawnTracker() {
	old := s.tracker
	s.tracker = nil
	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn("closing lost tracker", "error", err)
		}
	}

	t, err := s.cfg.Spawn(s.src, TrackerOptions{
		Debug:         s.cfg.Render != nil,
		ComputeAngles: s.cfg.ComputeAngles,
		Whitebalance:  false,
	})
	if err != nil {
		log.Error("respawning tracker", "error", err)
		s.emit(StatusLost)
		s.stopLocked()
		return
	}
	s.tracker = t
	s.resetLock()
}

// resetLock clears the per-lock sub-state. Calibrated FOV survives.
func (s *Session) resetLock() {
	s.faceFound = false
	s.coarseSeen = false
	s.smoothPrimed = false
	s.detectionStart = time.Time{}
	s.pose = nil
	s.window.Reset()
}

func (s *Session) emit(status Status) {
	s.lastStatus = status
	log.Debug("session status", "status", string(status))
	if s.cfg.Sink != nil {
		s.cfg.Sink.Emit(status)
	}
}
