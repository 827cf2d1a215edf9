package headtrack

import (
	"math"
	"sync"
	"testing"
	"time"
)

// spawnRecorder is a TrackerFactory that hands out scripted trackers and
// remembers the options of every spawn.
type spawnRecorder struct {
	mu       sync.Mutex
	script   []Result
	trackers []*ScriptedTracker
	opts     []TrackerOptions
}

func (sr *spawnRecorder) factory(src FrameSource, opts TrackerOptions) (FaceTracker, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	tr := &ScriptedTracker{Opts: opts, Results: sr.script}
	sr.trackers = append(sr.trackers, tr)
	sr.opts = append(sr.opts, opts)
	return tr, nil
}

func (sr *spawnRecorder) spawns() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.trackers)
}

// fakePose satisfies PoseEstimator and lets tests inspect bootstrap
// options.
type fakePose struct {
	fov     float64
	updates int
}

func (f *fakePose) FOV() float64 { return f.fov }

func (f *fakePose) Update(Sample) Position {
	f.updates++
	return Position{Z: 60}
}

type poseRecorder struct {
	mu    sync.Mutex
	opts  []PoseOptions
	poses []*fakePose
}

func (pr *poseRecorder) factory(initial Sample, w, h int, opts PoseOptions) PoseEstimator {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	fov := opts.FOV
	if fov == 0 {
		fov = 1.23 // pretend auto-estimate
	}
	p := &fakePose{fov: fov}
	pr.opts = append(pr.opts, opts)
	pr.poses = append(pr.poses, p)
	return p
}

func (pr *poseRecorder) bootstraps() int {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return len(pr.poses)
}

// newStepSession builds an initialized session forced into the running
// phase so tests can drive step directly, without the poll goroutine.
func newStepSession(t *testing.T, mutate func(*Config)) (*Session, *spawnRecorder, *poseRecorder, *RecordSink) {
	t.Helper()

	sr := &spawnRecorder{}
	pr := &poseRecorder{}
	sink := &RecordSink{}

	cfg := DefaultConfig()
	cfg.Spawn = sr.factory
	cfg.NewPose = pr.factory
	cfg.Sink = sink
	cfg.Smoothing = false
	if mutate != nil {
		mutate(&cfg)
	}

	s := New(cfg)
	if err := s.Init(NewMockSource(640, 480)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.phase = PhaseRunning
	return s, sr, pr, sink
}

// fineResult builds a valid fine-tracked result with the given box.
func fineResult(w, h float64) Result {
	return Result{Mode: ModeFine, Confidence: 1, X: 100, Y: 80, Width: w, Height: h}
}

// squareForDiagonal returns the side of a square box whose diagonal is d.
func squareForDiagonal(d float64) float64 {
	return d / math.Sqrt2
}

func TestSession_InitValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = (&spawnRecorder{}).factory

	s := New(cfg)
	if err := s.Init(nil); err != ErrNotReady {
		t.Errorf("Init(nil): got %v, want ErrNotReady", err)
	}
	if err := s.Init(NewMockSource(0, 480)); err != ErrNotReady {
		t.Errorf("Init(zero width): got %v, want ErrNotReady", err)
	}
	if s.Phase() != PhaseUninitialized {
		t.Errorf("phase after failed init: got %v, want uninitialized", s.Phase())
	}
	if s.Start() {
		t.Error("Start before init should return false")
	}

	if err := s.Init(NewMockSource(640, 480)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.Phase() != PhaseReady {
		t.Errorf("phase after init: got %v, want ready", s.Phase())
	}
	if err := s.Init(NewMockSource(640, 480)); err != ErrInitialized {
		t.Errorf("second Init: got %v, want ErrInitialized", err)
	}

	noSpawn := New(DefaultConfig())
	if err := noSpawn.Init(NewMockSource(640, 480)); err != ErrNoTracker {
		t.Errorf("Init without factory: got %v, want ErrNoTracker", err)
	}
}

func TestSession_ConfidenceZeroIsInert(t *testing.T) {
	s, _, _, sink := newStepSession(t, nil)

	now := time.Now()
	for i := 0; i < 5; i++ {
		s.step(Result{Mode: ModeCoarse, Confidence: 0}, now)
		now = now.Add(20 * time.Millisecond)
	}

	if got := len(sink.Statuses()); got != 0 {
		t.Errorf("statuses after 5 empty results: got %v, want none", sink.Statuses())
	}
	if s.Phase() != PhaseRunning {
		t.Errorf("phase: got %v, want running", s.Phase())
	}
	if !s.detectionStart.IsZero() {
		t.Error("empty results must not open a detection episode")
	}
}

func TestSession_WhitebalanceStatus(t *testing.T) {
	s, _, _, sink := newStepSession(t, nil)

	s.step(Result{Mode: ModeWhitebalance}, time.Now())
	if s.Status() != StatusWhitebalance {
		t.Errorf("status: got %q, want whitebalance", s.Status())
	}
	if sink.Count(StatusWhitebalance) != 1 {
		t.Errorf("whitebalance emissions: got %d, want 1", sink.Count(StatusWhitebalance))
	}
}

func TestSession_DetectingEmittedOncePerEpisode(t *testing.T) {
	s, _, _, sink := newStepSession(t, nil)

	now := time.Now()
	for i := 0; i < 3; i++ {
		s.step(Result{Mode: ModeCoarse, Confidence: 0.8, Width: 50, Height: 50}, now)
		now = now.Add(20 * time.Millisecond)
	}

	if sink.Count(StatusDetecting) != 1 {
		t.Errorf("detecting emissions: got %d, want 1", sink.Count(StatusDetecting))
	}
}

func TestSession_HintsAfterThreshold(t *testing.T) {
	s, _, _, sink := newStepSession(t, nil)

	start := time.Now()
	coarse := Result{Mode: ModeCoarse, Confidence: 0.8, Width: 50, Height: 50}

	s.step(coarse, start)
	s.step(coarse, start.Add(4900*time.Millisecond))
	if sink.Count(StatusHints) != 0 {
		t.Fatalf("hints before threshold: got %d, want 0", sink.Count(StatusHints))
	}

	s.step(coarse, start.Add(5001*time.Millisecond))
	if sink.Count(StatusHints) != 1 {
		t.Errorf("hints after threshold: got %d, want 1", sink.Count(StatusHints))
	}
}

func TestSession_FoundIsEdgeTriggered(t *testing.T) {
	s, _, _, sink := newStepSession(t, nil)

	now := time.Now()
	for i := 0; i < 10; i++ {
		s.step(fineResult(80, 60), now)
		now = now.Add(20 * time.Millisecond)
	}

	if sink.Count(StatusFound) != 1 {
		t.Errorf("found emissions over one lock: got %d, want 1", sink.Count(StatusFound))
	}
	if !s.faceFound {
		t.Error("faceFound should be set")
	}
}

func TestSession_FineClearsDetectionEpisode(t *testing.T) {
	s, _, _, _ := newStepSession(t, nil)

	now := time.Now()
	s.step(Result{Mode: ModeCoarse, Confidence: 0.8, Width: 50, Height: 50}, now)
	if s.detectionStart.IsZero() {
		t.Fatal("coarse result should open a detection episode")
	}

	s.step(fineResult(80, 60), now.Add(20*time.Millisecond))
	if !s.detectionStart.IsZero() {
		t.Error("fine result should close the detection episode")
	}
}

func TestSession_StableWindowBootstrapsPose(t *testing.T) {
	s, _, pr, _ := newStepSession(t, nil)

	now := time.Now()
	for _, d := range []float64{100, 102, 101, 103, 100} {
		side := squareForDiagonal(d)
		s.step(fineResult(side, side), now)
		now = now.Add(20 * time.Millisecond)
		if pr.bootstraps() != 0 {
			t.Fatal("pose bootstrapped before the window filled")
		}
	}

	side := squareForDiagonal(102)
	s.step(fineResult(side, side), now)
	if pr.bootstraps() != 1 {
		t.Fatalf("pose bootstraps after 6th stable sample: got %d, want 1", pr.bootstraps())
	}
	if pr.poses[0].updates != 1 {
		t.Errorf("pose updates on bootstrap step: got %d, want 1", pr.poses[0].updates)
	}

	fov, ok := s.FOV()
	if !ok || fov != 1.23 {
		t.Errorf("calibrated FOV: got (%v, %v), want (1.23, true)", fov, ok)
	}
}

func TestSession_UnstableWindowDefersBootstrap(t *testing.T) {
	s, _, pr, _ := newStepSession(t, nil)

	now := time.Now()
	for _, d := range []float64{100, 110, 101, 103, 100, 102} {
		side := squareForDiagonal(d)
		s.step(fineResult(side, side), now)
		now = now.Add(20 * time.Millisecond)
	}

	if pr.bootstraps() != 0 {
		t.Errorf("pose bootstraps with span 10: got %d, want 0", pr.bootstraps())
	}
	if _, ok := s.FOV(); ok {
		t.Error("FOV must stay unset without a bootstrap")
	}
}

func TestSession_FOVOverrideUsedVerbatim(t *testing.T) {
	s, _, pr, _ := newStepSession(t, func(cfg *Config) {
		cfg.FOV = 0.91
	})

	now := time.Now()
	side := squareForDiagonal(100)
	for i := 0; i < 6; i++ {
		s.step(fineResult(side, side), now)
		now = now.Add(20 * time.Millisecond)
	}

	if pr.bootstraps() != 1 {
		t.Fatalf("bootstraps: got %d, want 1", pr.bootstraps())
	}
	if pr.opts[0].FOV != 0.91 {
		t.Errorf("bootstrap FOV option: got %v, want 0.91", pr.opts[0].FOV)
	}
	if fov, _ := s.FOV(); fov != 0.91 {
		t.Errorf("calibrated FOV: got %v, want 0.91", fov)
	}
}

func TestSession_FOVCalibrationSurvivesRetry(t *testing.T) {
	s, sr, pr, _ := newStepSession(t, nil)

	bootstrap := func() {
		now := time.Now()
		side := squareForDiagonal(100)
		for i := 0; i < 6; i++ {
			s.step(fineResult(side, side), now)
			now = now.Add(20 * time.Millisecond)
		}
	}

	bootstrap()
	if pr.bootstraps() != 1 {
		t.Fatalf("first bootstrap: got %d, want 1", pr.bootstraps())
	}
	first, _ := s.FOV()

	// Lose the lock; retry respawns the tracker and clears the pose.
	s.step(fineResult(0, 0), time.Now())
	if s.pose != nil {
		t.Fatal("pose must be discarded on loss")
	}
	if sr.spawns() != 1 {
		t.Fatalf("respawns after loss: got %d, want 1", sr.spawns())
	}

	bootstrap()
	if pr.bootstraps() != 2 {
		t.Fatalf("second bootstrap: got %d, want 2", pr.bootstraps())
	}
	if pr.opts[1].FOV != first {
		t.Errorf("second bootstrap must reuse calibrated FOV %v, got %v", first, pr.opts[1].FOV)
	}
	if got, _ := s.FOV(); got != first {
		t.Errorf("calibrated FOV changed across retry: got %v, want %v", got, first)
	}
}

func TestSession_LossWithRetrySpawnsFreshTracker(t *testing.T) {
	s, sr, _, sink := newStepSession(t, nil)

	// Acquire a lock first so loss resets real state.
	s.step(fineResult(80, 60), time.Now())
	if !s.faceFound {
		t.Fatal("expected lock")
	}

	s.step(fineResult(0, 60), time.Now())

	if s.Phase() != PhaseRunning {
		t.Errorf("phase after retried loss: got %v, want running", s.Phase())
	}
	if sink.Count(StatusRedetecting) != 1 {
		t.Errorf("redetecting emissions: got %d, want 1", sink.Count(StatusRedetecting))
	}
	if s.faceFound {
		t.Error("faceFound must reset on loss")
	}
	if s.smoothPrimed {
		t.Error("smoothing must reset on loss")
	}
	if sr.spawns() != 1 {
		t.Fatalf("spawns: got %d, want 1", sr.spawns())
	}
	if sr.opts[0].Whitebalance {
		t.Error("retry tracker must skip whitebalance recalibration")
	}

	// The next lock is a new edge.
	s.step(fineResult(80, 60), time.Now())
	if sink.Count(StatusFound) != 2 {
		t.Errorf("found emissions across re-lock: got %d, want 2", sink.Count(StatusFound))
	}
}

func TestSession_LossWithoutRetryStops(t *testing.T) {
	s, sr, _, sink := newStepSession(t, func(cfg *Config) {
		cfg.RetryOnLoss = false
	})

	s.step(fineResult(80, 0), time.Now())

	if s.Phase() != PhaseStopped {
		t.Errorf("phase: got %v, want stopped", s.Phase())
	}
	if sink.Count(StatusLost) != 1 || sink.Count(StatusStopped) != 1 {
		t.Errorf("statuses: got %v, want one lost and one stopped", sink.Statuses())
	}
	if sr.spawns() != 0 {
		t.Errorf("no tracker may be spawned on terminal loss, got %d", sr.spawns())
	}
}

func TestSession_SmoothingPrimesOnFirstSample(t *testing.T) {
	s, _, _, _ := newStepSession(t, func(cfg *Config) {
		cfg.Smoothing = true
	})

	s.step(fineResult(80, 60), time.Now())
	if !s.smoothPrimed {
		t.Fatal("smoother must prime on the first valid sample")
	}
	if !s.smoother.Primed() {
		t.Fatal("smoother reports unprimed after init")
	}

	// The priming sample passes through the filter unchanged.
	x, y, ok := s.Midpoint()
	if !ok {
		t.Fatal("expected a midpoint")
	}
	if x != 100+40 || y != 80+30 {
		t.Errorf("midpoint of priming sample: got (%v, %v), want (140, 110)", x, y)
	}
}

func TestSession_TrackHeadPositionDisabled(t *testing.T) {
	s, _, pr, sink := newStepSession(t, func(cfg *Config) {
		cfg.TrackHeadPosition = false
	})

	now := time.Now()
	side := squareForDiagonal(100)
	for i := 0; i < 8; i++ {
		s.step(fineResult(side, side), now)
		now = now.Add(20 * time.Millisecond)
	}

	if pr.bootstraps() != 0 {
		t.Errorf("bootstraps with head tracking off: got %d, want 0", pr.bootstraps())
	}
	if sink.Count(StatusFound) != 1 {
		t.Errorf("found still fires without head tracking: got %d, want 1", sink.Count(StatusFound))
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	s, _, _, sink := newStepSession(t, nil)

	s.Stop()
	s.Stop()

	if s.Phase() != PhaseStopped {
		t.Errorf("phase: got %v, want stopped", s.Phase())
	}
	if sink.Count(StatusStopped) != 1 {
		t.Errorf("stopped emissions after double stop: got %d, want 1", sink.Count(StatusStopped))
	}
}
