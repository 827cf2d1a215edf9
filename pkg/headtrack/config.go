package headtrack

import "time"

// Config holds all tunable parameters for a tracking session
type Config struct {
	// Timing
	PollInterval       time.Duration // Cadence of tracking steps
	ReadyProbeInterval time.Duration // Backoff between readiness probes
	ReadyTimeout       time.Duration // Give up waiting for frames after this (0 = wait forever)
	HintsAfter         time.Duration // Coach the subject after detection has run this long

	// Policies
	Smoothing         bool // Run measurements through the smoother
	RetryOnLoss       bool // Respawn the fine tracker on lost lock instead of stopping
	TrackHeadPosition bool // Bootstrap and feed the pose estimator
	ComputeAngles     bool // Ask the tracker for in-plane rotation
	Whitebalance      bool // Let the initial tracker run its whitebalance phase

	// Pose calibration
	FOV          float64 // Horizontal field of view in radians (0 = estimate on first bootstrap)
	CameraOffset float64 // Vertical camera-to-screen offset in cm

	// Stability gate for pose bootstrapping
	StabilityCapacity  int     // Samples the window must hold
	StabilityTolerance float64 // Max diagonal span considered settled

	// Smoother shape
	SmoothingDecay float64 // Exponential decay factor

	// Collaborators. Spawn is required; the rest are optional.
	Spawn       TrackerFactory
	NewSmoother SmootherFactory
	NewPose     PoseFactory
	Sink        StatusSink
	Render      DebugRenderTarget
}

// DefaultConfig returns the recommended configuration for webcam tracking
func DefaultConfig() Config {
	return Config{
		PollInterval:       20 * time.Millisecond, // 50 steps per second
		ReadyProbeInterval: 100 * time.Millisecond,
		ReadyTimeout:       30 * time.Second,
		HintsAfter:         5 * time.Second,

		Smoothing:         true,
		RetryOnLoss:       true,
		TrackHeadPosition: true,
		ComputeAngles:     false,
		Whitebalance:      true,

		FOV:          0, // estimated on first bootstrap
		CameraOffset: 11.5,

		StabilityCapacity:  6,
		StabilityTolerance: 5,

		SmoothingDecay: 0.35,
	}
}

// LowLatencyConfig trades smoothing for responsiveness
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.Smoothing = false
	return cfg
}

// ConservativeConfig polls slower and never gives up on a lost lock
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 50 * time.Millisecond
	cfg.ReadyTimeout = 0
	cfg.SmoothingDecay = 0.5
	return cfg
}

// smootherWindow derives the smoother's time window from the poll cadence.
func (c Config) smootherWindow() time.Duration {
	return c.PollInterval + 15*time.Millisecond
}
