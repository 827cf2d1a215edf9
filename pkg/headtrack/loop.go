package headtrack

import (
	"context"
	"time"

	"github.com/visionkit/go-headtrack/internal/log"
)

// run is the session's poll goroutine: gate on frame readiness, spawn
// the initial tracker, then execute one tracking step per poll interval.
// The next tick is armed only after the current one completes, so ticks
// never overlap.
func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.teardown()

	if !s.awaitFrames(ctx) {
		return
	}
	if !s.spawnInitial() {
		return
	}

	// First tick fires immediately once the gate passes.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !s.tick() {
				return
			}
			timer.Reset(s.cfg.PollInterval)
		}
	}
}

// awaitFrames blocks until the frame source yields a non-degenerate
// signal, probing on a fixed backoff. A configured ReadyTimeout bounds
// the wait; expiry is treated as a lost source and stops the session.
func (s *Session) awaitFrames(ctx context.Context) bool {
	var deadline <-chan time.Time
	if s.cfg.ReadyTimeout > 0 {
		t := time.NewTimer(s.cfg.ReadyTimeout)
		defer t.Stop()
		deadline = t.C
	}

	probe := time.NewTicker(s.cfg.ReadyProbeInterval)
	defer probe.Stop()

	for {
		if s.src.ProbeSignal() > 0 {
			s.mu.Lock()
			if s.phase != PhaseRunning {
				s.mu.Unlock()
				return false
			}
			s.emit(StatusCamera)
			s.mu.Unlock()
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			log.Warn("frame source never became ready", "timeout", s.cfg.ReadyTimeout)
			s.mu.Lock()
			if s.phase == PhaseRunning {
				s.emit(StatusLost)
				s.stopLocked()
			}
			s.mu.Unlock()
			return false
		case <-probe.C:
		}
	}
}

// spawnInitial constructs the first tracker of the session, with the
// whitebalance phase per configuration.
func (s *Session) spawnInitial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning {
		return false
	}

	t, err := s.cfg.Spawn(s.src, TrackerOptions{
		Debug:         s.cfg.Render != nil,
		ComputeAngles: s.cfg.ComputeAngles,
		Whitebalance:  s.cfg.Whitebalance,
	})
	if err != nil {
		log.Error("spawning tracker", "error", err)
		s.emit(StatusLost)
		s.stopLocked()
		return false
	}
	s.tracker = t
	return true
}

// tick runs exactly one tracking step. It returns false when the loop
// must halt. The detector call happens outside the session mutex so a
// concurrent Stop never waits on detector latency.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.phase != PhaseRunning {
		s.mu.Unlock()
		return false
	}
	tracker := s.tracker
	s.mu.Unlock()

	if err := tracker.Advance(); err != nil {
		// Transient by policy: an errored frame contributes no
		// evidence, exactly like a zero-confidence result.
		log.Debug("tracker advance", "error", err)
		return s.Phase() == PhaseRunning
	}
	r := tracker.Result()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning {
		// Stop landed while the tick was in flight; skip re-arming.
		return false
	}
	s.step(r, time.Now())
	return s.phase == PhaseRunning
}

// teardown releases the tracker at the loop's exit, the session's only
// resource release point.
func (s *Session) teardown() {
	s.mu.Lock()
	t := s.tracker
	s.tracker = nil
	s.mu.Unlock()

	if t != nil {
		if err := t.Close(); err != nil {
			log.Warn("closing tracker", "error", err)
		}
	}
}
