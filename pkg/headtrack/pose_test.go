package headtrack

import (
	"math"
	"testing"
)

func TestPinholePose_UsesConfiguredFOV(t *testing.T) {
	initial := Sample{X: 280, Y: 200, Width: 80, Height: 80}
	p := NewPoseEstimator(initial, 640, 480, PoseOptions{FOV: 0.91, CameraOffset: 11.5})
	if p.FOV() != 0.91 {
		t.Errorf("FOV: got %v, want 0.91", p.FOV())
	}
}

func TestPinholePose_EstimatesFOVFromBootstrap(t *testing.T) {
	initial := Sample{X: 280, Y: 200, Width: 80, Height: 80}
	p := NewPoseEstimator(initial, 640, 480, PoseOptions{CameraOffset: 11.5})

	fov := p.FOV()
	if fov <= 0 || fov >= math.Pi {
		t.Errorf("estimated FOV out of range: %v", fov)
	}
}

func TestPinholePose_CenteredHeadIsOnAxis(t *testing.T) {
	// An 80px box centered in a 640x480 frame.
	initial := Sample{X: 280, Y: 200, Width: 80, Height: 80}
	p := NewPoseEstimator(initial, 640, 480, PoseOptions{FOV: 1.0})

	pos := p.Update(initial)
	if math.Abs(pos.X) > 1e-9 {
		t.Errorf("X for centered head: got %v, want 0", pos.X)
	}
	if pos.Z <= 0 {
		t.Errorf("Z: got %v, want positive", pos.Z)
	}
}

func TestPinholePose_WiderHeadIsCloser(t *testing.T) {
	initial := Sample{X: 280, Y: 200, Width: 80, Height: 80}
	p := NewPoseEstimator(initial, 640, 480, PoseOptions{FOV: 1.0})

	far := p.Update(Sample{X: 300, Y: 210, Width: 40, Height: 40})
	near := p.Update(Sample{X: 240, Y: 160, Width: 160, Height: 160})
	if near.Z >= far.Z {
		t.Errorf("Z ordering: near=%v far=%v, want near < far", near.Z, far.Z)
	}
}

func TestPinholePose_CameraOffsetShiftsY(t *testing.T) {
	initial := Sample{X: 280, Y: 200, Width: 80, Height: 80}
	without := NewPoseEstimator(initial, 640, 480, PoseOptions{FOV: 1.0})
	with := NewPoseEstimator(initial, 640, 480, PoseOptions{FOV: 1.0, CameraOffset: 11.5})

	a := without.Update(initial)
	b := with.Update(initial)
	if math.Abs((a.Y-b.Y)-11.5) > 1e-9 {
		t.Errorf("offset delta: got %v, want 11.5", a.Y-b.Y)
	}
}
