package headtrack

import (
	"math"
	"testing"
	"time"
)

func TestExpSmoother_PrimingSamplePassesThrough(t *testing.T) {
	s := NewExpSmoother(0.35, 35*time.Millisecond)
	if s.Primed() {
		t.Fatal("new smoother must be unprimed")
	}

	in := Sample{X: 10, Y: 20, Width: 80, Height: 60, Angle: 0.1}
	s.Init(in)
	if !s.Primed() {
		t.Fatal("smoother must be primed after Init")
	}

	out := s.Apply(in)
	if out != in {
		t.Errorf("priming sample changed: got %+v, want %+v", out, in)
	}
}

func TestExpSmoother_ConvergesToConstantInput(t *testing.T) {
	s := NewExpSmoother(0.35, 35*time.Millisecond)
	s.Init(Sample{X: 0, Width: 100, Height: 100})

	target := Sample{X: 50, Width: 120, Height: 90}
	var out Sample
	for i := 0; i < 200; i++ {
		out = s.Apply(target)
	}

	if math.Abs(out.X-target.X) > 0.5 {
		t.Errorf("X after convergence: got %v, want ~%v", out.X, target.X)
	}
	if math.Abs(out.Width-target.Width) > 0.5 {
		t.Errorf("Width after convergence: got %v, want ~%v", out.Width, target.Width)
	}
}

func TestExpSmoother_DampensJitter(t *testing.T) {
	s := NewExpSmoother(0.35, 35*time.Millisecond)
	s.Init(Sample{X: 100})

	// A one-frame spike must not carry through at full amplitude.
	out := s.Apply(Sample{X: 200})
	if out.X >= 200 || out.X <= 100 {
		t.Errorf("smoothed spike: got %v, want between 100 and 200", out.X)
	}
}
