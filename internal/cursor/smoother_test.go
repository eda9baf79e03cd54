package cursor

import (
	"math"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/landmark"
)

// frameAt builds a valid frame with the index fingertip at (x, y).
func frameAt(x, y float64) *landmark.Frame {
	f := landmark.OpenHandFrame()
	f.Points[landmark.IndexTip] = landmark.Point3D{X: x, Y: y}
	return f
}

func testTuning() config.Tuning {
	t := config.Default()
	t.SmoothingAlpha = 0.5
	t.Region = config.Region{X: 0, Y: 0, Width: 1, Height: 1}
	t.Screen = config.Screen{Width: 1001, Height: 1001}
	t.TrackLandmark = landmark.IndexTip
	return t
}

func TestUpdate_FirstSamplePrimesDirectly(t *testing.T) {
	s := NewSmoother(testTuning())

	state := s.Update(frameAt(0.5, 0.5))
	if math.Abs(state.X-500) > 1e-9 || math.Abs(state.Y-500) > 1e-9 {
		t.Errorf("expected first sample to land at (500, 500), got (%v, %v)", state.X, state.Y)
	}
}

func TestUpdate_Convergence(t *testing.T) {
	s := NewSmoother(testTuning())

	s.Update(frameAt(0, 0))
	target := frameAt(1, 1)

	// After k frames the remaining error must be within (1-alpha)^k of the
	// initial offset.
	initial := 1000.0
	for k := 1; k <= 10; k++ {
		state := s.Update(target)
		bound := math.Pow(0.5, float64(k)) * initial
		err := math.Abs(state.X - 1000)
		if err > bound+1e-9 {
			t.Fatalf("frame %d: error %v exceeds bound %v", k, err, bound)
		}
	}
}

func TestUpdate_ConvergenceMonotonic(t *testing.T) {
	s := NewSmoother(testTuning())

	s.Update(frameAt(0.2, 0.2))
	prev := math.Inf(1)
	for k := 0; k < 20; k++ {
		state := s.Update(frameAt(0.8, 0.8))
		err := math.Abs(state.X - 800)
		if err > prev {
			t.Fatalf("frame %d: error %v grew from %v", k, err, prev)
		}
		prev = err
	}
	if prev > 1 {
		t.Errorf("expected convergence within a pixel after 20 frames, still off by %v", prev)
	}
}

func TestUpdate_ActiveRegionMapping(t *testing.T) {
	tn := testTuning()
	tn.SmoothingAlpha = 1 // isolate the mapping
	tn.Region = config.Region{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	s := NewSmoother(tn)

	// Region center maps to screen center.
	state := s.Update(frameAt(0.5, 0.5))
	if math.Abs(state.X-500) > 1e-9 {
		t.Errorf("expected region center at 500, got %v", state.X)
	}

	// Region edges map to screen edges.
	state = s.Update(frameAt(0.25, 0.75))
	if state.X != 0 || state.Y != 1000 {
		t.Errorf("expected region corner at (0, 1000), got (%v, %v)", state.X, state.Y)
	}
}

func TestUpdate_ClampsOutsideRegion(t *testing.T) {
	tn := testTuning()
	tn.SmoothingAlpha = 1
	tn.Region = config.Region{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	s := NewSmoother(tn)

	state := s.Update(frameAt(0.05, 0.99))
	if state.X != 0 {
		t.Errorf("expected x clamped to 0, got %v", state.X)
	}
	if state.Y != 1000 {
		t.Errorf("expected y clamped to 1000, got %v", state.Y)
	}
}

func TestReset_SnapsInsteadOfGliding(t *testing.T) {
	s := NewSmoother(testTuning())

	s.Update(frameAt(0.1, 0.1))
	s.Reset()

	state := s.Update(frameAt(0.9, 0.9))
	if math.Abs(state.X-900) > 1e-9 {
		t.Errorf("expected snap to 900 after reset, got %v", state.X)
	}
}

func TestUpdate_Timestamp(t *testing.T) {
	s := NewSmoother(testTuning())

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := frameAt(0.5, 0.5)
	f.Timestamp = ts

	state := s.Update(f)
	if !state.UpdatedAt.Equal(ts) {
		t.Errorf("expected frame timestamp carried over, got %v", state.UpdatedAt)
	}
}

func TestPosition_Rounds(t *testing.T) {
	s := State{X: 12.6, Y: 99.4}
	x, y := s.Position()
	if x != 13 || y != 99 {
		t.Errorf("expected (13, 99), got (%d, %d)", x, y)
	}
}
