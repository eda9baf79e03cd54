package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/landmark"
)

// narrowBand gives every pair the same tight hysteresis band so fixture
// distances (engaged ≤ 0.06, released ≥ 0.4) land clearly on either side.
func narrowBand() config.Thresholds {
	band := config.PairThresholds{Enter: 0.03, Exit: 0.05}
	return config.Thresholds{
		ThumbIndex:  band,
		ThumbMiddle: band,
		IndexMiddle: band,
		MiddleRing:  band,
		RingPinky:   band,
	}
}

func TestClassify_OpenHandDisengaged(t *testing.T) {
	c := NewClassifier(narrowBand())

	s, err := c.Classify(landmark.OpenHandFrame())
	if err != nil {
		t.Fatalf("classify open hand: %v", err)
	}

	for _, p := range Pairs() {
		if s.Engaged(p) {
			t.Errorf("expected %s disengaged for open hand, distance %v", p, s.Distance(p))
		}
	}
}

func TestClassify_EngageBelowEnter(t *testing.T) {
	c := NewClassifier(narrowBand())

	s, err := c.Classify(landmark.PinchFrame(0.02))
	if err != nil {
		t.Fatalf("classify pinch: %v", err)
	}

	if !s.Engaged(ThumbIndex) {
		t.Error("expected thumb_index engaged at distance 0.02")
	}
	for _, p := range []Pair{ThumbMiddle, IndexMiddle, MiddleRing, RingPinky} {
		if s.Engaged(p) {
			t.Errorf("expected %s disengaged, distance %v", p, s.Distance(p))
		}
	}
}

func TestClassify_Hysteresis(t *testing.T) {
	c := NewClassifier(narrowBand())

	steps := []struct {
		dist    float64
		engaged bool
	}{
		{0.02, true},  // below enter: engage
		{0.04, true},  // between: hold engaged
		{0.06, false}, // above exit: release
		{0.04, false}, // between: hold released, must re-cross enter
		{0.02, true},  // below enter again
	}

	for i, step := range steps {
		s, err := c.Classify(landmark.PinchFrame(step.dist))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if s.Engaged(ThumbIndex) != step.engaged {
			t.Errorf("step %d (distance %v): expected engaged=%v, got %v",
				i, step.dist, step.engaged, s.Engaged(ThumbIndex))
		}
	}
}

func TestClassify_MalformedFrameKeepsHysteresis(t *testing.T) {
	c := NewClassifier(narrowBand())

	if _, err := c.Classify(landmark.PinchFrame(0.02)); err != nil {
		t.Fatalf("classify pinch: %v", err)
	}

	_, err := c.Classify(landmark.TruncatedFrame(15))
	if !errors.Is(err, landmark.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}

	// Distance in the hold band: only prior engagement keeps the pair on,
	// so this proves the malformed frame did not reset it.
	s, err := c.Classify(landmark.PinchFrame(0.04))
	if err != nil {
		t.Fatalf("classify after malformed: %v", err)
	}
	if !s.Engaged(ThumbIndex) {
		t.Error("malformed frame mutated hysteresis state")
	}
}

func TestClassify_DegeneratePalm(t *testing.T) {
	f := landmark.OpenHandFrame()
	for i := range f.Points {
		f.Points[i] = landmark.Point3D{X: 0.5, Y: 0.5}
	}

	c := NewClassifier(narrowBand())
	_, err := c.Classify(f)
	if !errors.Is(err, landmark.ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame for collapsed palm, got %v", err)
	}
}

func TestClassify_Confidence(t *testing.T) {
	c := NewClassifier(narrowBand())

	tight, err := c.Classify(landmark.PinchFrame(0.006))
	if err != nil {
		t.Fatalf("classify tight pinch: %v", err)
	}
	loose, err := c.Classify(landmark.PinchFrame(0.024))
	if err != nil {
		t.Fatalf("classify loose pinch: %v", err)
	}

	tc := tight.Pairs[ThumbIndex].Confidence
	lc := loose.Pairs[ThumbIndex].Confidence
	if tc <= lc {
		t.Errorf("expected tighter pinch to score higher: %v <= %v", tc, lc)
	}

	// 1 - 0.024/0.03 = 0.2
	if math.Abs(lc-0.2) > 1e-6 {
		t.Errorf("expected confidence 0.2, got %v", lc)
	}

	open, err := c.Classify(landmark.OpenHandFrame())
	if err != nil {
		t.Fatalf("classify open hand: %v", err)
	}
	if got := open.Pairs[ThumbIndex].Confidence; got != 0 {
		t.Errorf("expected zero confidence while disengaged, got %v", got)
	}
}

func TestClassify_DragCompound(t *testing.T) {
	c := NewClassifier(narrowBand())

	s, err := c.Classify(landmark.DragFrame(0.02, 0.02))
	if err != nil {
		t.Fatalf("classify drag: %v", err)
	}

	if !s.Engaged(ThumbIndex) || !s.Engaged(RingPinky) {
		t.Error("expected thumb_index and ring_pinky engaged for drag pose")
	}
	if s.Engaged(ThumbMiddle) || s.Engaged(MiddleRing) {
		t.Error("drag pose engaged unrelated pairs")
	}
}

func TestClassify_ScrollPinch(t *testing.T) {
	c := NewClassifier(narrowBand())

	s, err := c.Classify(landmark.ScrollPinchFrame(0.02))
	if err != nil {
		t.Fatalf("classify scroll pinch: %v", err)
	}

	if !s.Engaged(MiddleRing) {
		t.Error("expected middle_ring engaged for scroll pose")
	}
	if s.Engaged(RingPinky) {
		t.Errorf("scroll pose engaged ring_pinky curl, distance %v", s.Distance(RingPinky))
	}
}

func TestClassify_PairsTrackIndependently(t *testing.T) {
	c := NewClassifier(narrowBand())

	// Engage the curl, then swap to a scroll pinch. The curl must release
	// on its own exit crossing, not because another pair engaged.
	if _, err := c.Classify(landmark.CurlFrame(0.02)); err != nil {
		t.Fatalf("classify curl: %v", err)
	}

	s, err := c.Classify(landmark.ScrollPinchFrame(0.02))
	if err != nil {
		t.Fatalf("classify scroll: %v", err)
	}
	if s.Engaged(RingPinky) {
		t.Error("expected curl released once tips returned past exit")
	}
	if !s.Engaged(MiddleRing) {
		t.Error("expected scroll pinch engaged")
	}
}

func TestSetThresholds_KeepsEngagement(t *testing.T) {
	c := NewClassifier(narrowBand())
	if _, err := c.Classify(landmark.PinchFrame(0.02)); err != nil {
		t.Fatal(err)
	}

	wider := narrowBand()
	wider.ThumbIndex = config.PairThresholds{Enter: 0.02, Exit: 0.06}
	c.SetThresholds(wider)

	s, err := c.Classify(landmark.PinchFrame(0.05))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Engaged(ThumbIndex) {
		t.Error("tuning update mid-pinch dropped the engagement")
	}
}

func TestReset(t *testing.T) {
	c := NewClassifier(narrowBand())
	if _, err := c.Classify(landmark.PinchFrame(0.02)); err != nil {
		t.Fatal(err)
	}

	c.Reset()

	s, err := c.Classify(landmark.PinchFrame(0.04))
	if err != nil {
		t.Fatal(err)
	}
	if s.Engaged(ThumbIndex) {
		t.Error("expected no engagement after reset at in-band distance")
	}
}

func TestParsePair(t *testing.T) {
	for _, p := range Pairs() {
		parsed, err := ParsePair(p.String())
		if err != nil {
			t.Errorf("failed to parse %q: %v", p.String(), err)
		}
		if parsed != p {
			t.Errorf("expected %v, got %v", p, parsed)
		}
	}

	if _, err := ParsePair("thumb_pinky"); err == nil {
		t.Error("expected error for unknown pair name")
	}
}

func TestMakeSample(t *testing.T) {
	s := MakeSample(ThumbIndex, RingPinky)
	if !s.Engaged(ThumbIndex) || !s.Engaged(RingPinky) {
		t.Error("expected requested pairs engaged")
	}
	if s.Engaged(ThumbMiddle) || s.Engaged(IndexMiddle) || s.Engaged(MiddleRing) {
		t.Error("expected remaining pairs disengaged")
	}
}
