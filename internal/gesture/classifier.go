// Package gesture classifies landmark frames into finger-pair pinch and
// curl states using palm-normalized distances with hysteresis thresholds.
package gesture

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/landmark"
)

// minPalmSpan rejects frames whose palm geometry collapsed to a point;
// dividing by it would blow every distance up.
const minPalmSpan = 1e-6

// Pair identifies one of the finger pairs the classifier measures.
type Pair int

const (
	// ThumbIndex is the left-click pinch.
	ThumbIndex Pair = iota
	// ThumbMiddle is the right-click pinch.
	ThumbMiddle
	// IndexMiddle is the precision-move pinch.
	IndexMiddle
	// MiddleRing is the scroll pinch.
	MiddleRing
	// RingPinky is the drag-modifier curl.
	RingPinky

	numPairs
)

var pairNames = [numPairs]string{
	ThumbIndex:  "thumb_index",
	ThumbMiddle: "thumb_middle",
	IndexMiddle: "index_middle",
	MiddleRing:  "middle_ring",
	RingPinky:   "ring_pinky",
}

// String returns the pair's configuration name.
func (p Pair) String() string {
	if p < 0 || p >= numPairs {
		return fmt.Sprintf("pair(%d)", int(p))
	}
	return pairNames[p]
}

// Pairs returns all measured pairs in order.
func Pairs() []Pair {
	return []Pair{ThumbIndex, ThumbMiddle, IndexMiddle, MiddleRing, RingPinky}
}

// ParsePair maps a configuration name onto a Pair.
func ParsePair(name string) (Pair, error) {
	for i, n := range pairNames {
		if n == name {
			return Pair(i), nil
		}
	}
	return 0, fmt.Errorf("unknown finger pair %q", name)
}

// PairState is one pair's classification for a single frame.
type PairState struct {
	// Engaged reports whether the pair is currently pinched or curled,
	// after hysteresis.
	Engaged bool
	// Distance is the palm-normalized measure the decision was based on.
	Distance float64
	// Confidence is 1 at contact falling to 0 at the enter threshold;
	// always 0 while disengaged.
	Confidence float64
}

// Sample is the classification of one frame: the debounce input for the
// pointer state machine.
type Sample struct {
	Pairs      [numPairs]PairState
	Handedness landmark.Handedness
	Score      float64
	Timestamp  time.Time
}

// Engaged reports whether the given pair is engaged in this sample.
func (s *Sample) Engaged(p Pair) bool {
	return s.Pairs[p].Engaged
}

// Distance returns the pair's palm-normalized distance in this sample.
func (s *Sample) Distance(p Pair) float64 {
	return s.Pairs[p].Distance
}

// MakeSample builds a sample with the given pairs engaged. Tests drive the
// state machine with these instead of synthesizing full frames.
func MakeSample(engaged ...Pair) Sample {
	var s Sample
	for _, p := range engaged {
		s.Pairs[p] = PairState{Engaged: true, Distance: 0.05, Confidence: 1}
	}
	return s
}

// PairDistance returns the palm-normalized measure for one pair. Pinch
// pairs measure tip to tip; the ring-pinky curl measures how far the two
// tips sit from their MCP joints. The frame must already be validated.
func PairDistance(f *landmark.Frame, p Pair) float64 {
	span := f.PalmSpan()
	pts := f.Points

	switch p {
	case ThumbIndex:
		return landmark.Distance(pts[landmark.ThumbTip], pts[landmark.IndexTip]) / span
	case ThumbMiddle:
		return landmark.Distance(pts[landmark.ThumbTip], pts[landmark.MiddleTip]) / span
	case IndexMiddle:
		return landmark.Distance(pts[landmark.IndexTip], pts[landmark.MiddleTip]) / span
	case MiddleRing:
		return landmark.Distance(pts[landmark.MiddleTip], pts[landmark.RingTip]) / span
	case RingPinky:
		ring := landmark.Distance(pts[landmark.RingTip], pts[landmark.RingMCP])
		pinky := landmark.Distance(pts[landmark.PinkyTip], pts[landmark.PinkyMCP])
		return (ring + pinky) / 2 / span
	}
	return 0
}

// Classifier turns frames into samples. It is stateless per frame except
// for the per-pair hysteresis flags, which it owns.
type Classifier struct {
	thresholds [numPairs]config.PairThresholds
	engaged    [numPairs]bool
}

// NewClassifier creates a classifier with the given hysteresis bands. The
// thresholds are assumed validated (enter < exit).
func NewClassifier(t config.Thresholds) *Classifier {
	c := &Classifier{}
	c.SetThresholds(t)
	return c
}

// SetThresholds swaps the hysteresis bands, e.g. on a live tuning update.
// Engagement flags carry over so an update mid-pinch does not glitch.
func (c *Classifier) SetThresholds(t config.Thresholds) {
	c.thresholds = [numPairs]config.PairThresholds{
		ThumbIndex:  t.ThumbIndex,
		ThumbMiddle: t.ThumbMiddle,
		IndexMiddle: t.IndexMiddle,
		MiddleRing:  t.MiddleRing,
		RingPinky:   t.RingPinky,
	}
}

// Reset clears all hysteresis state, as if no frame had been seen.
func (c *Classifier) Reset() {
	c.engaged = [numPairs]bool{}
}

// Classify produces the sample for one frame. A frame violating the
// 21-point contract or with degenerate palm geometry returns
// landmark.ErrMalformedFrame and leaves hysteresis state untouched.
func (c *Classifier) Classify(f *landmark.Frame) (Sample, error) {
	if err := f.Validate(); err != nil {
		return Sample{}, err
	}
	if f.PalmSpan() < minPalmSpan {
		return Sample{}, fmt.Errorf("%w: degenerate palm span", landmark.ErrMalformedFrame)
	}

	s := Sample{
		Handedness: f.Handedness,
		Score:      f.Score,
		Timestamp:  f.Timestamp,
	}

	for i := 0; i < int(numPairs); i++ {
		p := Pair(i)
		th := c.thresholds[i]
		d := PairDistance(f, p)

		// Hysteresis: engage strictly below enter, release strictly above
		// exit, hold the previous state in between.
		if !c.engaged[i] && d < th.Enter {
			c.engaged[i] = true
		} else if c.engaged[i] && d > th.Exit {
			c.engaged[i] = false
		}

		state := PairState{
			Engaged:  c.engaged[i],
			Distance: d,
		}
		if state.Engaged && th.Enter > 0 {
			conf := 1 - d/th.Enter
			if conf < 0 {
				conf = 0
			}
			if conf > 1 {
				conf = 1
			}
			state.Confidence = conf
		}
		s.Pairs[i] = state
	}

	return s, nil
}
