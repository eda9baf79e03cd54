// Package landmark defines the hand-landmark frame contract shared by every
// stage of the mudra pipeline, along with the sources that produce frames.
package landmark

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrMalformedFrame is returned when a frame does not carry exactly 21
// landmarks or its geometry is too degenerate to normalize.
var ErrMalformedFrame = errors.New("malformed landmark frame")

// Handedness identifies which hand a frame belongs to.
type Handedness string

const (
	HandLeft    Handedness = "Left"
	HandRight   Handedness = "Right"
	HandUnknown Handedness = "Unknown"
)

// Point3D represents a tracked point with coordinates normalized to [0,1]
// relative to the camera frame. Z is relative depth as reported by the
// tracker and is not used for distance measurements.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is one hand observation: the 21 landmarks for a single camera tick.
// A nil *Frame in a stream means no hand was detected that tick.
type Frame struct {
	Points     []Point3D  `json:"points"`
	Handedness Handedness `json:"handedness"`
	Score      float64    `json:"score"`
	Timestamp  time.Time  `json:"-"`
}

// Validate checks the 21-point contract. The point count comes from an
// external process, so it is checked rather than assumed.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformedFrame)
	}
	if len(f.Points) != NumLandmarks {
		return fmt.Errorf("%w: got %d points, want %d", ErrMalformedFrame, len(f.Points), NumLandmarks)
	}
	return nil
}

// Distance returns the planar distance between two points. Pinch geometry is
// measured in the camera plane; tracker depth is too noisy to contribute.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// PalmSpan returns the wrist to middle-finger-MCP distance, the scale unit
// used to make pair distances invariant to how far the hand is from the
// camera. The caller must have validated the frame first.
func (f *Frame) PalmSpan() float64 {
	return Distance(f.Points[Wrist], f.Points[MiddleMCP])
}

// Clone returns a deep copy of the frame. Sources reuse decode buffers, so
// consumers that retain frames past one tick must clone them.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Points = make([]Point3D, len(f.Points))
	copy(c.Points, f.Points)
	return &c
}
