package landmark

import "time"

// Synthetic frames for tests and offline tooling. The open-hand pose keeps
// every finger pair well clear of any sensible threshold; the builder
// functions then place individual tips at exact palm-normalized distances so
// classifier behavior can be asserted against known geometry.

// openHandSpan is the wrist to middle-MCP distance of the synthetic pose.
const openHandSpan = 0.2

// OpenHandFrame returns a right hand with all fingers spread. Every pair
// measure sits above 0.4 in palm-normalized units.
func OpenHandFrame() *Frame {
	f := &Frame{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: HandRight,
		Score:      0.95,
		Timestamp:  time.Now(),
	}

	f.Points[Wrist] = Point3D{X: 0.50, Y: 0.82}

	f.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.78}
	f.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.73}
	f.Points[ThumbIP] = Point3D{X: 0.63, Y: 0.68}
	f.Points[ThumbTip] = Point3D{X: 0.66, Y: 0.63}

	f.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.62}
	f.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.54}
	f.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.47}
	f.Points[IndexTip] = Point3D{X: 0.59, Y: 0.41}

	f.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.62}
	f.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.53}
	f.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.46}
	f.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.40}

	f.Points[RingMCP] = Point3D{X: 0.44, Y: 0.63}
	f.Points[RingPIP] = Point3D{X: 0.43, Y: 0.56}
	f.Points[RingDIP] = Point3D{X: 0.425, Y: 0.50}
	f.Points[RingTip] = Point3D{X: 0.42, Y: 0.44}

	f.Points[PinkyMCP] = Point3D{X: 0.38, Y: 0.65}
	f.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.58}
	f.Points[PinkyDIP] = Point3D{X: 0.365, Y: 0.53}
	f.Points[PinkyTip] = Point3D{X: 0.36, Y: 0.48}

	return f
}

// placeAt moves the landmark at idx to the given palm-normalized distance
// from an anchor point, offset along the x axis.
func placeAt(f *Frame, idx int, anchor Point3D, dist float64) {
	f.Points[idx] = Point3D{X: anchor.X + dist*openHandSpan, Y: anchor.Y, Z: anchor.Z}
}

// PinchFrame returns an open hand with the thumb-index pair at the given
// palm-normalized distance: the left-click gesture.
func PinchFrame(dist float64) *Frame {
	f := OpenHandFrame()
	placeAt(f, IndexTip, f.Points[ThumbTip], dist)
	return f
}

// RightPinchFrame returns an open hand with the thumb-middle pair at the
// given distance: the right-click gesture.
func RightPinchFrame(dist float64) *Frame {
	f := OpenHandFrame()
	placeAt(f, MiddleTip, f.Points[ThumbTip], dist)
	return f
}

// PrecisionMoveFrame returns an open hand with the index-middle pair at the
// given distance: the explicit move gesture.
func PrecisionMoveFrame(dist float64) *Frame {
	f := OpenHandFrame()
	placeAt(f, MiddleTip, f.Points[IndexTip], dist)
	return f
}

// ScrollPinchFrame returns an open hand with the middle-ring pair at the
// given distance: the scroll gesture.
func ScrollPinchFrame(dist float64) *Frame {
	f := OpenHandFrame()
	placeAt(f, RingTip, f.Points[MiddleTip], dist)
	return f
}

// CurlFrame returns an open hand with ring and pinky tips folded to the
// given distance from their MCP joints.
func CurlFrame(dist float64) *Frame {
	f := OpenHandFrame()
	placeAt(f, RingTip, f.Points[RingMCP], dist)
	placeAt(f, PinkyTip, f.Points[PinkyMCP], dist)
	return f
}

// DragFrame combines a thumb-index pinch with a ring-pinky curl: the drag
// gesture.
func DragFrame(pinch, curl float64) *Frame {
	f := CurlFrame(curl)
	placeAt(f, IndexTip, f.Points[ThumbTip], pinch)
	return f
}

// DragScrollFrame holds the drag compound and the middle-ring scroll pinch
// at the same time, for priority checks.
func DragScrollFrame(pinch, curl, scroll float64) *Frame {
	f := DragFrame(pinch, curl)
	placeAt(f, MiddleTip, f.Points[RingTip], scroll)
	return f
}

// TruncatedFrame returns an open hand cut down to n points, violating the
// 21-point contract.
func TruncatedFrame(n int) *Frame {
	f := OpenHandFrame()
	if n < len(f.Points) {
		f.Points = f.Points[:n]
	}
	return f
}

// Translate shifts every landmark by (dx, dy), preserving pair geometry.
// Used to script hand movement across the active region.
func Translate(f *Frame, dx, dy float64) *Frame {
	c := f.Clone()
	for i := range c.Points {
		c.Points[i].X += dx
		c.Points[i].Y += dy
	}
	return c
}
