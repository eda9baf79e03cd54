// Package cursor filters a tracked landmark into a stable screen-space
// pointer position.
package cursor

import (
	"time"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/landmark"
)

// State is the smoothed cursor position in screen-pixel space. Coordinates
// stay float64 internally so smoothing error does not accumulate from
// repeated rounding.
type State struct {
	X         float64
	Y         float64
	UpdatedAt time.Time
}

// Position returns the pixel coordinates to dispatch.
func (s State) Position() (int, int) {
	return int(s.X + 0.5), int(s.Y + 0.5)
}

// Smoother maps the tracked landmark through the active region onto the
// screen and applies an exponential moving average:
//
//	smoothed = alpha*raw + (1-alpha)*smoothed_prev
//
// The active region is a sub-rectangle of the camera frame, so the hand
// reaches screen edges without reaching frame edges; positions outside the
// region clamp to its border.
type Smoother struct {
	alpha  float64
	region config.Region
	screen config.Screen
	track  int
	state  State
	primed bool
}

// NewSmoother creates a smoother from validated tuning.
func NewSmoother(t config.Tuning) *Smoother {
	s := &Smoother{}
	s.SetTuning(t)
	return s
}

// SetTuning swaps smoothing parameters. The current position carries over.
func (s *Smoother) SetTuning(t config.Tuning) {
	s.alpha = t.SmoothingAlpha
	s.region = t.Region
	s.screen = t.Screen
	s.track = t.TrackLandmark
}

// Reset discards the smoothed position; the next update primes it directly
// instead of gliding over from the stale one. The pipeline resets after a
// tracking-loss decay so a hand reappearing elsewhere snaps into place.
func (s *Smoother) Reset() {
	s.primed = false
}

// Update advances the cursor with the tracked landmark of a validated
// frame and returns the new state.
func (s *Smoother) Update(f *landmark.Frame) State {
	p := f.Points[s.track]

	x := s.mapAxis(p.X, s.region.X, s.region.Width, s.screen.Width)
	y := s.mapAxis(p.Y, s.region.Y, s.region.Height, s.screen.Height)

	if !s.primed {
		s.state.X = x
		s.state.Y = y
		s.primed = true
	} else {
		s.state.X = s.alpha*x + (1-s.alpha)*s.state.X
		s.state.Y = s.alpha*y + (1-s.alpha)*s.state.Y
	}

	s.state.UpdatedAt = f.Timestamp
	if s.state.UpdatedAt.IsZero() {
		s.state.UpdatedAt = time.Now()
	}

	return s.state
}

// Current returns the cursor state without advancing it.
func (s *Smoother) Current() State {
	return s.state
}

// mapAxis projects one normalized coordinate through the active region onto
// [0, size-1] pixels, clamping at the region border.
func (s *Smoother) mapAxis(v, origin, extent float64, size int) float64 {
	u := (v - origin) / extent
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	return u * float64(size-1)
}
