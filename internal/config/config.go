// Package config defines the validated runtime tuning for the mudra
// pipeline and the process environment settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/landmark"
)

// maxTuningFileSize guards against loading something that is not a tuning
// file by mistake.
const maxTuningFileSize = 1 << 20

// PairThresholds holds the hysteresis band for one finger pair, in
// palm-normalized distance units. Enter must be strictly below exit.
type PairThresholds struct {
	Enter float64 `json:"enter"`
	Exit  float64 `json:"exit"`
}

// Thresholds holds the hysteresis bands for all five finger pairs.
type Thresholds struct {
	ThumbIndex  PairThresholds `json:"thumb_index"`
	ThumbMiddle PairThresholds `json:"thumb_middle"`
	IndexMiddle PairThresholds `json:"index_middle"`
	MiddleRing  PairThresholds `json:"middle_ring"`
	RingPinky   PairThresholds `json:"ring_pinky"`
}

// Debounce holds the per-gesture frame counts a predicate must hold before
// the state machine acts on it. Each count also gates the matching release.
type Debounce struct {
	LeftClick  int `json:"left_click"`
	RightClick int `json:"right_click"`
	Drag       int `json:"drag"`
	Scroll     int `json:"scroll"`
}

// Region is the active sub-rectangle of the camera frame, in normalized
// coordinates, that maps onto the full screen.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Screen is the target screen resolution in pixels.
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Tuning is the full runtime configuration of the pipeline. Every field is
// required; Validate rejects anything the core would have to guess at.
type Tuning struct {
	Thresholds     Thresholds `json:"thresholds"`
	Debounce       Debounce   `json:"debounce"`
	SmoothingAlpha float64    `json:"smoothing_alpha"`
	Region         Region     `json:"region"`
	Screen         Screen     `json:"screen"`
	DecayFrames    int        `json:"decay_frames"`
	TrackLandmark  int        `json:"track_landmark"`
	ScrollGain     float64    `json:"scroll_gain"`
	ScrollMaxStep  int        `json:"scroll_max_step"`
	Hand           string     `json:"hand"`
}

// Default returns the stock tuning. The thresholds derive from the same
// empirical values the reference tracker ships with; they assume distances
// normalized by palm span.
func Default() Tuning {
	return Tuning{
		Thresholds: Thresholds{
			ThumbIndex:  PairThresholds{Enter: 0.22, Exit: 0.31},
			ThumbMiddle: PairThresholds{Enter: 0.22, Exit: 0.31},
			IndexMiddle: PairThresholds{Enter: 0.28, Exit: 0.38},
			MiddleRing:  PairThresholds{Enter: 0.24, Exit: 0.33},
			RingPinky:   PairThresholds{Enter: 0.40, Exit: 0.55},
		},
		Debounce: Debounce{
			LeftClick:  3,
			RightClick: 3,
			Drag:       3,
			Scroll:     2,
		},
		SmoothingAlpha: 0.4,
		Region:         Region{X: 0.15, Y: 0.15, Width: 0.7, Height: 0.7},
		Screen:         Screen{Width: 1920, Height: 1080},
		DecayFrames:    15,
		TrackLandmark:  landmark.IndexTip,
		ScrollGain:     0.5,
		ScrollMaxStep:  30,
		Hand:           "any",
	}
}

// Load reads and validates a tuning file.
func Load(path string) (Tuning, error) {
	var t Tuning

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return t, fmt.Errorf("tuning file must be .json, got %q", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return t, fmt.Errorf("stat tuning file: %w", err)
	}
	if info.Size() > maxTuningFileSize {
		return t, fmt.Errorf("tuning file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}

	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file: %w", err)
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning file %s: %w", path, err)
	}

	return t, nil
}

// Validate checks every field. It returns the first violation found.
func (t Tuning) Validate() error {
	pairs := []struct {
		name string
		pt   PairThresholds
	}{
		{"thumb_index", t.Thresholds.ThumbIndex},
		{"thumb_middle", t.Thresholds.ThumbMiddle},
		{"index_middle", t.Thresholds.IndexMiddle},
		{"middle_ring", t.Thresholds.MiddleRing},
		{"ring_pinky", t.Thresholds.RingPinky},
	}
	for _, p := range pairs {
		if p.pt.Enter <= 0 {
			return fmt.Errorf("thresholds.%s.enter must be positive, got %v", p.name, p.pt.Enter)
		}
		if p.pt.Enter >= p.pt.Exit {
			return fmt.Errorf("thresholds.%s: enter (%v) must be below exit (%v)", p.name, p.pt.Enter, p.pt.Exit)
		}
	}

	counts := []struct {
		name string
		n    int
	}{
		{"left_click", t.Debounce.LeftClick},
		{"right_click", t.Debounce.RightClick},
		{"drag", t.Debounce.Drag},
		{"scroll", t.Debounce.Scroll},
	}
	for _, c := range counts {
		if c.n < 1 {
			return fmt.Errorf("debounce.%s must be at least 1, got %d", c.name, c.n)
		}
	}

	if t.SmoothingAlpha <= 0 || t.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing_alpha must be in (0, 1], got %v", t.SmoothingAlpha)
	}

	r := t.Region
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("region must have positive size, got %vx%v", r.Width, r.Height)
	}
	if r.X < 0 || r.Y < 0 || r.X+r.Width > 1 || r.Y+r.Height > 1 {
		return fmt.Errorf("region must lie within the unit square, got x=%v y=%v w=%v h=%v", r.X, r.Y, r.Width, r.Height)
	}

	if t.Screen.Width < 1 || t.Screen.Height < 1 {
		return fmt.Errorf("screen resolution must be positive, got %dx%d", t.Screen.Width, t.Screen.Height)
	}

	if t.DecayFrames < 1 {
		return fmt.Errorf("decay_frames must be at least 1, got %d", t.DecayFrames)
	}

	if t.TrackLandmark < 0 || t.TrackLandmark >= landmark.NumLandmarks {
		return fmt.Errorf("track_landmark must be in [0, %d], got %d", landmark.NumLandmarks-1, t.TrackLandmark)
	}

	if t.ScrollGain <= 0 {
		return fmt.Errorf("scroll_gain must be positive, got %v", t.ScrollGain)
	}
	if t.ScrollMaxStep < 1 {
		return fmt.Errorf("scroll_max_step must be at least 1, got %d", t.ScrollMaxStep)
	}

	switch strings.ToLower(t.Hand) {
	case "", "any", "left", "right":
	default:
		return fmt.Errorf("hand must be any, left or right, got %q", t.Hand)
	}

	return nil
}

// PreferredHand maps the hand setting onto the landmark handedness filter.
func (t Tuning) PreferredHand() landmark.Handedness {
	switch strings.ToLower(t.Hand) {
	case "left":
		return landmark.HandLeft
	case "right":
		return landmark.HandRight
	default:
		return ""
	}
}
