package landmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Source supplies one value per camera tick: a frame when a hand was
// detected, (nil, nil) when no hand was detected, and io.EOF once the
// source is exhausted. Implementations pace the stream themselves.
type Source interface {
	Next() (*Frame, error)
	Close() error
}

// wireTick is the JSON-lines format emitted by tracker processes and stored
// in replay scripts: one object per camera tick.
type wireTick struct {
	Hands       []wireHand `json:"hands"`
	TimestampMs int64      `json:"timestamp_ms"`
}

type wireHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// frame selects the hand to process for this tick: the highest-scoring hand
// matching the handedness preference, or nil when none qualifies. Point
// counts are passed through untouched so downstream validation still sees
// malformed input.
func (t *wireTick) frame(prefer Handedness) *Frame {
	var best *wireHand
	for i := range t.Hands {
		h := &t.Hands[i]
		if prefer != "" && prefer != HandUnknown && Handedness(h.Handedness) != prefer {
			continue
		}
		if best == nil || h.Score > best.Score {
			best = h
		}
	}
	if best == nil {
		return nil
	}

	ts := time.Now()
	if t.TimestampMs > 0 {
		ts = time.UnixMilli(t.TimestampMs)
	}

	return &Frame{
		Points:     best.Points,
		Handedness: Handedness(best.Handedness),
		Score:      best.Score,
		Timestamp:  ts,
	}
}

// ReadScript parses a JSON-lines tick stream into frames, one entry per
// tick with nil marking ticks where no hand was detected. Blank lines are
// skipped so hand-edited scripts stay forgiving.
func ReadScript(r io.Reader) ([]*Frame, error) {
	var frames []*Frame

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var tick wireTick
		if err := json.Unmarshal(raw, &tick); err != nil {
			return nil, fmt.Errorf("script line %d: %w", line, err)
		}
		frames = append(frames, tick.frame(""))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return frames, nil
}

// ScriptSource replays a fixed sequence of frames. It is the deterministic
// source used by tests and by `mudra replay`.
type ScriptSource struct {
	frames   []*Frame
	index    int
	loop     bool
	interval time.Duration
	mu       sync.Mutex
}

// NewScriptSource creates a ScriptSource over the given frames. Nil entries
// are "no hand" ticks.
func NewScriptSource(frames []*Frame) *ScriptSource {
	return &ScriptSource{frames: frames}
}

// SetLoop makes the source restart from the beginning instead of returning
// io.EOF when the sequence ends.
func (s *ScriptSource) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = loop
}

// SetInterval adds a fixed delay before each tick, simulating camera pacing.
func (s *ScriptSource) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Next returns the next scripted tick.
func (s *ScriptSource) Next() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, io.EOF
		}
		s.index = 0
	}

	if s.interval > 0 {
		time.Sleep(s.interval)
	}

	f := s.frames[s.index]
	s.index++
	return f, nil
}

// Close implements Source. It is a no-op for scripted playback.
func (s *ScriptSource) Close() error {
	return nil
}
