package pointer

import (
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/cursor"
	"github.com/ayusman/mudra/internal/gesture"
)

// State is the machine's current mode. Exactly one is active at a time.
type State uint8

const (
	Idle State = iota
	LeftPressed
	RightPressed
	Dragging
	Scrolling
)

// String returns the state's wire name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LeftPressed:
		return "left_pressed"
	case RightPressed:
		return "right_pressed"
	case Dragging:
		return "dragging"
	case Scrolling:
		return "scrolling"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// The gestures the machine debounces. Each has an independent pair of
// consecutive-frame counters.
type gestureKind int

const (
	gLeft gestureKind = iota
	gRight
	gDrag
	gScroll
	gestureCount
)

// Machine turns per-frame gesture samples and cursor positions into
// discrete pointer commands. It owns the press/drag/scroll mode, the
// per-gesture debounce counters, and the tracking-loss decay counter.
//
// The machine is not safe for concurrent use; the pipeline loop is its
// only caller.
type Machine struct {
	debounce config.Debounce
	decay    int
	gain     float64
	maxStep  int

	state  State
	held   Button
	hold   [gestureCount]int // consecutive frames each predicate held
	miss   [gestureCount]int // consecutive frames each predicate was absent
	absent int               // consecutive no-hand ticks

	lastY    float64
	haveLast bool
}

// NewMachine creates a machine from validated tuning, starting in Idle.
func NewMachine(t config.Tuning) *Machine {
	m := &Machine{}
	m.SetTuning(t)
	return m
}

// SetTuning swaps debounce, decay and scroll parameters. Mode and counters
// carry over so a live update cannot orphan a held button.
func (m *Machine) SetTuning(t config.Tuning) {
	m.debounce = t.Debounce
	m.decay = t.DecayFrames
	m.gain = t.ScrollGain
	m.maxStep = t.ScrollMaxStep
}

// State returns the current mode.
func (m *Machine) State() State {
	return m.state
}

// Held returns the button the machine believes is pressed, ButtonNone when
// none is. This internal notion is authoritative regardless of whether
// dispatch of the press succeeded.
func (m *Machine) Held() Button {
	return m.held
}

// TrackingLost reports whether the decay timeout has expired without a
// hand. The pipeline uses it to snap the smoother on re-acquisition.
func (m *Machine) TrackingLost() bool {
	return m.absent >= m.decay
}

// Step advances the machine by one frame with a hand present. It returns
// the commands to dispatch for this frame, in order.
func (m *Machine) Step(s gesture.Sample, cur cursor.State) []Command {
	m.absent = 0

	left := s.Engaged(gesture.ThumbIndex)
	right := s.Engaged(gesture.ThumbMiddle)
	drag := left && s.Engaged(gesture.RingPinky)
	scroll := s.Engaged(gesture.MiddleRing)

	// Counters accumulate for every gesture every frame, whatever the
	// current mode, so a lower-priority gesture that was already building
	// can fire as soon as the mode allows it.
	m.bump(gLeft, left)
	m.bump(gRight, right)
	m.bump(gDrag, drag)
	m.bump(gScroll, scroll)

	var cmds []Command
	prev := m.state

	// At most one transition per frame, evaluated in priority order:
	// drag, then clicks, then scroll.
	switch m.state {
	case Dragging:
		if m.miss[gDrag] >= m.debounce.Drag {
			cmds = append(cmds, MouseUp(ButtonLeft))
			m.held = ButtonNone
			m.state = Idle
		}

	case LeftPressed:
		if m.hold[gDrag] >= m.debounce.Drag {
			// Button is already down; the press turns into a drag.
			m.state = Dragging
		} else if m.miss[gLeft] >= m.debounce.LeftClick {
			cmds = append(cmds, MouseUp(ButtonLeft))
			m.held = ButtonNone
			m.state = Idle
		}

	case RightPressed:
		if m.miss[gRight] >= m.debounce.RightClick {
			cmds = append(cmds, MouseUp(ButtonRight))
			m.held = ButtonNone
			m.state = Idle
		}

	case Scrolling:
		if m.miss[gScroll] >= m.debounce.Scroll {
			m.state = Idle
		}

	case Idle:
		switch {
		case m.hold[gDrag] >= m.debounce.Drag:
			m.state = Dragging
			if m.held != ButtonLeft {
				cmds = append(cmds, MouseDown(ButtonLeft))
				m.held = ButtonLeft
			}
		case m.hold[gLeft] >= m.debounce.LeftClick:
			m.state = LeftPressed
			cmds = append(cmds, MouseDown(ButtonLeft))
			m.held = ButtonLeft
		case m.hold[gRight] >= m.debounce.RightClick:
			m.state = RightPressed
			cmds = append(cmds, MouseDown(ButtonRight))
			m.held = ButtonRight
		case m.hold[gScroll] >= m.debounce.Scroll && !drag && !left && !right:
			// A click or drag predicate that is merely present outranks
			// scroll entry even before its own counter matures.
			m.state = Scrolling
		}
	}

	// Per-frame output for the mode we ended up in.
	switch m.state {
	case Idle:
		// Pure move mode: an index-middle pinch is the explicit precision
		// gesture and does not block movement, anything else does.
		if !left && !right && !scroll {
			x, y := cur.Position()
			cmds = append(cmds, MoveTo(x, y))
		}

	case Dragging:
		// The engage frame emits only the press; movement resumes on the
		// next frame.
		if prev == Dragging {
			x, y := cur.Position()
			cmds = append(cmds, MoveTo(x, y))
		}

	case Scrolling:
		if prev == Scrolling && m.haveLast {
			if delta := m.scrollDelta(cur.Y); delta != 0 {
				cmds = append(cmds, Scroll(delta))
			}
		}
	}

	m.lastY = cur.Y
	m.haveLast = true

	return cmds
}

// StepAbsent advances the machine by one tick without a hand. After the
// decay timeout it forces Idle, releasing a held button exactly once.
func (m *Machine) StepAbsent() []Command {
	m.absent++

	// Absence interrupts every gesture's consecutive-frame evidence.
	m.hold = [gestureCount]int{}
	m.miss = [gestureCount]int{}

	if m.absent != m.decay {
		return nil
	}

	var cmds []Command
	if m.held != ButtonNone {
		cmds = append(cmds, MouseUp(m.held))
		m.held = ButtonNone
	}
	m.state = Idle
	m.haveLast = false
	return cmds
}

// ForceRelease drops the machine back to Idle, emitting MouseUp for a held
// button. Called on shutdown and when the pipeline is disabled; a held
// button surviving either is a correctness bug.
func (m *Machine) ForceRelease() []Command {
	var cmds []Command
	if m.held != ButtonNone {
		cmds = append(cmds, MouseUp(m.held))
		m.held = ButtonNone
	}
	m.state = Idle
	m.hold = [gestureCount]int{}
	m.miss = [gestureCount]int{}
	m.absent = 0
	m.haveLast = false
	return cmds
}

// bump advances one gesture's evidence counters.
func (m *Machine) bump(g gestureKind, active bool) {
	if active {
		m.hold[g]++
		m.miss[g] = 0
	} else {
		m.miss[g]++
		m.hold[g] = 0
	}
}

// scrollDelta scales the vertical cursor movement since the last frame
// into wheel steps, clamped to the configured maximum.
func (m *Machine) scrollDelta(y float64) int {
	delta := int(math.Round((y - m.lastY) * m.gain))
	if delta > m.maxStep {
		delta = m.maxStep
	}
	if delta < -m.maxStep {
		delta = -m.maxStep
	}
	return delta
}
