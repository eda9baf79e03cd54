// Package pointer contains the pointer-event state machine and the command
// vocabulary it emits toward the OS-injection boundary.
package pointer

import (
	"encoding/json"
	"fmt"
)

// Button identifies a mouse button.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
)

// String returns the wire name of the button.
func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	}
	return "none"
}

// ParseButton maps a wire name onto a Button.
func ParseButton(name string) (Button, error) {
	switch name {
	case "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	}
	return ButtonNone, fmt.Errorf("unknown button %q", name)
}

// Kind is the command discriminator.
type Kind uint8

const (
	KindMoveTo Kind = iota
	KindMouseDown
	KindMouseUp
	KindScroll
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMoveTo:
		return "move_to"
	case KindMouseDown:
		return "mouse_down"
	case KindMouseUp:
		return "mouse_up"
	case KindScroll:
		return "scroll"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Command is one discrete pointer action. Commands are safe to replay:
// injectors must treat a MouseUp with no button held as a no-op.
type Command struct {
	Kind   Kind
	X      int
	Y      int
	Button Button
	Delta  int
}

// MoveTo positions the cursor at screen pixel (x, y).
func MoveTo(x, y int) Command {
	return Command{Kind: KindMoveTo, X: x, Y: y}
}

// MouseDown presses and holds the given button.
func MouseDown(b Button) Command {
	return Command{Kind: KindMouseDown, Button: b}
}

// MouseUp releases the given button.
func MouseUp(b Button) Command {
	return Command{Kind: KindMouseUp, Button: b}
}

// Scroll turns the wheel by delta steps; positive is downward.
func Scroll(delta int) Command {
	return Command{Kind: KindScroll, Delta: delta}
}

// String renders the command for logs and replay output.
func (c Command) String() string {
	switch c.Kind {
	case KindMoveTo:
		return fmt.Sprintf("move_to(%d, %d)", c.X, c.Y)
	case KindMouseDown:
		return fmt.Sprintf("mouse_down(%s)", c.Button)
	case KindMouseUp:
		return fmt.Sprintf("mouse_up(%s)", c.Button)
	case KindScroll:
		return fmt.Sprintf("scroll(%d)", c.Delta)
	}
	return "unknown"
}

// wireCommand is the JSON-lines representation consumed by injector
// processes and emitted on the websocket event stream.
type wireCommand struct {
	Type   string `json:"type"`
	X      *int   `json:"x,omitempty"`
	Y      *int   `json:"y,omitempty"`
	Button string `json:"button,omitempty"`
	Delta  *int   `json:"delta,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Command) MarshalJSON() ([]byte, error) {
	w := wireCommand{Type: c.Kind.String()}
	switch c.Kind {
	case KindMoveTo:
		x, y := c.X, c.Y
		w.X, w.Y = &x, &y
	case KindMouseDown, KindMouseUp:
		w.Button = c.Button.String()
	case KindScroll:
		d := c.Delta
		w.Delta = &d
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Type {
	case "move_to":
		if w.X == nil || w.Y == nil {
			return fmt.Errorf("move_to command missing coordinates")
		}
		*c = MoveTo(*w.X, *w.Y)
	case "mouse_down", "mouse_up":
		b, err := ParseButton(w.Button)
		if err != nil {
			return err
		}
		if w.Type == "mouse_down" {
			*c = MouseDown(b)
		} else {
			*c = MouseUp(b)
		}
	case "scroll":
		if w.Delta == nil {
			return fmt.Errorf("scroll command missing delta")
		}
		*c = Scroll(*w.Delta)
	default:
		return fmt.Errorf("unknown command type %q", w.Type)
	}
	return nil
}
