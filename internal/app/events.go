package app

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/pointer"
)

// EventType discriminates pipeline events on the stream.
type EventType string

const (
	// EventState is emitted when the pointer mode changes.
	EventState EventType = "state"
	// EventCommand is emitted for every dispatched press, release or
	// scroll step. Movement commands are not streamed.
	EventCommand EventType = "command"
	// EventTracking is emitted when hand tracking is lost or reacquired.
	EventTracking EventType = "tracking"
	// EventEnabled is emitted when pointer control is toggled.
	EventEnabled EventType = "enabled"
	// EventTuning is emitted after a live tuning update.
	EventTuning EventType = "tuning"
)

// Event is one entry on the pipeline event stream.
type Event struct {
	Type     EventType        `json:"type"`
	State    string           `json:"state,omitempty"`
	Command  *pointer.Command `json:"command,omitempty"`
	Enabled  *bool            `json:"enabled,omitempty"`
	Tracking *bool            `json:"tracking,omitempty"`
	At       time.Time        `json:"at"`
}

// eventBuffer is the per-subscriber queue depth. Subscribers that fall
// further behind lose events rather than stalling the pipeline.
const eventBuffer = 32

type subscribers struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[chan Event]struct{})}
}

func (s *subscribers) add() (chan Event, func()) {
	ch := make(chan Event, eventBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *subscribers) publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers an event listener. The returned cancel func must be
// called to release it; the channel is closed on cancel.
func (a *App) Subscribe() (<-chan Event, func()) {
	return a.subs.add()
}

func (a *App) publish(events []Event) {
	for _, e := range events {
		a.subs.publish(e)
	}
}

func stateEvent(state string) Event {
	return Event{Type: EventState, State: state, At: time.Now()}
}

func commandEvent(cmd pointer.Command) Event {
	c := cmd
	return Event{Type: EventCommand, Command: &c, At: time.Now()}
}

func trackingEvent(tracking bool) Event {
	t := tracking
	return Event{Type: EventTracking, Tracking: &t, At: time.Now()}
}

func enabledEvent(enabled bool) Event {
	e := enabled
	return Event{Type: EventEnabled, Enabled: &e, At: time.Now()}
}
