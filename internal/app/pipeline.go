package app

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/pointer"
	"github.com/ayusman/mudra/internal/store"
)

// flushInterval is how often running session counters are persisted.
const flushInterval = 5 * time.Second

// runPipeline is the frame loop. Every tick from the landmark source is
// classified, smoothed and fed to the state machine; the resulting
// commands go out through the dispatch port in order.
//
// The loop exits when Stop is signalled or the source reports EOF. On the
// way out it force-releases any held button so no phantom press outlives
// the pipeline.
func (a *App) runPipeline(stopCh, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stopCh:
			a.shutdown("stop requested")
			return
		default:
		}

		frame, err := a.cfg.Source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.shutdown("landmark source exhausted")
				return
			}
			// A read error during shutdown is just the source closing
			// under us.
			select {
			case <-stopCh:
				a.shutdown("stop requested")
				return
			default:
			}
			log.Printf("Error reading frame: %v", err)
			a.mu.Lock()
			a.counters.DroppedFrames++
			a.mu.Unlock()
			continue
		}

		a.publish(a.processFrame(frame))
	}
}

// processFrame advances the pipeline by one tick. A nil frame is a
// no-hand tick. The returned events are published by the caller, outside
// the lock.
func (a *App) processFrame(frame *landmark.Frame) []Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled {
		// Disabled: frames are consumed to keep the source drained, but
		// nothing reaches the state machine. The held button was already
		// released when the toggle flipped.
		return nil
	}

	var events []Event
	a.counters.Frames++
	prevState := a.machine.State()
	wasLost := a.machine.TrackingLost()

	var cmds []pointer.Command
	if frame == nil {
		cmds = a.machine.StepAbsent()
		if a.machine.TrackingLost() && !wasLost {
			// The cursor must snap, not glide, when the hand returns.
			a.smoother.Reset()
			a.haveSample = false
			events = append(events, trackingEvent(false))
			log.Println("Hand tracking lost")
		}
	} else {
		sample, err := a.classifier.Classify(frame)
		if err != nil {
			// Malformed frames are dropped whole: no classification, no
			// cursor update, no absence tick.
			a.counters.DroppedFrames++
			log.Printf("Dropped frame: %v", err)
			a.flushCountersLocked()
			return events
		}
		if wasLost {
			a.smoother.Reset()
			events = append(events, trackingEvent(true))
			log.Println("Hand tracking reacquired")
		}
		cur := a.smoother.Update(frame)
		cmds = a.machine.Step(sample, cur)
		a.lastSample = sample
		a.haveSample = true
	}

	events = append(events, a.dispatchLocked(cmds)...)

	if st := a.machine.State(); st != prevState {
		if st == pointer.Dragging {
			a.counters.Drags++
		}
		events = append(events, stateEvent(st.String()))
	}

	a.flushCountersLocked()
	return events
}

// dispatchLocked sends commands out the port, keeping counters and the
// audit log. A dispatch failure is logged and skipped; the machine's view
// of held buttons stays authoritative.
func (a *App) dispatchLocked(cmds []pointer.Command) []Event {
	var events []Event
	for _, cmd := range cmds {
		if err := a.cfg.Port.Dispatch(cmd); err != nil {
			log.Printf("Failed to dispatch %s: %v", cmd, err)
			continue
		}
		a.counters.Commands++
		switch cmd.Kind {
		case pointer.KindMouseDown:
			a.counters.Clicks++
		case pointer.KindScroll:
			a.counters.Scrolls++
		}
		if cmd.Kind != pointer.KindMoveTo {
			a.auditLocked(cmd)
			events = append(events, commandEvent(cmd))
		}
	}
	return events
}

// auditLocked records a press, release or scroll step for the session.
func (a *App) auditLocked(cmd pointer.Command) {
	if a.cfg.Store == nil || a.sessionID == "" {
		return
	}

	x, y := a.smoother.Current().Position()
	e := &store.PointerEvent{
		SessionID: a.sessionID,
		Kind:      cmd.Kind.String(),
		Delta:     cmd.Delta,
		X:         x,
		Y:         y,
	}
	if cmd.Kind == pointer.KindMouseDown || cmd.Kind == pointer.KindMouseUp {
		e.Button = cmd.Button.String()
	}
	if err := a.cfg.Store.Events().Add(e); err != nil {
		log.Printf("Failed to record pointer event: %v", err)
	}
}

// flushCountersLocked persists running totals at most once per interval.
func (a *App) flushCountersLocked() {
	if a.cfg.Store == nil || a.sessionID == "" {
		return
	}
	if time.Since(a.lastFlush) < flushInterval {
		return
	}
	a.lastFlush = time.Now()
	if err := a.cfg.Store.Sessions().UpdateCounters(a.sessionID, a.counters); err != nil {
		log.Printf("Failed to persist session counters: %v", err)
	}
}

// shutdown is the pipeline's last act: release held buttons, close out
// the session row and mark the app stopped.
func (a *App) shutdown(reason string) {
	a.mu.Lock()
	events := a.dispatchLocked(a.machine.ForceRelease())
	a.running = false
	if a.cfg.Store != nil && a.sessionID != "" {
		if err := a.cfg.Store.Sessions().Finish(a.sessionID, a.counters); err != nil {
			log.Printf("Failed to finish session: %v", err)
		}
	}
	a.mu.Unlock()

	a.publish(events)
	log.Printf("Pointer pipeline exiting: %s", reason)
}
