// Package app wires the landmark source, gesture classifier, cursor
// smoother and pointer state machine into the running pipeline, and
// exposes the control surface the HTTP layer talks to.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/cursor"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/pointer"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the pieces the pipeline runs on.
type Config struct {
	// Source delivers landmark frames; the app owns closing it.
	Source landmark.Source
	// Port receives the resulting pointer commands.
	Port dispatch.Port
	// Store is optional; without it sessions and events are not recorded.
	Store *store.Store
	// Tuning is the initial tuning; it must validate.
	Tuning config.Tuning
}

// App orchestrates the frame-to-command pipeline.
type App struct {
	cfg Config

	mu         sync.RWMutex
	classifier *gesture.Classifier
	smoother   *cursor.Smoother
	machine    *pointer.Machine
	tuning     config.Tuning
	enabled    bool
	running    bool
	stopCh     chan struct{}
	done       chan struct{}
	sessionID  string
	counters   store.SessionCounters
	lastFlush  time.Time
	lastSample gesture.Sample
	haveSample bool

	subs *subscribers
}

// New creates a new App instance with the given configuration.
func New(cfg Config) (*App, error) {
	if cfg.Source == nil {
		return nil, errors.New("app: landmark source is required")
	}
	if cfg.Port == nil {
		return nil, errors.New("app: dispatch port is required")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("app: invalid tuning: %w", err)
	}

	return &App{
		cfg:        cfg,
		classifier: gesture.NewClassifier(cfg.Tuning.Thresholds),
		smoother:   cursor.NewSmoother(cfg.Tuning),
		machine:    pointer.NewMachine(cfg.Tuning),
		tuning:     cfg.Tuning,
		enabled:    true,
		subs:       newSubscribers(),
	}, nil
}

// Start begins the pipeline. Starting a running app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	a.sessionID = ""
	a.counters = store.SessionCounters{}
	if a.cfg.Store != nil {
		id := uuid.New().String()
		if err := a.cfg.Store.Sessions().Create(&store.Session{ID: id}); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		a.sessionID = id
	}

	a.lastFlush = time.Now()
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	a.running = true
	go a.runPipeline(a.stopCh, a.done)

	if a.sessionID != "" {
		log.Printf("Pointer pipeline started (session %s)", a.sessionID)
	} else {
		log.Println("Pointer pipeline started")
	}
	return nil
}

// Stop halts the pipeline, releases any held button and closes the
// landmark source and the dispatch port.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	stopCh, done := a.stopCh, a.done
	a.stopCh = nil
	a.mu.Unlock()

	close(stopCh)
	// Unblock a pending read; the pipeline drains and force-releases on
	// its way out.
	if err := a.cfg.Source.Close(); err != nil {
		log.Printf("Error closing landmark source: %v", err)
	}
	<-done

	if err := a.cfg.Port.Close(); err != nil {
		log.Printf("Error closing dispatch port: %v", err)
	}
	log.Println("Pointer pipeline stopped")
}

// Done reports pipeline termination; the channel closes when the
// pipeline goroutine exits, including a self-stop on source exhaustion.
// It is only valid after Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Running reports whether the pipeline goroutine is alive.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// SetEnabled toggles pointer control. Disabling releases any held button
// and clears gesture and cursor state so re-enabling starts clean.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	if a.enabled == enabled {
		a.mu.Unlock()
		return
	}
	a.enabled = enabled

	var events []Event
	if !enabled {
		events = a.dispatchLocked(a.machine.ForceRelease())
		a.classifier.Reset()
		a.smoother.Reset()
		a.haveSample = false
	}
	if a.cfg.Store != nil {
		if err := a.cfg.Store.Settings().SetBool(store.SettingEnabled, enabled); err != nil {
			log.Printf("Failed to persist enabled flag: %v", err)
		}
	}
	a.mu.Unlock()

	events = append(events, enabledEvent(enabled))
	a.publish(events)
	log.Printf("Pointer control enabled=%v", enabled)
}

// IsEnabled returns whether pointer control is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// UpdateTuning applies a new tuning to the live pipeline. Engagement
// state, the held button and the cursor position all carry over.
func (a *App) UpdateTuning(t config.Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.tuning = t
	a.classifier.SetThresholds(t.Thresholds)
	a.smoother.SetTuning(t)
	a.machine.SetTuning(t)
	a.mu.Unlock()

	a.publish([]Event{{Type: EventTuning, At: time.Now()}})
	log.Println("Tuning updated")
	return nil
}

// Tuning returns the active tuning.
func (a *App) Tuning() config.Tuning {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tuning
}

// Store returns the backing store, which may be nil.
func (a *App) Store() *store.Store {
	return a.cfg.Store
}

// PairStatus describes one finger pair in a snapshot.
type PairStatus struct {
	Engaged    bool    `json:"engaged"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is the observable pipeline state at a point in time.
type Snapshot struct {
	Running   bool                  `json:"running"`
	Enabled   bool                  `json:"enabled"`
	State     string                `json:"state"`
	Tracking  bool                  `json:"tracking"`
	CursorX   int                   `json:"cursor_x"`
	CursorY   int                   `json:"cursor_y"`
	SessionID string                `json:"session_id,omitempty"`
	Counters  store.SessionCounters `json:"counters"`
	Pairs     map[string]PairStatus `json:"pairs,omitempty"`
}

// Snapshot returns the current pipeline state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	x, y := a.smoother.Current().Position()
	snap := Snapshot{
		Running:   a.running,
		Enabled:   a.enabled,
		State:     a.machine.State().String(),
		Tracking:  !a.machine.TrackingLost(),
		CursorX:   x,
		CursorY:   y,
		SessionID: a.sessionID,
		Counters:  a.counters,
	}

	if a.haveSample {
		snap.Pairs = make(map[string]PairStatus, len(gesture.Pairs()))
		for _, p := range gesture.Pairs() {
			st := a.lastSample.Pairs[p]
			snap.Pairs[p.String()] = PairStatus{
				Engaged:    st.Engaged,
				Distance:   st.Distance,
				Confidence: st.Confidence,
			}
		}
	}
	return snap
}
