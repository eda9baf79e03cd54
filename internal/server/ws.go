package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler streams pipeline events to websocket clients.
type EventsHandler struct {
	app *app.App
}

// NewEventsHandler creates a new EventsHandler for the given app.
func NewEventsHandler(a *app.App) *EventsHandler {
	return &EventsHandler{app: a}
}

// snapshotEvent is the first message on every connection, carrying the
// state the client is joining into.
type snapshotEvent struct {
	Type     string       `json:"type"`
	Snapshot app.Snapshot `json:"snapshot"`
}

// ServeHTTP upgrades the connection and forwards pipeline events until
// either side goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.app.Subscribe()
	defer cancel()

	// Client messages are discarded; the read loop only notices the
	// connection closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(snapshotEvent{Type: "snapshot", Snapshot: h.app.Snapshot()}); err != nil {
		return
	}

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
