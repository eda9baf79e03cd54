package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/store"
)

func TestAPI_ProfileWorkflow(t *testing.T) {
	// Setup
	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a := newTestApp(t)

	srv := New(Config{App: a, Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a profile without tuning; it snapshots the live tuning.
	createBody := `{"name": "couch-mode"}`
	resp, err := client.Post(ts.URL+"/api/profiles", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/profiles error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created store.Profile
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Name != "couch-mode" {
		t.Errorf("created name = %s, want couch-mode", created.Name)
	}
	if len(created.Tuning) == 0 {
		t.Error("created profile has no tuning snapshot")
	}

	// 2. List profiles
	resp, err = client.Get(ts.URL + "/api/profiles")
	if err != nil {
		t.Fatalf("GET /api/profiles error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/profiles status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Profiles []store.Profile `json:"profiles"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Profiles) != 1 {
		t.Fatalf("len(profiles) = %d, want 1", len(listed.Profiles))
	}

	// 3. Activate it
	resp, err = client.Post(ts.URL+"/api/profiles/"+created.ID+"/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST activate error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	active, err := s.Profiles().Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if active.ID != created.ID {
		t.Errorf("active profile = %s, want %s", active.ID, created.ID)
	}

	// 4. Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/profiles/"+created.ID, nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 5. Verify deleted
	resp, err = client.Get(ts.URL + "/api/profiles/" + created.ID)
	if err != nil {
		t.Fatalf("GET after delete error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_EventStream(t *testing.T) {
	a := newTestApp(t)

	srv := New(Config{App: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The first message is always a snapshot of the joined state.
	var first struct {
		Type     string       `json:"type"`
		Snapshot app.Snapshot `json:"snapshot"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("failed to read snapshot message: %v", err)
	}
	if first.Type != "snapshot" {
		t.Errorf("first message type = %q, want snapshot", first.Type)
	}
	if first.Snapshot.State != "idle" {
		t.Errorf("snapshot state = %q, want idle", first.Snapshot.State)
	}
	if !first.Snapshot.Enabled {
		t.Error("snapshot should report enabled")
	}

	// The snapshot arriving means the subscription is registered, so
	// this toggle must reach the stream.
	a.SetEnabled(false)

	var event app.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if event.Type != app.EventEnabled {
		t.Errorf("event type = %q, want %q", event.Type, app.EventEnabled)
	}
	if event.Enabled == nil || *event.Enabled {
		t.Error("expected a disabled event")
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
