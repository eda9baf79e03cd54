package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "mudra-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// fakePipeline records tuning updates so activation can be observed
// without a running pipeline.
type fakePipeline struct {
	tuning  config.Tuning
	updates int
	fail    error
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{tuning: config.Default()}
}

func (p *fakePipeline) Tuning() config.Tuning { return p.tuning }

func (p *fakePipeline) UpdateTuning(t config.Tuning) error {
	if p.fail != nil {
		return p.fail
	}
	p.tuning = t
	p.updates++
	return nil
}

func mustTuningJSON(t *testing.T, tuning config.Tuning) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(tuning)
	if err != nil {
		t.Fatalf("failed to marshal tuning: %v", err)
	}
	return raw
}

func TestProfileHandler_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	pipeline := newFakePipeline()
	handler := NewProfileHandler(s, pipeline)

	reqBody := createProfileRequest{Name: "precision"}
	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/profiles", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var created store.Profile
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if created.ID == "" {
		t.Error("expected non-empty ID in response")
	}
	if created.Name != "precision" {
		t.Errorf("expected name 'precision', got %q", created.Name)
	}

	// Tuning was omitted, so the profile snapshots the pipeline's tuning.
	var snapshot config.Tuning
	if err := json.Unmarshal(created.Tuning, &snapshot); err != nil {
		t.Fatalf("failed to decode stored tuning: %v", err)
	}
	if snapshot.SmoothingAlpha != pipeline.tuning.SmoothingAlpha {
		t.Errorf("expected snapshot alpha %v, got %v", pipeline.tuning.SmoothingAlpha, snapshot.SmoothingAlpha)
	}

	// List should return the created profile.
	req = httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var listed listProfilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(listed.Profiles))
	}
	if listed.Profiles[0].ID != created.ID {
		t.Errorf("expected profile ID %q, got %q", created.ID, listed.Profiles[0].ID)
	}
}

func TestProfileHandler_Create_MissingName(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, newFakePipeline())

	body, _ := json.Marshal(createProfileRequest{})

	req := httptest.NewRequest(http.MethodPost, "/api/profiles", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestProfileHandler_Create_InvalidTuning(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, newFakePipeline())

	// Alpha outside (0, 1] must be rejected.
	bad := config.Default()
	bad.SmoothingAlpha = 2.0
	body, _ := json.Marshal(createProfileRequest{
		Name:   "broken",
		Tuning: mustTuningJSON(t, bad),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/profiles", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestProfileHandler_Create_InvalidJSON(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, newFakePipeline())

	req := httptest.NewRequest(http.MethodPost, "/api/profiles", bytes.NewReader([]byte("invalid json")))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestProfileHandler_GetNotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, newFakePipeline())

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/non-existent", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestProfileHandler_Update(t *testing.T) {
	s := newTestStore(t)
	pipeline := newFakePipeline()
	handler := NewProfileHandler(s, pipeline)

	profile := &store.Profile{
		ID:     "profile-1",
		Name:   "default",
		Tuning: mustTuningJSON(t, config.Default()),
	}
	if err := s.Profiles().Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	tuned := config.Default()
	tuned.ScrollGain = 2.5
	body, _ := json.Marshal(updateProfileRequest{
		Name:   "renamed",
		Tuning: mustTuningJSON(t, tuned),
	})

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/profile-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var updated store.Profile
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Name != "renamed" {
		t.Errorf("expected name 'renamed', got %q", updated.Name)
	}

	// Inactive profile updates must not touch the live pipeline.
	if pipeline.updates != 0 {
		t.Errorf("expected no pipeline updates, got %d", pipeline.updates)
	}

	stored, err := s.Profiles().GetByID("profile-1")
	if err != nil {
		t.Fatalf("failed to get updated profile: %v", err)
	}
	var storedTuning config.Tuning
	if err := json.Unmarshal(stored.Tuning, &storedTuning); err != nil {
		t.Fatalf("failed to decode stored tuning: %v", err)
	}
	if storedTuning.ScrollGain != 2.5 {
		t.Errorf("expected stored gain 2.5, got %v", storedTuning.ScrollGain)
	}
}

func TestProfileHandler_UpdateActiveAppliesTuning(t *testing.T) {
	s := newTestStore(t)
	pipeline := newFakePipeline()
	handler := NewProfileHandler(s, pipeline)

	profile := &store.Profile{
		ID:     "profile-1",
		Name:   "live",
		Tuning: mustTuningJSON(t, config.Default()),
	}
	if err := s.Profiles().Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if err := s.Profiles().Activate("profile-1"); err != nil {
		t.Fatalf("failed to activate profile: %v", err)
	}

	tuned := config.Default()
	tuned.ScrollGain = 3.0
	body, _ := json.Marshal(updateProfileRequest{Tuning: mustTuningJSON(t, tuned)})

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/profile-1", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if pipeline.updates != 1 {
		t.Errorf("expected 1 pipeline update, got %d", pipeline.updates)
	}
	if pipeline.tuning.ScrollGain != 3.0 {
		t.Errorf("expected live gain 3.0, got %v", pipeline.tuning.ScrollGain)
	}
}

func TestProfileHandler_Activate(t *testing.T) {
	s := newTestStore(t)
	pipeline := newFakePipeline()
	handler := NewProfileHandler(s, pipeline)

	tuned := config.Default()
	tuned.SmoothingAlpha = 0.9
	for i, name := range []string{"first", "second"} {
		profile := &store.Profile{
			ID:     name,
			Name:   name,
			Tuning: mustTuningJSON(t, config.Default()),
		}
		if i == 1 {
			profile.Tuning = mustTuningJSON(t, tuned)
		}
		if err := s.Profiles().Create(profile); err != nil {
			t.Fatalf("failed to create profile: %v", err)
		}
	}
	if err := s.Profiles().Activate("first"); err != nil {
		t.Fatalf("failed to activate profile: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/second/activate", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	if pipeline.tuning.SmoothingAlpha != 0.9 {
		t.Errorf("expected live alpha 0.9, got %v", pipeline.tuning.SmoothingAlpha)
	}

	active, err := s.Profiles().Active()
	if err != nil {
		t.Fatalf("failed to get active profile: %v", err)
	}
	if active.ID != "second" {
		t.Errorf("expected active profile 'second', got %q", active.ID)
	}

	saved, err := s.Settings().Get(store.SettingActiveProfile)
	if err != nil {
		t.Fatalf("failed to read active profile setting: %v", err)
	}
	if saved != "second" {
		t.Errorf("expected setting 'second', got %q", saved)
	}
}

func TestProfileHandler_Activate_NotFound(t *testing.T) {
	s := newTestStore(t)
	pipeline := newFakePipeline()
	handler := NewProfileHandler(s, pipeline)

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/ghost/activate", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if pipeline.updates != 0 {
		t.Errorf("expected no pipeline updates, got %d", pipeline.updates)
	}
}

func TestProfileHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, newFakePipeline())

	profile := &store.Profile{
		ID:     "profile-1",
		Name:   "doomed",
		Tuning: mustTuningJSON(t, config.Default()),
	}
	if err := s.Profiles().Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/profiles/profile-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	if _, err := s.Profiles().GetByID("profile-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again reports not found.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/profiles/profile-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestProfileHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, newFakePipeline())

	req := httptest.NewRequest(http.MethodDelete, "/api/profiles", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
