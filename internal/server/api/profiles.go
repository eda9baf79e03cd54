// Package api provides HTTP API handlers for tuning profiles and session history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline is the slice of the running application the API needs: reading
// the live tuning and swapping it when a profile is activated.
type Pipeline interface {
	Tuning() config.Tuning
	UpdateTuning(config.Tuning) error
}

// ProfileHandler handles HTTP requests for tuning profile resources.
type ProfileHandler struct {
	store    *store.Store
	pipeline Pipeline
}

// NewProfileHandler creates a new ProfileHandler. The pipeline may be nil,
// in which case activation only updates the database.
func NewProfileHandler(s *store.Store, p Pipeline) *ProfileHandler {
	return &ProfileHandler{store: s, pipeline: p}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/profiles, /api/profiles/{id}, /api/profiles/{id}/activate
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/profiles
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 && parts[1] == "activate" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	// Item endpoint: /api/profiles/{id}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createProfileRequest struct {
	Name   string          `json:"name"`
	Tuning json.RawMessage `json:"tuning"`
}

type updateProfileRequest struct {
	Name   string          `json:"name"`
	Tuning json.RawMessage `json:"tuning"`
}

type listProfilesResponse struct {
	Profiles []*store.Profile `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeTuning parses a tuning payload on top of the defaults and validates
// the result. Partial payloads keep default values for omitted fields.
func decodeTuning(raw json.RawMessage) (config.Tuning, error) {
	t := config.Default()
	if err := json.Unmarshal(raw, &t); err != nil {
		return config.Tuning{}, err
	}
	if err := t.Validate(); err != nil {
		return config.Tuning{}, err
	}
	return t, nil
}

// list handles GET /api/profiles and returns all profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{Profiles: profiles}
	if response.Profiles == nil {
		response.Profiles = []*store.Profile{}
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id} and returns a single profile.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// create handles POST /api/profiles and creates a new profile.
// Omitting the tuning snapshots whatever the pipeline currently runs with.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	tuning := req.Tuning
	if len(tuning) == 0 {
		current := config.Default()
		if h.pipeline != nil {
			current = h.pipeline.Tuning()
		}
		encoded, err := json.Marshal(current)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode tuning")
			return
		}
		tuning = encoded
	} else if _, err := decodeTuning(tuning); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tuning: "+err.Error())
		return
	}

	profile := &store.Profile{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Tuning: tuning,
	}

	if err := h.store.Profiles().Create(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// update handles PUT /api/profiles/{id} and updates an existing profile.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.Name != "" {
		profile.Name = req.Name
	}
	if len(req.Tuning) > 0 {
		if _, err := decodeTuning(req.Tuning); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tuning: "+err.Error())
			return
		}
		profile.Tuning = req.Tuning
	}

	if err := h.store.Profiles().Update(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	// If the updated profile is the active one, push the new tuning live.
	if profile.Active && h.pipeline != nil {
		if tuning, err := decodeTuning(profile.Tuning); err == nil {
			if err := h.pipeline.UpdateTuning(tuning); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to apply tuning")
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// activate handles POST /api/profiles/{id}/activate: the profile's tuning
// becomes the pipeline's live tuning and the choice is persisted.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	tuning, err := decodeTuning(profile.Tuning)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored tuning is invalid: "+err.Error())
		return
	}

	if h.pipeline != nil {
		if err := h.pipeline.UpdateTuning(tuning); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply tuning")
			return
		}
	}

	if err := h.store.Profiles().Activate(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to activate profile")
		return
	}
	if err := h.store.Settings().Set(store.SettingActiveProfile, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist active profile")
		return
	}

	profile.Active = true
	writeJSON(w, http.StatusOK, profile)
}
