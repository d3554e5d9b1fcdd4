// Package api provides the HTTP API handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vsubito/volti/internal/gesture"
	"github.com/vsubito/volti/internal/store"
)

// ProfileHandler handles HTTP requests for profile resources.
type ProfileHandler struct {
	store *store.Store
}

// NewProfileHandler creates a ProfileHandler backed by the given store.
func NewProfileHandler(s *store.Store) *ProfileHandler {
	return &ProfileHandler{store: s}
}

// ServeHTTP routes /api/profiles and /api/profiles/{id}.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
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

	id := path
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

type profileRequest struct {
	Name        string  `json:"name"`
	TriggerNext string  `json:"triggerNext"`
	TriggerPrev string  `json:"triggerPrev"`
	Sensitivity float64 `json:"sensitivity"`
	CooldownMs  int     `json:"cooldownMs"`
}

type profileResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TriggerNext string  `json:"triggerNext"`
	TriggerPrev string  `json:"triggerPrev"`
	Sensitivity float64 `json:"sensitivity"`
	CooldownMs  int     `json:"cooldownMs"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		Name:        p.Name,
		TriggerNext: p.TriggerNext,
		TriggerPrev: p.TriggerPrev,
		Sensitivity: p.Sensitivity,
		CooldownMs:  p.CooldownMs,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
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

// validate checks a profile request and returns a human-readable problem,
// or "" when the request is acceptable.
func (req *profileRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.TriggerNext != "" && !gesture.Gesture(req.TriggerNext).Valid() {
		return "triggerNext is not a recognized gesture"
	}
	if req.TriggerPrev != "" && !gesture.Gesture(req.TriggerPrev).Valid() {
		return "triggerPrev is not a recognized gesture"
	}
	if req.TriggerNext != "" && req.TriggerNext == req.TriggerPrev {
		return "triggerNext and triggerPrev must differ"
	}
	if req.Sensitivity < 0 {
		return "sensitivity must be positive"
	}
	if req.CooldownMs < 0 {
		return "cooldownMs must not be negative"
	}
	return ""
}

// apply copies the request onto a profile, filling defaults for omitted
// fields.
func (req *profileRequest) apply(p *store.Profile) {
	def := gesture.DefaultConfig()

	p.Name = strings.TrimSpace(req.Name)

	p.TriggerNext = req.TriggerNext
	if p.TriggerNext == "" {
		p.TriggerNext = string(def.TriggerNext)
	}
	p.TriggerPrev = req.TriggerPrev
	if p.TriggerPrev == "" {
		p.TriggerPrev = string(def.TriggerPrev)
	}

	p.Sensitivity = req.Sensitivity
	if p.Sensitivity == 0 {
		p.Sensitivity = def.Sensitivity
	}
	p.CooldownMs = req.CooldownMs
	if p.CooldownMs == 0 {
		p.CooldownMs = int(def.Cooldown.Milliseconds())
	}
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
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

	writeJSON(w, http.StatusOK, toResponse(profile))
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if problem := req.validate(); problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	profile := &store.Profile{ID: uuid.New().String()}
	req.apply(profile)

	if err := h.store.Profiles().Create(profile); err != nil {
		writeError(w, http.StatusConflict, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(profile))
}

// update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if problem := req.validate(); problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	req.apply(profile)

	if err := h.store.Profiles().Update(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
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

	w.WriteHeader(http.StatusNoContent)
}
