package api

import (
	"net/http"
	"strconv"

	"github.com/vsubito/volti/internal/store"
)

// TriggersHandler serves the recent trigger history.
type TriggersHandler struct {
	store *store.Store
}

// NewTriggersHandler creates a TriggersHandler backed by the given store.
func NewTriggersHandler(s *store.Store) *TriggersHandler {
	return &TriggersHandler{store: s}
}

type triggerResponse struct {
	ID        int64  `json:"id"`
	ProfileID string `json:"profileId,omitempty"`
	Gesture   string `json:"gesture"`
	Direction string `json:"direction"`
	FiredAt   string `json:"fired_at"`
}

type listTriggersResponse struct {
	Triggers []triggerResponse `json:"triggers"`
}

// ServeHTTP handles GET /api/triggers?limit=N.
func (h *TriggersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries, err := h.store.TriggerLog().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list triggers")
		return
	}

	response := listTriggersResponse{
		Triggers: make([]triggerResponse, 0, len(entries)),
	}
	for _, e := range entries {
		response.Triggers = append(response.Triggers, triggerResponse{
			ID:        e.ID,
			ProfileID: e.ProfileID,
			Gesture:   e.Gesture,
			Direction: e.Direction,
			FiredAt:   e.FiredAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
