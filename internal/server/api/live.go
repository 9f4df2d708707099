package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/posturelab/internal/slot"
)

// Monitor controls the live camera analysis.
type Monitor interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	Running() bool
}

// LiveHandler serves the shared note slot and the monitor toggle.
type LiveHandler struct {
	slot    *slot.Slot
	monitor Monitor
}

// NewLiveHandler creates a LiveHandler. monitor may be nil.
func NewLiveHandler(s *slot.Slot, monitor Monitor) *LiveHandler {
	return &LiveHandler{slot: s, monitor: monitor}
}

// Register adds the note and monitor routes to r.
func (h *LiveHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/notes/latest", h.latestNote).Methods(http.MethodGet)
	if h.monitor != nil {
		r.HandleFunc("/api/monitor", h.monitorState).Methods(http.MethodGet)
		r.HandleFunc("/api/monitor", h.setMonitor).Methods(http.MethodPut)
	}
}

// latestNote handles GET /api/notes/latest.
func (h *LiveHandler) latestNote(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.slot.Get()
	if !ok {
		writeError(w, http.StatusNotFound, "No note available")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type monitorResponse struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

type monitorRequest struct {
	Enabled *bool `json:"enabled"`
}

// monitorState handles GET /api/monitor.
func (h *LiveHandler) monitorState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, monitorResponse{Enabled: h.monitor.IsEnabled(), Running: h.monitor.Running()})
}

// setMonitor handles PUT /api/monitor.
func (h *LiveHandler) setMonitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.monitor.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, monitorResponse{Enabled: h.monitor.IsEnabled(), Running: h.monitor.Running()})
}
