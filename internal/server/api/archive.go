package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ayusman/posturelab/internal/store"
)

// ArchiveHandler serves archived assessments.
type ArchiveHandler struct {
	store *store.Store
}

// NewArchiveHandler creates a new ArchiveHandler with the given store.
func NewArchiveHandler(s *store.Store) *ArchiveHandler {
	return &ArchiveHandler{store: s}
}

// Register adds the archive routes to r.
func (h *ArchiveHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/analyses", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}", h.delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/analyses/{id}/note", h.note).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}/landmarks", h.landmarks).Methods(http.MethodGet)
}

type listAssessmentsResponse struct {
	Assessments []*store.Assessment `json:"assessments"`
}

// list handles GET /api/analyses?limit=N.
func (h *ArchiveHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	assessments, err := h.store.Assessments().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assessments")
		return
	}
	if assessments == nil {
		assessments = []*store.Assessment{}
	}

	writeJSON(w, http.StatusOK, listAssessmentsResponse{Assessments: assessments})
}

// get handles GET /api/analyses/{id}.
func (h *ArchiveHandler) get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// note handles GET /api/analyses/{id}/note.
func (h *ArchiveHandler) note(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(a.Note))
}

type landmarksResponse struct {
	PoseLandmarks interface{} `json:"poseLandmarks"`
}

// landmarks handles GET /api/analyses/{id}/landmarks.
func (h *ArchiveHandler) landmarks(w http.ResponseWriter, r *http.Request) {
	points, err := h.store.Landmarks().Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Landmarks not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get landmarks")
		return
	}
	writeJSON(w, http.StatusOK, landmarksResponse{PoseLandmarks: points})
}

// delete handles DELETE /api/analyses/{id}.
func (h *ArchiveHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Assessments().Delete(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Assessment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete assessment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArchiveHandler) lookup(w http.ResponseWriter, id string) (*store.Assessment, bool) {
	a, err := h.store.Assessments().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Assessment not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get assessment")
		return nil, false
	}
	return a, true
}
