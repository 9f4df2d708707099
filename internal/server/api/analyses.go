package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/posturelab/internal/capture"
	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/posture"
)

// MaxImageSize limits uploaded images.
const MaxImageSize = 10 << 20

// Analyzer runs posture analysis for uploaded poses and images.
type Analyzer interface {
	AnalyzeLandmarks(ctx context.Context, landmarks []detector.Landmark) *posture.Report
	AnalyzeImage(ctx context.Context, data []byte) (*posture.Report, error)
	Overlay(ctx context.Context, data []byte) ([]byte, *posture.Report, error)
}

// AnalysisHandler handles analysis requests.
type AnalysisHandler struct {
	analyzer Analyzer
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(a Analyzer) *AnalysisHandler {
	return &AnalysisHandler{analyzer: a}
}

// Register adds the analysis routes to r.
func (h *AnalysisHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/analyses", h.analyzeLandmarks).Methods(http.MethodPost)
	r.HandleFunc("/api/analyses/image", h.analyzeImage).Methods(http.MethodPost)
	r.HandleFunc("/api/overlay", h.overlay).Methods(http.MethodPost)
}

type analyzeRequest struct {
	PoseLandmarks []detector.Landmark `json:"poseLandmarks"`
}

// AnalysisResponse is returned by the analysis endpoints. Detected is false
// when fewer than 33 landmarks were available.
type AnalysisResponse struct {
	Detected bool              `json:"detected"`
	Analysis *posture.Analysis `json:"analysis,omitempty"`
	Note     string            `json:"note,omitempty"`
}

func newAnalysisResponse(r *posture.Report) AnalysisResponse {
	if r == nil {
		return AnalysisResponse{}
	}
	return AnalysisResponse{Detected: true, Analysis: r.Analysis, Note: r.Note}
}

// analyzeLandmarks handles POST /api/analyses.
func (h *AnalysisHandler) analyzeLandmarks(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxImageSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report := h.analyzer.AnalyzeLandmarks(r.Context(), req.PoseLandmarks)
	writeJSON(w, http.StatusOK, newAnalysisResponse(report))
}

// analyzeImage handles POST /api/analyses/image.
func (h *AnalysisHandler) analyzeImage(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing or unreadable image")
		return
	}

	report, err := h.analyzer.AnalyzeImage(r.Context(), data)
	if err != nil {
		writeImageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(report))
}

// overlay handles POST /api/overlay and returns the annotated JPEG.
func (h *AnalysisHandler) overlay(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing or unreadable image")
		return
	}

	out, report, err := h.analyzer.Overlay(r.Context(), data)
	if err != nil {
		writeImageError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Posture-Detected", strconv.FormatBool(report != nil))
	if report != nil {
		w.Header().Set("X-Posture-Score", strconv.Itoa(report.Analysis.OverallScore))
		w.Header().Set("X-Posture-Status", string(report.Analysis.OverallStatus))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

var errNoImage = errors.New("no image in request")

// readImage accepts either a multipart form with an "image" file or the raw
// image as the request body.
func readImage(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxImageSize)

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, ferr := r.FormFile("image")
		if ferr != nil {
			return nil, ferr
		}
		defer file.Close()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errNoImage
	}
	return data, nil
}

func writeImageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "Could not decode image")
		return
	case errors.Is(err, detector.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Pose detection is not available")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to analyze image")
}
