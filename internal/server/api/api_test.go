package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/ayusman/posturelab/internal/capture"
	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/posture"
	"github.com/ayusman/posturelab/internal/slot"
	"github.com/ayusman/posturelab/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "posturelab-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// fakeAnalyzer analyzes landmarks for real and returns canned image results.
type fakeAnalyzer struct {
	analyzer  *posture.Analyzer
	imageErr  error
	imagePose []detector.Landmark
	lastImage []byte
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{analyzer: posture.NewAnalyzer()}
}

func (f *fakeAnalyzer) AnalyzeLandmarks(ctx context.Context, landmarks []detector.Landmark) *posture.Report {
	return f.analyzer.HandleResult(&detector.Result{PoseLandmarks: landmarks})
}

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, data []byte) (*posture.Report, error) {
	f.lastImage = data
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.analyzer.Analyze(f.imagePose), nil
}

func (f *fakeAnalyzer) Overlay(ctx context.Context, data []byte) ([]byte, *posture.Report, error) {
	report, err := f.AnalyzeImage(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return []byte("jpeg-bytes"), report, nil
}

type fakeMonitor struct {
	enabled bool
}

func (m *fakeMonitor) IsEnabled() bool { return m.enabled }
func (m *fakeMonitor) SetEnabled(v bool) { m.enabled = v }
func (m *fakeMonitor) Running() bool { return true }

func serve(r *mux.Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAnalysisHandler_AnalyzeLandmarks(t *testing.T) {
	r := mux.NewRouter()
	NewAnalysisHandler(newFakeAnalyzer()).Register(r)

	t.Run("complete pose", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"poseLandmarks": detector.SlouchedLateralLandmarks()})
		rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp AnalysisResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Detected || resp.Analysis == nil {
			t.Fatal("expected a detected analysis")
		}
		if resp.Analysis.ViewType != posture.ViewLateral || resp.Analysis.OverallScore != 63 {
			t.Errorf("unexpected analysis: %s %d", resp.Analysis.ViewType, resp.Analysis.OverallScore)
		}
		if !strings.Contains(resp.Note, "Head Forward") {
			t.Error("note should mention Head Forward")
		}
	})

	t.Run("too few landmarks", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"poseLandmarks": detector.UprightFrontalLandmarks()[:10]})
		rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"detected":false}` {
			t.Errorf("unexpected body %s", got)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader("{")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestAnalysisHandler_AnalyzeImage(t *testing.T) {
	fake := newFakeAnalyzer()
	fake.imagePose = detector.UprightFrontalLandmarks()
	r := mux.NewRouter()
	NewAnalysisHandler(fake).Register(r)

	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/image", strings.NewReader("raw-image"))
		req.Header.Set("Content-Type", "image/jpeg")
		rec := serve(r, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if string(fake.lastImage) != "raw-image" {
			t.Errorf("analyzer received %q", fake.lastImage)
		}
	})

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, _ := mw.CreateFormFile("image", "pose.jpg")
		part.Write([]byte("form-image"))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/analyses/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := serve(r, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if string(fake.lastImage) != "form-image" {
			t.Errorf("analyzer received %q", fake.lastImage)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/analyses/image", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("undecodable image", func(t *testing.T) {
		fake.imageErr = capture.ErrEmptyImage
		defer func() { fake.imageErr = nil }()

		rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/analyses/image", strings.NewReader("x")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("detector failure", func(t *testing.T) {
		fake.imageErr = errors.New("pose service crashed")
		defer func() { fake.imageErr = nil }()

		rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/analyses/image", strings.NewReader("x")))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})

	t.Run("no detector", func(t *testing.T) {
		fake.imageErr = fmt.Errorf("detect pose: %w: %w", detector.ErrUnavailable, detector.ErrScriptNotFound)
		defer func() { fake.imageErr = nil }()

		for _, path := range []string{"/api/analyses/image", "/api/overlay"} {
			rec := serve(r, httptest.NewRequest(http.MethodPost, path, strings.NewReader("x")))
			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusServiceUnavailable, rec.Code)
			}
		}
	})
}

func TestAnalysisHandler_Overlay(t *testing.T) {
	fake := newFakeAnalyzer()
	fake.imagePose = detector.SlouchedLateralLandmarks()
	r := mux.NewRouter()
	NewAnalysisHandler(fake).Register(r)

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/api/overlay", strings.NewReader("img")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Posture-Score") != "63" || rec.Header().Get("X-Posture-Status") != "moderate" {
		t.Errorf("unexpected score headers: %v", rec.Header())
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestArchiveHandler(t *testing.T) {
	s := newTestStore(t)
	r := mux.NewRouter()
	NewArchiveHandler(s).Register(r)

	report := posture.NewAnalyzer(posture.WithIDGenerator(func() string { return "a-1" })).
		Analyze(detector.SlouchedLateralLandmarks())
	if err := s.Assessments().Create(store.NewAssessment(report, "upload")); err != nil {
		t.Fatalf("failed to create assessment: %v", err)
	}
	if err := s.Landmarks().Save("a-1", report.Landmarks); err != nil {
		t.Fatalf("failed to save landmarks: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=5", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp listAssessmentsResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if len(resp.Assessments) != 1 || resp.Assessments[0].ID != "a-1" {
			t.Errorf("unexpected list %+v", resp.Assessments)
		}
	})

	t.Run("list rejects bad limit", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/analyses/a-1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var got store.Assessment
		json.NewDecoder(rec.Body).Decode(&got)
		if got.OverallScore != 63 || len(got.Metrics) != 4 {
			t.Errorf("unexpected assessment %+v", got)
		}
	})

	t.Run("note", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/analyses/a-1/note", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
			t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != report.Note {
			t.Error("note body does not match")
		}
	})

	t.Run("landmarks", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/analyses/a-1/landmarks", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp struct {
			PoseLandmarks []detector.Landmark `json:"poseLandmarks"`
		}
		json.NewDecoder(rec.Body).Decode(&resp)
		if len(resp.PoseLandmarks) != detector.NumLandmarks {
			t.Errorf("expected %d landmarks, got %d", detector.NumLandmarks, len(resp.PoseLandmarks))
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodDelete, "/api/analyses/a-1", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}

		rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/analyses/a-1", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodGet, "/api/analyses/missing", nil),
			httptest.NewRequest(http.MethodGet, "/api/analyses/missing/note", nil),
			httptest.NewRequest(http.MethodGet, "/api/analyses/missing/landmarks", nil),
			httptest.NewRequest(http.MethodDelete, "/api/analyses/missing", nil),
		} {
			if rec := serve(r, req); rec.Code != http.StatusNotFound {
				t.Errorf("%s %s: expected status %d, got %d", req.Method, req.URL.Path, http.StatusNotFound, rec.Code)
			}
		}
	})
}

func TestLiveHandler_LatestNote(t *testing.T) {
	shared := slot.New()
	r := mux.NewRouter()
	NewLiveHandler(shared, nil).Register(r)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/notes/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty slot: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	shared.Set(posture.SlotSource, "POSTURE ASSESSMENT NOTE")
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/notes/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var entry slot.Entry
	json.NewDecoder(rec.Body).Decode(&entry)
	if entry.Note != "POSTURE ASSESSMENT NOTE" || entry.Source != posture.SlotSource {
		t.Errorf("unexpected entry %+v", entry)
	}

	// Without a monitor the toggle routes are not registered.
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/monitor", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestLiveHandler_Monitor(t *testing.T) {
	monitor := &fakeMonitor{}
	r := mux.NewRouter()
	NewLiveHandler(slot.New(), monitor).Register(r)

	rec := serve(r, httptest.NewRequest(http.MethodPut, "/api/monitor", strings.NewReader(`{"enabled":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !monitor.enabled {
		t.Error("monitor should be enabled")
	}

	var resp monitorResponse
	json.NewDecoder(serve(r, httptest.NewRequest(http.MethodGet, "/api/monitor", nil)).Body).Decode(&resp)
	if !resp.Enabled || !resp.Running {
		t.Errorf("unexpected state %+v", resp)
	}

	rec = serve(r, httptest.NewRequest(http.MethodPut, "/api/monitor", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing field: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
