package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/posture"
)

func TestMetrics_ObserveAnalysis(t *testing.T) {
	m := New()
	analyzer := posture.NewAnalyzer()

	m.ObserveAnalysis(analyzer.Analyze(detector.UprightFrontalLandmarks()).Analysis)
	m.ObserveAnalysis(analyzer.Analyze(detector.SlouchedLateralLandmarks()).Analysis)
	m.ObserveAnalysis(nil)

	if got := testutil.ToFloat64(m.analyses.WithLabelValues("frontal", "good")); got != 1 {
		t.Errorf("frontal/good = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.analyses.WithLabelValues("lateral", "moderate")); got != 1 {
		t.Errorf("lateral/moderate = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.noDetection); got != 1 {
		t.Errorf("no detection = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveAnalysis(nil)
	m.ObserveDetect(time.Second)
	m.SinkError("kafka")

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if m.WrapHandler("x", h) == nil {
		t.Error("WrapHandler on nil metrics should return the handler")
	}
}

func TestMetrics_WrapHandler(t *testing.T) {
	m := New()
	h := m.WrapHandler("notes", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/notes/latest", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("notes", "404")); got != 1 {
		t.Errorf("requests notes/404 = %v, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SinkError("kafka")
	m.ObserveDetect(20 * time.Millisecond)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		`posturelab_sink_errors_total{sink="kafka"} 1`,
		"posturelab_detect_duration_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
