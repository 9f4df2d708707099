package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ayusman/posturelab/internal/app"
	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/posture"
	"github.com/ayusman/posturelab/internal/publish"
	"github.com/ayusman/posturelab/internal/server"
	"github.com/ayusman/posturelab/internal/store"
	"github.com/ayusman/posturelab/internal/telemetry"
	"github.com/ayusman/posturelab/testdata"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// installRecorder writes a plugin that copies its request to out.
func installRecorder(t *testing.T, pluginDir, out string) {
	t.Helper()

	dir := filepath.Join(pluginDir, "recorder")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	manifest := `{"name":"recorder","version":"1.0.0","executable":"run.sh","events":["analysis.completed"],"maxScore":79}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	script := "#!/bin/sh\ncat >> " + out + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("plugin script requires a POSIX shell")
	}

	tmpDir := t.TempDir()
	s := newStore(t)
	pluginDir := filepath.Join(tmpDir, "plugins")
	received := filepath.Join(tmpDir, "received.jsonl")
	installRecorder(t, pluginDir, received)

	metrics := telemetry.New()
	application := app.New(app.Config{
		Store:     s,
		PluginDir: pluginDir,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics,
	})
	defer application.Close()
	application.SetDetector(detector.NewMockDetector())

	if err := application.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}

	srv := server.New(server.Config{App: application, Metrics: metrics})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	post := func(t *testing.T, fixture string) map[string]any {
		t.Helper()

		body, err := testdata.LoadPoseJSON(fixture)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := client.Post(ts.URL+"/api/analyses", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST /api/analyses error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var out map[string]any
		json.NewDecoder(resp.Body).Decode(&out)
		return out
	}

	var slouchedID string

	t.Run("AnalyzeUpright", func(t *testing.T) {
		out := post(t, "upright_frontal")
		analysis := out["analysis"].(map[string]any)
		if analysis["viewType"] != "frontal" || analysis["overallScore"] != float64(100) {
			t.Errorf("unexpected analysis %v", analysis)
		}
	})

	t.Run("AnalyzeSlouched", func(t *testing.T) {
		out := post(t, "slouched_lateral")
		analysis := out["analysis"].(map[string]any)
		if analysis["viewType"] != "lateral" || analysis["overallStatus"] != "moderate" {
			t.Errorf("unexpected analysis %v", analysis)
		}
		slouchedID = analysis["id"].(string)
	})

	t.Run("PartialPoseIsIgnored", func(t *testing.T) {
		out := post(t, "partial")
		if out["detected"] != false {
			t.Errorf("expected detected=false, got %v", out)
		}
	})

	t.Run("LatestNoteIsSlouched", func(t *testing.T) {
		entry, ok := application.Slot().Get()
		if !ok {
			t.Fatal("slot is empty")
		}
		if entry.Source != posture.SlotSource {
			t.Errorf("slot source = %q, want %q", entry.Source, posture.SlotSource)
		}
		if !strings.Contains(entry.Note, "Overall Posture Score: 63/100 (Moderate)") {
			t.Errorf("unexpected latest note:\n%s", entry.Note)
		}
	})

	t.Run("ArchiveHasBoth", func(t *testing.T) {
		list, err := s.Assessments().List(10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 archived assessments, got %d", len(list))
		}
		for _, a := range list {
			if a.Source != publish.SourceUpload {
				t.Errorf("assessment %s source = %q, want %q", a.ID, a.Source, publish.SourceUpload)
			}
		}

		resp, err := client.Get(ts.URL + "/api/analyses/" + slouchedID + "/landmarks")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var lm struct {
			PoseLandmarks []detector.Landmark `json:"poseLandmarks"`
		}
		json.NewDecoder(resp.Body).Decode(&lm)
		if len(lm.PoseLandmarks) != detector.NumLandmarks {
			t.Errorf("expected %d stored landmarks, got %d", detector.NumLandmarks, len(lm.PoseLandmarks))
		}
	})

	t.Run("PluginOnlySeesLowScores", func(t *testing.T) {
		data, err := os.ReadFile(received)
		if err != nil {
			t.Fatalf("plugin output missing: %v", err)
		}

		dec := json.NewDecoder(bytes.NewReader(data))
		var requests []map[string]any
		for dec.More() {
			var req map[string]any
			if err := dec.Decode(&req); err != nil {
				t.Fatalf("decode plugin request: %v", err)
			}
			requests = append(requests, req)
		}

		if len(requests) != 1 {
			t.Fatalf("expected 1 plugin request, got %d", len(requests))
		}
		if requests[0]["event"] != "analysis.completed" {
			t.Errorf("event = %v", requests[0]["event"])
		}
		if analysis := requests[0]["analysis"].(map[string]any); analysis["id"] != slouchedID {
			t.Errorf("plugin received analysis %v, want %s", analysis["id"], slouchedID)
		}
	})

	t.Run("MetricsCountAnalyses", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		for _, want := range []string{
			`posturelab_analyses_total{status="good",view="frontal"} 1`,
			`posturelab_analyses_total{status="moderate",view="lateral"} 1`,
			`posturelab_no_detection_total 1`,
		} {
			if !strings.Contains(string(body), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})
}

func TestE2E_OfflineAnalysis(t *testing.T) {
	names, err := testdata.Poses()
	if err != nil {
		t.Fatal(err)
	}

	analyzer := posture.NewAnalyzer()
	want := map[string]struct {
		detected bool
		view     posture.ViewType
		score    int
	}{
		"upright_frontal":  {true, posture.ViewFrontal, 100},
		"upright_lateral":  {true, posture.ViewLateral, 100},
		"slouched_lateral": {true, posture.ViewLateral, 63},
		"partial":          {false, "", 0},
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			result, err := testdata.LoadPose(name)
			if err != nil {
				t.Fatal(err)
			}
			w := want[name]

			report := analyzer.HandleResult(result)
			if (report != nil) != w.detected {
				t.Fatalf("detected = %v, want %v", report != nil, w.detected)
			}
			if report == nil {
				return
			}
			if report.Analysis.ViewType != w.view || report.Analysis.OverallScore != w.score {
				t.Errorf("got %s/%d, want %s/%d", report.Analysis.ViewType, report.Analysis.OverallScore, w.view, w.score)
			}
		})
	}
}

func TestE2E_LiveSourceArchived(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s := newStore(t)
	archive := publish.NewArchive(s)

	report := posture.NewAnalyzer().Analyze(detector.SlouchedLateralLandmarks())
	ctx := publish.WithSource(context.Background(), publish.SourceLive)
	if err := archive.Publish(ctx, report); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got, err := s.Assessments().GetByID(report.Analysis.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Source != publish.SourceLive {
		t.Errorf("source = %q, want %q", got.Source, publish.SourceLive)
	}
}
