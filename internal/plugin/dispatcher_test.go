package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/posture"
)

// installScript writes a manifest and a shell script plugin under root.
func installScript(t *testing.T, root string, m Manifest, body string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	m.Executable = "run.sh"
	writeManifest(t, root, m)

	script := filepath.Join(root, m.Name, "run.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

func TestDispatcher_Publish(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "received.json")
	skipped := filepath.Join(t.TempDir(), "skipped")
	maxScore := 79

	installScript(t, root, Manifest{Name: "recorder", Config: json.RawMessage(`{"tag":"x"}`)},
		"cat > "+out+"\necho '{\"success\":true}'\n")
	installScript(t, root, Manifest{Name: "low-only", MaxScore: &maxScore},
		"touch "+skipped+"\ncat >/dev/null\necho '{\"success\":true}'\n")

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	d := NewDispatcher(manager, NewExecutor(5*time.Second), nil)

	report := posture.NewAnalyzer().Analyze(detector.UprightFrontalLandmarks())
	if err := d.Publish(context.Background(), report); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("recorder plugin did not run: %v", err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("failed to parse recorded request: %v", err)
	}
	if req.Analysis == nil || req.Analysis.ID != report.Analysis.ID {
		t.Errorf("recorded analysis %+v, want ID %q", req.Analysis, report.Analysis.ID)
	}
	if string(req.Config) != `{"tag":"x"}` {
		t.Errorf("expected manifest config to be forwarded, got %s", req.Config)
	}

	if _, err := os.Stat(skipped); !os.IsNotExist(err) {
		t.Error("plugin with maxScore 79 should not run for a score of 100")
	}
}

func TestDispatcher_Publish_CollectsFailures(t *testing.T) {
	root := t.TempDir()
	installScript(t, root, Manifest{Name: "refuser"},
		"cat >/dev/null\necho '{\"success\":false,\"error\":\"disk full\"}'\n")

	manager := NewManager(root, nil)
	manager.Discover()
	d := NewDispatcher(manager, NewExecutor(5*time.Second), nil)

	report := posture.NewAnalyzer().Analyze(detector.SlouchedLateralLandmarks())
	err := d.Publish(context.Background(), report)
	if err == nil {
		t.Fatal("expected error from failing plugin")
	}
	if !strings.Contains(err.Error(), "refuser") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDispatcher_Publish_NilReport(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir(), nil), NewExecutor(time.Second), nil)

	if err := d.Publish(context.Background(), nil); err != nil {
		t.Errorf("expected nil error for nil report, got %v", err)
	}
	if d.Name() != "plugins" {
		t.Errorf("unexpected name %q", d.Name())
	}
}
