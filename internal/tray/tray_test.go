package tray

import (
	"testing"

	"github.com/ayusman/posturelab/internal/posture"
)

func TestScoreTitle(t *testing.T) {
	if got := scoreTitle(nil); got != "Last: none" {
		t.Errorf("scoreTitle(nil) = %q", got)
	}

	a := &posture.Analysis{OverallScore: 63, OverallStatus: posture.StatusModerate, ViewType: posture.ViewLateral}
	if got, want := scoreTitle(a), "Last: 63/100 moderate (lateral view)"; got != want {
		t.Errorf("scoreTitle() = %q, want %q", got, want)
	}
}

func TestTray_InitialState(t *testing.T) {
	if !New(true).IsEnabled() {
		t.Error("expected enabled tray")
	}
	if New(false).IsEnabled() {
		t.Error("expected paused tray")
	}
	if toggleTitle(false) != "○ Paused" {
		t.Errorf("toggleTitle(false) = %q", toggleTitle(false))
	}
}

func TestTray_ShowAnalysisBeforeReady(t *testing.T) {
	// No menu yet; must not panic.
	New(true).ShowAnalysis(&posture.Analysis{OverallScore: 100})
}
