package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDashboardURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
	}
	for addr, want := range tests {
		if got := dashboardURL(addr); got != want {
			t.Errorf("dashboardURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestFindWebDir(t *testing.T) {
	dataDir := t.TempDir()

	if got := findWebDir(filepath.Join(dataDir, "missing"), dataDir); got != "" {
		t.Errorf("expected no web dir, got %q", got)
	}

	web := filepath.Join(dataDir, "web")
	if err := os.Mkdir(web, 0755); err != nil {
		t.Fatal(err)
	}
	if got := findWebDir(filepath.Join(dataDir, "missing"), dataDir); got != web {
		t.Errorf("findWebDir() = %q, want %q", got, web)
	}
}

func TestReplayCamera_Empty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := replayCamera(dir); err == nil {
		t.Error("expected error for a directory without JPEG frames")
	}
}
