// Package main provides a macOS notification plugin for poor posture.
// It posts a Notification Center alert via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event    string          `json:"event"`
	Analysis Analysis        `json:"analysis"`
	Note     string          `json:"note"`
	Config   json.RawMessage `json:"config"`
}

// Analysis holds the fields of a posture analysis this plugin uses.
type Analysis struct {
	ViewType      string   `json:"viewType"`
	OverallScore  int      `json:"overallScore"`
	OverallStatus string   `json:"overallStatus"`
	Metrics       []Metric `json:"metrics"`
}

// Metric is a single measured posture metric.
type Metric struct {
	Label          string `json:"label"`
	Status         string `json:"status"`
	Recommendation string `json:"recommendation"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is read from the plugin manifest.
type Config struct {
	Sound string `json:"sound"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	if err := runAppleScript(buildNotificationScript(req.Analysis, cfg.Sound)); err != nil {
		writeErrorResponse(fmt.Sprintf("notification failed: %v", err))
		return
	}

	writeSuccessResponse()
}

// buildNotificationScript names the score and the first poor metric.
func buildNotificationScript(a Analysis, sound string) string {
	title := fmt.Sprintf("Posture %d/100 (%s)", a.OverallScore, a.OverallStatus)

	body := "Check your posture."
	for _, m := range a.Metrics {
		if m.Status == "poor" {
			body = m.Label + ": " + m.Recommendation
			break
		}
	}

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(body), escape(title))
	if sound != "" {
		script += fmt.Sprintf(` sound name "%s"`, escape(sound))
	}
	return script
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
