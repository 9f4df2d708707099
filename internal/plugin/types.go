// Package plugin runs external note consumers: executables that receive each
// finished posture analysis as JSON on stdin.
package plugin

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/posturelab/internal/posture"
)

// EventAnalysisCompleted is sent after every successful analysis.
const EventAnalysisCompleted = "analysis.completed"

// Manifest describes a plugin's metadata and which analyses it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	MinScore    *int            `json:"minScore,omitempty"`
	MaxScore    *int            `json:"maxScore,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Accepts reports whether the plugin subscribes to event for an analysis
// with the given overall score. A manifest without events receives every event.
func (m Manifest) Accepts(event string, score int) bool {
	if len(m.Events) > 0 && !slices.Contains(m.Events, event) {
		return false
	}
	if m.MinScore != nil && score < *m.MinScore {
		return false
	}
	if m.MaxScore != nil && score > *m.MaxScore {
		return false
	}
	return true
}

// Request is the JSON document written to a plugin's stdin.
type Request struct {
	Event    string            `json:"event"`
	Analysis *posture.Analysis `json:"analysis"`
	Note     string            `json:"note"`
	Config   json.RawMessage   `json:"config,omitempty"`
}

// Response is the JSON document a plugin writes to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
