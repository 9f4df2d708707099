// Package testdata holds recorded pose fixtures in the detector's JSON format.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ayusman/posturelab/internal/detector"
)

//go:embed poses/*.json
var posesFS embed.FS

// LoadPoseJSON returns the raw fixture document, suitable as a request body.
func LoadPoseJSON(name string) ([]byte, error) {
	data, err := posesFS.ReadFile("poses/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load pose %s: %w", name, err)
	}
	return data, nil
}

// LoadPose loads a pose fixture by name, without extension.
func LoadPose(name string) (*detector.Result, error) {
	data, err := LoadPoseJSON(name)
	if err != nil {
		return nil, err
	}

	var result detector.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode pose %s: %w", name, err)
	}
	return &result, nil
}

// Poses lists the available fixture names.
func Poses() ([]string, error) {
	entries, err := posesFS.ReadDir("poses")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		names = append(names, name[:len(name)-len(".json")])
	}
	return names, nil
}
