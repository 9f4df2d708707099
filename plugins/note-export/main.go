// Package main provides a plugin that appends every SOAP note to a file.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
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
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is read from the plugin manifest.
type Config struct {
	Path string `json:"path"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if err := exportNote(req); err != nil {
		writeErrorResponse(err.Error())
		return
	}

	writeSuccessResponse()
}

// exportNote appends the note, preceded by a separator naming the analysis.
func exportNote(req Request) error {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Path == "" {
		return fmt.Errorf("config.path is required")
	}
	if strings.HasPrefix(cfg.Path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfg.Path = filepath.Join(home, cfg.Path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	header := fmt.Sprintf("=== %s %s ===\n", req.Analysis.Timestamp.Format(time.RFC3339), req.Analysis.ID)
	if _, err := f.WriteString(header + req.Note + "\n\n"); err != nil {
		return fmt.Errorf("write note: %w", err)
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
