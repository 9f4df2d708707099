package detector

import (
	"context"
	"errors"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when no working pose detector is configured.
// It is distinct from a detection that found no body.
var ErrUnavailable = errors.New("pose detector unavailable")

// Detector defines the interface for pose detection implementations.
// Each call is a single request/response for one image.
type Detector interface {
	// Detect analyzes an image and returns the detected pose.
	// A nil result or a result without landmarks means no body was found.
	Detect(ctx context.Context, frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the landmark model (0 lite, 1 full, 2 heavy).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinPresenceConf is the minimum pose presence threshold (0.0-1.0).
	MinPresenceConf float64

	// Mirror flips returned landmarks horizontally (x becomes 1-x), so a
	// subject photographed facing the camera is measured in the mirrored
	// preview convention where their left side has the smaller x.
	Mirror bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinPresenceConf: 0.5,
		Mirror:          true,
	}
}
