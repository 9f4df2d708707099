package posture

import "maps"

// Status is the severity band of a metric or of a whole analysis.
type Status string

const (
	StatusGood     Status = "good"
	StatusModerate Status = "moderate"
	StatusPoor     Status = "poor"
)

// Title returns the capitalized status name used in notes.
func (s Status) Title() string {
	switch s {
	case StatusGood:
		return "Good"
	case StatusModerate:
		return "Moderate"
	case StatusPoor:
		return "Poor"
	}
	return string(s)
}

// Thresholds are the upper bounds, in degrees, of the good and moderate bands.
type Thresholds struct {
	Good     float64 `json:"good"`
	Moderate float64 `json:"moderate"`
}

// Classify maps an angle to a severity band. Boundary values belong to the
// lower band.
func Classify(value float64, t Thresholds) Status {
	switch {
	case value <= t.Good:
		return StatusGood
	case value <= t.Moderate:
		return StatusModerate
	default:
		return StatusPoor
	}
}

// Metric keys, in display order per view.
const (
	KeyHeadTilt       = "headTilt"
	KeyShoulderLevel  = "shoulderLevel"
	KeyHipLevel       = "hipLevel"
	KeySpineAlignment = "spineAlignment"

	KeyHeadForward   = "headForward"
	KeyShoulderRound = "shoulderRound"
	KeyPelvicTilt    = "pelvicTilt"
	KeySpineCurve    = "spineCurve"
)

var frontalThresholds = map[string]Thresholds{
	KeyHeadTilt:       {Good: 5, Moderate: 10},
	KeyShoulderLevel:  {Good: 3, Moderate: 7},
	KeyHipLevel:       {Good: 3, Moderate: 7},
	KeySpineAlignment: {Good: 5, Moderate: 12},
}

var lateralThresholds = map[string]Thresholds{
	KeyHeadForward:   {Good: 10, Moderate: 20},
	KeyShoulderRound: {Good: 15, Moderate: 25},
	KeyPelvicTilt:    {Good: 10, Moderate: 18},
	KeySpineCurve:    {Good: 12, Moderate: 20},
}

// ThresholdTable returns a copy of the threshold table for a view.
func ThresholdTable(view ViewType) map[string]Thresholds {
	if view == ViewLateral {
		return maps.Clone(lateralThresholds)
	}
	return maps.Clone(frontalThresholds)
}
