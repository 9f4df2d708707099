package posture

import (
	"math"

	"github.com/ayusman/posturelab/internal/detector"
)

// ViewType is the camera viewpoint a pose was captured from.
type ViewType string

const (
	// ViewFrontal means the subject faces the camera; symmetry is assessed.
	ViewFrontal ViewType = "frontal"
	// ViewLateral means the subject stands side-on; forward posture is assessed.
	ViewLateral ViewType = "lateral"
)

// FrontalShoulderWidth is the horizontal shoulder span, as an image fraction,
// above which a pose is treated as frontal.
const FrontalShoulderWidth = 0.08

// Title returns the capitalized view name used in notes.
func (v ViewType) Title() string {
	switch v {
	case ViewFrontal:
		return "Frontal"
	case ViewLateral:
		return "Lateral"
	}
	return string(v)
}

// Policy holds optional refinements of the analysis rules.
// The zero value reproduces the default behavior exactly.
type Policy struct {
	// DepthRatioLimit, when positive, reclassifies a wide-shouldered pose as
	// lateral if the shoulder depth difference divided by the shoulder width
	// exceeds it. A body turned three-quarters to the camera shows up this way.
	DepthRatioLimit float64 `json:"depthRatioLimit,omitempty"`

	// DistinctSpineCurve measures Spine Curve over the ear-to-hip line
	// instead of the shoulder-to-hip line shared with Shoulder Round.
	DistinctSpineCurve bool `json:"distinctSpineCurve,omitempty"`
}

// ViewEstimate is the outcome of view classification along with the
// shoulder measurements it was based on.
type ViewEstimate struct {
	Type              ViewType `json:"type"`
	ShoulderWidth     float64  `json:"shoulderWidth"`
	ShoulderDepthDiff float64  `json:"shoulderDepthDiff"`
	DepthRatio        float64  `json:"depthRatio"`
}

// DetectView classifies the viewpoint of a complete pose using the default policy.
func DetectView(landmarks []detector.Landmark) ViewType {
	return EstimateView(landmarks, Policy{}).Type
}

// EstimateView classifies the viewpoint of a complete pose.
// The pose must contain at least the shoulder landmarks.
func EstimateView(landmarks []detector.Landmark, policy Policy) ViewEstimate {
	ls := landmarks[detector.LeftShoulder]
	rs := landmarks[detector.RightShoulder]

	est := ViewEstimate{
		ShoulderWidth:     math.Abs(ls.X - rs.X),
		ShoulderDepthDiff: math.Abs(ls.Z - rs.Z),
	}
	if est.ShoulderWidth > 0 {
		est.DepthRatio = est.ShoulderDepthDiff / est.ShoulderWidth
	}

	est.Type = ViewLateral
	if est.ShoulderWidth > FrontalShoulderWidth {
		est.Type = ViewFrontal
	}

	if policy.DepthRatioLimit > 0 && est.Type == ViewFrontal && est.DepthRatio > policy.DepthRatioLimit {
		est.Type = ViewLateral
	}

	return est
}
