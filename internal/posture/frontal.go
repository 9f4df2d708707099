package posture

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/posturelab/internal/detector"
)

var (
	headTilt = metricDef{
		key:   KeyHeadTilt,
		label: "Head Tilt",
		text: map[Status]advice{
			StatusGood: {
				"Head is held level with ears at matching height.",
				"Maintain current head position during daily activities.",
			},
			StatusModerate: {
				"Mild lateral head tilt with one ear sitting lower than the other.",
				"Perform gentle lateral neck stretches and check monitor centering.",
			},
			StatusPoor: {
				"Marked lateral head tilt, which may load the neck muscles unevenly.",
				"Strengthen deep neck flexors and assess for upper trapezius tightness.",
			},
		},
	}

	shoulderLevel = metricDef{
		key:   KeyShoulderLevel,
		label: "Shoulder Level",
		text: map[Status]advice{
			StatusGood: {
				"Shoulders are level.",
				"Continue balanced carrying habits and upper body mobility work.",
			},
			StatusModerate: {
				"Mild shoulder height asymmetry.",
				"Alternate bag-carrying sides and add unilateral shoulder strengthening.",
			},
			StatusPoor: {
				"Significant shoulder height asymmetry, suggesting muscular imbalance.",
				"Address scapular stabilizer imbalance and screen for scoliosis.",
			},
		},
	}

	hipLevel = metricDef{
		key:   KeyHipLevel,
		label: "Hip Level",
		text: map[Status]advice{
			StatusGood: {
				"Pelvis is level.",
				"Maintain even weight distribution when standing.",
			},
			StatusModerate: {
				"Mild pelvic obliquity with one hip sitting higher.",
				"Avoid habitual weight shifting onto one leg and stretch the hip abductors.",
			},
			StatusPoor: {
				"Significant pelvic obliquity, which may reflect a leg length discrepancy.",
				"Assess leg length and strengthen gluteus medius on the lower side.",
			},
		},
	}

	spineAlignment = metricDef{
		key:   KeySpineAlignment,
		label: "Spine Alignment",
		text: map[Status]advice{
			StatusGood: {
				"Trunk is vertically aligned between shoulders and hips.",
				"Continue core stability exercises.",
			},
			StatusModerate: {
				"Mild lateral trunk shift away from the midline.",
				"Add lateral core strengthening such as side planks.",
			},
			StatusPoor: {
				"Marked lateral trunk deviation from the midline.",
				"Refer for spinal assessment and begin a targeted core program.",
			},
		},
	}
)

// ExtractFrontal measures symmetry metrics for a frontal pose.
// It returns nil when the pose is incomplete.
func ExtractFrontal(landmarks []detector.Landmark) []Metric {
	p, ok := vectors(landmarks)
	if !ok {
		return nil
	}
	table := frontalThresholds

	midShoulder := mid(p, detector.LeftShoulder, detector.RightShoulder)
	midHip := mid(p, detector.LeftHip, detector.RightHip)

	return []Metric{
		headTilt.measure(HorizontalTilt(p[detector.LeftEar], p[detector.RightEar]), table),
		shoulderLevel.measure(HorizontalTilt(p[detector.LeftShoulder], p[detector.RightShoulder]), table),
		hipLevel.measure(HorizontalTilt(p[detector.LeftHip], p[detector.RightHip]), table),
		spineAlignment.measure(VerticalOffset(midShoulder, midHip), table),
	}
}

// vectors converts a complete pose to position vectors.
func vectors(landmarks []detector.Landmark) ([]r3.Vector, bool) {
	if len(landmarks) < detector.NumLandmarks {
		return nil, false
	}
	p := make([]r3.Vector, len(landmarks))
	for i, l := range landmarks {
		p[i] = l.Vec()
	}
	return p, true
}
