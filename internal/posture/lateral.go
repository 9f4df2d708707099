package posture

import "github.com/ayusman/posturelab/internal/detector"

var (
	headForward = metricDef{
		key:   KeyHeadForward,
		label: "Head Forward",
		text: map[Status]advice{
			StatusGood: {
				"Ear sits over the shoulder line.",
				"Maintain neutral head position at screens and while reading.",
			},
			StatusModerate: {
				"Mild forward head posture.",
				"Practice chin tucks and raise screens to eye level.",
			},
			StatusPoor: {
				"Pronounced forward head posture, increasing cervical load.",
				"Start daily chin tuck and deep neck flexor training and review screen height.",
			},
		},
	}

	shoulderRound = metricDef{
		key:   KeyShoulderRound,
		label: "Shoulder Round",
		text: map[Status]advice{
			StatusGood: {
				"Shoulders sit over the hips.",
				"Continue upper back mobility work.",
			},
			StatusModerate: {
				"Mild shoulder rounding.",
				"Add doorway pectoral stretches and scapular retraction exercises.",
			},
			StatusPoor: {
				"Marked shoulder rounding with the upper body ahead of the hips.",
				"Stretch the pectorals daily and strengthen the mid and lower trapezius.",
			},
		},
	}

	pelvicTilt = metricDef{
		key:   KeyPelvicTilt,
		label: "Pelvic Tilt",
		text: map[Status]advice{
			StatusGood: {
				"Pelvis is stacked over the knees.",
				"Maintain hip mobility and glute activation.",
			},
			StatusModerate: {
				"Mild pelvic shift relative to the knees.",
				"Stretch the hip flexors and add glute bridges.",
			},
			StatusPoor: {
				"Significant pelvic shift, suggesting anterior or posterior tilt.",
				"Assess hip flexor and hamstring length and begin pelvic stabilization work.",
			},
		},
	}

	spineCurve = metricDef{
		key:   KeySpineCurve,
		label: "Spine Curve",
		text: map[Status]advice{
			StatusGood: {
				"Spinal curvature appears within normal range.",
				"Continue regular movement breaks and core work.",
			},
			StatusModerate: {
				"Mildly increased spinal curvature.",
				"Add thoracic extension exercises and review seated posture.",
			},
			StatusPoor: {
				"Marked spinal curvature in the sagittal plane.",
				"Refer for spinal assessment and begin thoracic mobility training.",
			},
		},
	}
)

// ExtractLateral measures forward-posture metrics for a side-on pose.
// It returns nil when the pose is incomplete.
//
// With the default policy Spine Curve and Shoulder Round share the
// shoulder-to-hip line and always carry the same value.
func ExtractLateral(landmarks []detector.Landmark, policy Policy) []Metric {
	p, ok := vectors(landmarks)
	if !ok {
		return nil
	}
	table := lateralThresholds

	midEar := mid(p, detector.LeftEar, detector.RightEar)
	midShoulder := mid(p, detector.LeftShoulder, detector.RightShoulder)
	midHip := mid(p, detector.LeftHip, detector.RightHip)
	midKnee := mid(p, detector.LeftKnee, detector.RightKnee)

	curveTop := midShoulder
	if policy.DistinctSpineCurve {
		curveTop = midEar
	}

	return []Metric{
		headForward.measure(VerticalOffset(midEar, midShoulder), table),
		shoulderRound.measure(VerticalOffset(midShoulder, midHip), table),
		pelvicTilt.measure(VerticalOffset(midHip, midKnee), table),
		spineCurve.measure(VerticalOffset(curveTop, midHip), table),
	}
}
