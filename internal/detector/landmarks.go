// Package detector provides pose detection interfaces and types for posture analysis.
package detector

import "github.com/golang/geo/r3"

// Pose landmark indices following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// MinVisibility is the confidence below which a landmark is not drawn.
const MinVisibility = 0.5

// Landmark is a single detected body keypoint.
// X and Y are fractions of the image size with the origin at the top-left corner.
// They are not clamped, so points just outside the frame may fall outside [0,1].
// Z is the detector's relative depth; a missing depth decodes as 0.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility"`
}

// Vec returns the landmark position as a vector.
func (l Landmark) Vec() r3.Vector {
	return r3.Vector{X: l.X, Y: l.Y, Z: l.Z}
}

// Visible reports whether the landmark is confident enough to render.
func (l Landmark) Visible() bool {
	return l.Visibility >= MinVisibility
}

// Result is the payload produced by a detector for one image.
// PoseLandmarks is nil when no body was found.
type Result struct {
	PoseLandmarks []Landmark `json:"poseLandmarks,omitempty"`

	// Mirrored is set when X was flipped relative to the source image.
	// Drawing on that image must flip X back.
	Mirrored bool `json:"mirrored,omitempty"`
}

// Complete reports whether the result carries a full skeleton.
func (r *Result) Complete() bool {
	return r != nil && len(r.PoseLandmarks) >= NumLandmarks
}

// Connections lists the skeleton segments used for drawing, as index pairs.
var Connections = [][2]int{
	{LeftEar, LeftEye}, {RightEar, RightEye}, {LeftEye, Nose}, {RightEye, Nose},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle}, {LeftAnkle, LeftHeel}, {LeftHeel, LeftFootIndex},
	{RightHip, RightKnee}, {RightKnee, RightAnkle}, {RightAnkle, RightHeel}, {RightHeel, RightFootIndex},
}
