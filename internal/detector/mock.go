package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	result *Result
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the pose that will be returned by Detect.
func (m *MockDetector) SetLandmarks(landmarks []Landmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = &Result{PoseLandmarks: landmarks}
}

// SetResult sets the raw result that will be returned by Detect.
func (m *MockDetector) SetResult(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(ctx context.Context, frame *gocv.Mat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// basePose returns a skeleton with every point at the image center.
func basePose() []Landmark {
	points := make([]Landmark, NumLandmarks)
	for i := range points {
		points[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 0.99}
	}
	return points
}

// UprightFrontalLandmarks returns a person facing the camera with level
// ears, shoulders and hips and a vertical trunk. Every frontal angle is 0.
// Coordinates follow the mirrored camera preview, so the subject's left
// side has the smaller x.
func UprightFrontalLandmarks() []Landmark {
	p := basePose()

	p[Nose] = Landmark{X: 0.50, Y: 0.12, Visibility: 0.99}
	p[LeftEyeInner] = Landmark{X: 0.52, Y: 0.10, Visibility: 0.99}
	p[LeftEye] = Landmark{X: 0.53, Y: 0.10, Visibility: 0.99}
	p[LeftEyeOuter] = Landmark{X: 0.54, Y: 0.10, Visibility: 0.99}
	p[RightEyeInner] = Landmark{X: 0.48, Y: 0.10, Visibility: 0.99}
	p[RightEye] = Landmark{X: 0.47, Y: 0.10, Visibility: 0.99}
	p[RightEyeOuter] = Landmark{X: 0.46, Y: 0.10, Visibility: 0.99}
	p[LeftEar] = Landmark{X: 0.56, Y: 0.12, Visibility: 0.95}
	p[RightEar] = Landmark{X: 0.44, Y: 0.12, Visibility: 0.95}
	p[MouthLeft] = Landmark{X: 0.52, Y: 0.15, Visibility: 0.99}
	p[MouthRight] = Landmark{X: 0.48, Y: 0.15, Visibility: 0.99}

	p[LeftShoulder] = Landmark{X: 0.62, Y: 0.25, Z: -0.05, Visibility: 0.99}
	p[RightShoulder] = Landmark{X: 0.38, Y: 0.25, Z: -0.05, Visibility: 0.99}
	p[LeftElbow] = Landmark{X: 0.66, Y: 0.40, Visibility: 0.95}
	p[RightElbow] = Landmark{X: 0.34, Y: 0.40, Visibility: 0.95}
	p[LeftWrist] = Landmark{X: 0.67, Y: 0.54, Visibility: 0.90}
	p[RightWrist] = Landmark{X: 0.33, Y: 0.54, Visibility: 0.90}
	p[LeftPinky] = Landmark{X: 0.67, Y: 0.57, Visibility: 0.85}
	p[RightPinky] = Landmark{X: 0.33, Y: 0.57, Visibility: 0.85}
	p[LeftIndex] = Landmark{X: 0.66, Y: 0.58, Visibility: 0.85}
	p[RightIndex] = Landmark{X: 0.34, Y: 0.58, Visibility: 0.85}
	p[LeftThumb] = Landmark{X: 0.65, Y: 0.56, Visibility: 0.85}
	p[RightThumb] = Landmark{X: 0.35, Y: 0.56, Visibility: 0.85}

	p[LeftHip] = Landmark{X: 0.58, Y: 0.55, Visibility: 0.99}
	p[RightHip] = Landmark{X: 0.42, Y: 0.55, Visibility: 0.99}
	p[LeftKnee] = Landmark{X: 0.58, Y: 0.75, Visibility: 0.97}
	p[RightKnee] = Landmark{X: 0.42, Y: 0.75, Visibility: 0.97}
	p[LeftAnkle] = Landmark{X: 0.58, Y: 0.93, Visibility: 0.95}
	p[RightAnkle] = Landmark{X: 0.42, Y: 0.93, Visibility: 0.95}
	p[LeftHeel] = Landmark{X: 0.58, Y: 0.95, Visibility: 0.90}
	p[RightHeel] = Landmark{X: 0.42, Y: 0.95, Visibility: 0.90}
	p[LeftFootIndex] = Landmark{X: 0.60, Y: 0.97, Visibility: 0.90}
	p[RightFootIndex] = Landmark{X: 0.40, Y: 0.97, Visibility: 0.90}

	for i := range p {
		p[i].X = 1 - p[i].X
	}

	return p
}

// UprightLateralLandmarks returns a person standing side-on with ear,
// shoulder, hip and knee stacked on one vertical line. Every lateral angle is 0.
// The far-side points are partly occluded and carry low visibility.
func UprightLateralLandmarks() []Landmark {
	p := basePose()

	set := func(left, right int, x, y float64) {
		p[left] = Landmark{X: x, Y: y, Z: -0.10, Visibility: 0.98}
		p[right] = Landmark{X: x, Y: y, Z: 0.10, Visibility: 0.30}
	}

	p[Nose] = Landmark{X: 0.55, Y: 0.13, Visibility: 0.99}
	set(LeftEye, RightEye, 0.53, 0.11)
	set(LeftEyeInner, RightEyeInner, 0.54, 0.11)
	set(LeftEyeOuter, RightEyeOuter, 0.52, 0.11)
	set(LeftEar, RightEar, 0.50, 0.13)
	set(MouthLeft, MouthRight, 0.54, 0.16)
	set(LeftShoulder, RightShoulder, 0.50, 0.26)
	set(LeftElbow, RightElbow, 0.51, 0.40)
	set(LeftWrist, RightWrist, 0.53, 0.53)
	set(LeftPinky, RightPinky, 0.53, 0.56)
	set(LeftIndex, RightIndex, 0.54, 0.56)
	set(LeftThumb, RightThumb, 0.54, 0.55)
	set(LeftHip, RightHip, 0.50, 0.55)
	set(LeftKnee, RightKnee, 0.50, 0.75)
	set(LeftAnkle, RightAnkle, 0.50, 0.93)
	set(LeftHeel, RightHeel, 0.48, 0.95)
	set(LeftFootIndex, RightFootIndex, 0.56, 0.96)

	// Shoulders stay a little apart horizontally, well under the frontal width.
	p[RightShoulder].X = 0.52
	p[LeftShoulder].X = 0.48

	return p
}

// SlouchedLateralLandmarks returns a side-on pose with the head pushed
// forward, rounded shoulders and a slight pelvic shift.
//
//	Head Forward   atan2(0.09, 0.15) ≈ 31.0° poor
//	Shoulder Round atan2(0.08, 0.25) ≈ 17.7° moderate
//	Pelvic Tilt    atan2(0.03, 0.20) ≈  8.5° good
//	Spine Curve    same as Shoulder Round, moderate
func SlouchedLateralLandmarks() []Landmark {
	p := UprightLateralLandmarks()

	shift := func(left, right int, x, y float64) {
		p[left].X, p[left].Y = x, y
		p[right].X, p[right].Y = x, y
	}

	shift(LeftEar, RightEar, 0.67, 0.11)
	shift(LeftShoulder, RightShoulder, 0.58, 0.26)
	shift(LeftHip, RightHip, 0.50, 0.51)
	shift(LeftKnee, RightKnee, 0.47, 0.71)
	p[Nose] = Landmark{X: 0.72, Y: 0.12, Visibility: 0.99}

	return p
}
