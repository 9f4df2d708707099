package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing constants.
const (
	// GaussianBlurSize is the kernel size used to suppress sensor noise.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change counted as movement.
	DiffThreshold = 25
	// DefaultSettleFrames is how many quiet frames in a row mark a settled pose.
	DefaultSettleFrames = 3
)

// StillnessDetector reports when the subject in front of the camera has
// stopped moving, so the live monitor only analyzes settled poses.
//
// Each frame is converted to grayscale, blurred and compared with the
// previous one. The percentage of changed pixels is compared to the
// threshold; once it stays at or below the threshold for settleFrames
// consecutive frames the pose is settled. Any larger change resets the count.
type StillnessDetector struct {
	threshold    float64
	settleFrames int

	mu sync.Mutex
	// prevGray is allocated by the first Observe and freed by Close.
	prevGray    *gocv.Mat
	initialized bool
	quiet       int
}

// NewStillnessDetector creates a StillnessDetector. threshold is the
// percentage of pixels allowed to change between still frames.
func NewStillnessDetector(threshold float64, settleFrames int) *StillnessDetector {
	if settleFrames <= 0 {
		settleFrames = DefaultSettleFrames
	}
	return &StillnessDetector{
		threshold:    threshold,
		settleFrames: settleFrames,
	}
}

// Observe feeds one frame and reports whether the pose is settled along
// with the percentage of pixels that changed since the previous frame.
func (s *StillnessDetector) Observe(frame *gocv.Mat) (bool, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if s.prevGray == nil {
		m := gocv.NewMat()
		s.prevGray = &m
	}

	if !s.initialized || blurred.Rows() != s.prevGray.Rows() || blurred.Cols() != s.prevGray.Cols() {
		blurred.CopyTo(s.prevGray)
		s.initialized = true
		s.quiet = 0
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, *s.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0

	blurred.CopyTo(s.prevGray)

	if changed > s.threshold {
		s.quiet = 0
		return false, changed
	}

	s.quiet++
	return s.quiet >= s.settleFrames, changed
}

// Reset forgets the baseline frame and the quiet count. The baseline
// buffer is kept for reuse.
func (s *StillnessDetector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.quiet = 0
}

// Close releases the baseline frame. It is safe to call more than once; a
// later Observe starts from a fresh baseline.
func (s *StillnessDetector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prevGray != nil {
		s.prevGray.Close()
		s.prevGray = nil
	}
	s.initialized = false
	s.quiet = 0
}

// SetThreshold changes the allowed change percentage. Values <= 0 are ignored.
func (s *StillnessDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
}
