// Package overlay draws the detected skeleton and the measured posture lines
// onto an image.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"

	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/posture"
)

var (
	boneColor  = color.RGBA{R: 220, G: 220, B: 220, A: 0}
	jointColor = color.RGBA{R: 0, G: 200, B: 255, A: 0}

	statusColors = map[posture.Status]color.RGBA{
		posture.StatusGood:     {R: 40, G: 200, B: 90, A: 0},
		posture.StatusModerate: {R: 250, G: 180, B: 20, A: 0},
		posture.StatusPoor:     {R: 230, G: 50, B: 50, A: 0},
	}
)

const (
	boneThickness    = 2
	measureThickness = 4
	jointRadius      = 4
)

// Segment is a measured line between two landmark-space points, tinted by
// the status of the metric it belongs to.
type Segment struct {
	Key    string
	From   r3.Vector
	To     r3.Vector
	Status posture.Status
}

// Segments returns the lines each metric of the report was measured along.
func Segments(report *posture.Report) []Segment {
	if report == nil || report.Analysis == nil || len(report.Landmarks) < detector.NumLandmarks {
		return nil
	}

	p := report.Landmarks
	at := func(i int) r3.Vector { return p[i].Vec() }
	mid := func(a, b int) r3.Vector { return posture.Midpoint(at(a), at(b)) }

	ears := mid(detector.LeftEar, detector.RightEar)
	shoulders := mid(detector.LeftShoulder, detector.RightShoulder)
	hips := mid(detector.LeftHip, detector.RightHip)
	knees := mid(detector.LeftKnee, detector.RightKnee)

	lines := map[string][2]r3.Vector{
		posture.KeyHeadTilt:       {at(detector.LeftEar), at(detector.RightEar)},
		posture.KeyShoulderLevel:  {at(detector.LeftShoulder), at(detector.RightShoulder)},
		posture.KeyHipLevel:       {at(detector.LeftHip), at(detector.RightHip)},
		posture.KeySpineAlignment: {shoulders, hips},
		posture.KeyHeadForward:    {ears, shoulders},
		posture.KeyShoulderRound:  {shoulders, hips},
		posture.KeyPelvicTilt:     {hips, knees},
		posture.KeySpineCurve:     {shoulders, hips},
	}
	if report.Analysis.Policy.DistinctSpineCurve {
		lines[posture.KeySpineCurve] = [2]r3.Vector{ears, hips}
	}

	segments := make([]Segment, 0, len(report.Analysis.Metrics))
	for _, m := range report.Analysis.Metrics {
		line, ok := lines[m.Key]
		if !ok {
			continue
		}
		segments = append(segments, Segment{Key: m.Key, From: line[0], To: line[1], Status: m.Status})
	}
	return segments
}

// Draw renders the report onto img in place. A nil report draws nothing,
// so a frame without a detection is left untouched.
func Draw(img *gocv.Mat, report *posture.Report) {
	if img == nil || img.Empty() || report == nil || len(report.Landmarks) < detector.NumLandmarks {
		return
	}

	w, h := img.Cols(), img.Rows()
	toPixel := func(v r3.Vector) image.Point {
		return project(v, w, h, report.Mirrored)
	}

	p := report.Landmarks
	for _, c := range detector.Connections {
		a, b := p[c[0]], p[c[1]]
		if !a.Visible() || !b.Visible() {
			continue
		}
		gocv.Line(img, toPixel(a.Vec()), toPixel(b.Vec()), boneColor, boneThickness)
	}

	for _, l := range p {
		if !l.Visible() {
			continue
		}
		gocv.Circle(img, toPixel(l.Vec()), jointRadius, jointColor, -1)
	}

	for _, s := range Segments(report) {
		gocv.Line(img, toPixel(s.From), toPixel(s.To), statusColors[s.Status], measureThickness)
	}

	if report.Analysis != nil {
		header := fmt.Sprintf("%s view  score %d (%s)",
			report.Analysis.ViewType, report.Analysis.OverallScore, report.Analysis.OverallStatus)
		gocv.PutText(img, header, image.Pt(12, 28), gocv.FontHersheySimplex, 0.7,
			statusColors[report.Analysis.OverallStatus], 2)
	}
}

// project maps a landmark-space point to a pixel. Mirrored landmarks are
// flipped back so they land on the unflipped image.
func project(v r3.Vector, w, h int, mirrored bool) image.Point {
	x := v.X
	if mirrored {
		x = 1 - x
	}
	return image.Pt(int(x*float64(w)), int(v.Y*float64(h)))
}
