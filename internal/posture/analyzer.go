// Package posture turns a detected pose into posture metrics, an overall
// score and a clinical note.
//
// Everything in this package is synchronous and free of I/O. The Analyzer
// keeps the most recent report and deposits its note into a shared slot.
package posture

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/slot"
)

// SlotSource identifies posture notes in the shared slot.
const SlotSource = "posture"

// Analysis is the result of analyzing one pose.
type Analysis struct {
	ID            string       `json:"id"`
	ViewType      ViewType     `json:"viewType"`
	View          ViewEstimate `json:"view"`
	Policy        Policy       `json:"policy"`
	Metrics       []Metric     `json:"metrics"`
	OverallScore  int          `json:"overallScore"`
	OverallStatus Status       `json:"overallStatus"`
	Timestamp     time.Time    `json:"timestamp"`
}

// Metric returns the metric with the given key.
func (a *Analysis) Metric(key string) (Metric, bool) {
	for _, m := range a.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// Report is an analysis together with its note and the pose it came from.
// Mirrored carries detector.Result.Mirrored for drawing on the source image.
type Report struct {
	Analysis  *Analysis           `json:"analysis"`
	Note      string              `json:"note"`
	Landmarks []detector.Landmark `json:"landmarks,omitempty"`
	Mirrored  bool                `json:"mirrored,omitempty"`
}

// Analyzer runs the posture pipeline and holds the latest report.
type Analyzer struct {
	policy Policy
	slot   *slot.Slot
	now    func() time.Time
	newID  func() string

	mu      sync.RWMutex
	current *Report
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithPolicy sets the analysis policy.
func WithPolicy(p Policy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithSlot sets the shared slot that notes are deposited into.
func WithSlot(s *slot.Slot) Option {
	return func(a *Analyzer) { a.slot = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithIDGenerator overrides how analysis IDs are created.
func WithIDGenerator(fn func() string) Option {
	return func(a *Analyzer) { a.newID = fn }
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the policy the analyzer was created with.
func (a *Analyzer) Policy() Policy {
	return a.policy
}

// Analyze runs the full pipeline on a pose. It returns nil when the pose has
// fewer than detector.NumLandmarks points. Analyze does not touch the
// analyzer's current report or the slot.
func (a *Analyzer) Analyze(landmarks []detector.Landmark) *Report {
	if len(landmarks) < detector.NumLandmarks {
		return nil
	}

	view := EstimateView(landmarks, a.policy)

	var metrics []Metric
	if view.Type == ViewFrontal {
		metrics = ExtractFrontal(landmarks)
	} else {
		metrics = ExtractLateral(landmarks, a.policy)
	}

	statuses := make([]Status, len(metrics))
	for i, m := range metrics {
		statuses[i] = m.Status
	}
	score, status := Score(statuses...)

	now := a.now()
	analysis := &Analysis{
		ID:            a.newID(),
		ViewType:      view.Type,
		View:          view,
		Policy:        a.policy,
		Metrics:       metrics,
		OverallScore:  score,
		OverallStatus: status,
		Timestamp:     now,
	}

	return &Report{
		Analysis:  analysis,
		Note:      GenerateNote(analysis, now),
		Landmarks: append([]detector.Landmark(nil), landmarks...),
	}
}

// AnalyzeResult is Analyze for detector output. It returns nil for a
// missing or incomplete pose and, like Analyze, leaves the current report
// and the slot alone.
func (a *Analyzer) AnalyzeResult(result *detector.Result) *Report {
	if !result.Complete() {
		return nil
	}
	report := a.Analyze(result.PoseLandmarks)
	report.Mirrored = result.Mirrored
	return report
}

// HandleResult is the entry point for detector output. A missing or
// incomplete pose clears the current report and returns nil. Otherwise the
// new report becomes current and its note overwrites the slot.
func (a *Analyzer) HandleResult(result *detector.Result) *Report {
	report := a.AnalyzeResult(result)

	a.mu.Lock()
	a.current = report
	a.mu.Unlock()

	if report != nil && a.slot != nil {
		a.slot.Set(SlotSource, report.Note)
	}
	return report
}

// Current returns the latest report, or nil when the last result had no pose.
func (a *Analyzer) Current() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}
