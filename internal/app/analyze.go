package app

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posturelab/internal/capture"
	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/overlay"
	"github.com/ayusman/posturelab/internal/posture"
	"github.com/ayusman/posturelab/internal/publish"
)

// AnalyzeImage decodes an uploaded JPEG or PNG, detects the pose and
// analyzes it. A nil report with a nil error means no complete pose was found.
func (a *App) AnalyzeImage(ctx context.Context, data []byte) (*posture.Report, error) {
	img, err := capture.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	return a.analyzeFrame(ctx, img, publish.SourceUpload)
}

// AnalyzeLandmarks analyzes a pose detected by the client.
func (a *App) AnalyzeLandmarks(ctx context.Context, landmarks []detector.Landmark) *posture.Report {
	return a.handle(ctx, &detector.Result{PoseLandmarks: landmarks}, publish.SourceUpload)
}

// Overlay draws the analysis of an uploaded image onto it and returns the
// annotated JPEG. It does not update the current report or the slot.
func (a *App) Overlay(ctx context.Context, data []byte) ([]byte, *posture.Report, error) {
	img, err := capture.DecodeImage(data)
	if err != nil {
		return nil, nil, err
	}
	defer img.Close()

	result, err := a.detect(ctx, img)
	if err != nil {
		return nil, nil, err
	}

	report := a.analyzer.AnalyzeResult(result)
	overlay.Draw(img, report)

	out, err := capture.EncodeJPEG(img)
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

func (a *App) detect(ctx context.Context, frame *gocv.Mat) (*detector.Result, error) {
	d, err := a.poseDetector()
	if err != nil {
		return nil, fmt.Errorf("detect pose: %w", err)
	}

	start := time.Now()
	result, err := d.Detect(ctx, frame)
	a.metrics.ObserveDetect(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("detect pose: %w", err)
	}
	return result, nil
}

func (a *App) analyzeFrame(ctx context.Context, frame *gocv.Mat, source string) (*posture.Report, error) {
	result, err := a.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	return a.handle(ctx, result, source), nil
}

// handle runs the analyzer on a detector result and distributes the report.
// Sink failures are logged and counted by the fanout; they never fail the analysis.
func (a *App) handle(ctx context.Context, result *detector.Result, source string) *posture.Report {
	report := a.analyzer.HandleResult(result)
	a.notify(report)

	if report == nil {
		a.metrics.ObserveAnalysis(nil)
		return nil
	}
	a.metrics.ObserveAnalysis(report.Analysis)

	a.logger.Info("posture analyzed",
		"analysis", report.Analysis.ID,
		"source", source,
		"view", report.Analysis.ViewType,
		"score", report.Analysis.OverallScore,
		"status", report.Analysis.OverallStatus,
	)

	// The report is final; a caller hanging up must not cut the archive write.
	_ = a.sinks.Publish(publish.WithSource(context.WithoutCancel(ctx), source), report)
	return report
}
