package app

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posturelab/internal/capture"
	"github.com/ayusman/posturelab/internal/overlay"
	"github.com/ayusman/posturelab/internal/publish"
)

// SetEnabled turns live analysis on or off. The camera keeps running while
// disabled so the preview stream stays live. Toggling restarts the stillness
// count. The choice is persisted when a store is configured.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(SettingMonitorEnabled, strconv.FormatBool(enabled)); err != nil {
			a.logger.Warn("failed to persist monitor setting", "error", err)
		}
	}
	a.stillness.Reset()
	a.logger.Info("live monitoring toggled", "enabled", enabled)
}

// IsEnabled returns whether live analysis is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Running reports whether the monitor loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done != nil
}

// Start opens the camera and begins the monitor loop. It returns nil if the
// monitor is already running. The loop ends when ctx is cancelled, when Stop
// is called or when the camera runs out of frames; the camera is closed in
// every case.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(capture.DefaultFPS)

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runMonitor(runCtx, a.camera, a.done)

	a.logger.Info("live monitor started", "camera", a.config.CameraID, "minInterval", a.config.MinInterval)
	return nil
}

// Stop halts the monitor loop and closes the camera.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done, camera := a.cancel, a.done, a.camera
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if err := camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	a.stillness.Reset()

	a.logger.Info("live monitor stopped")
}

// LatestFrame returns the most recent camera frame as JPEG, annotated with
// the current report, or nil before the first frame.
func (a *App) LatestFrame() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastFrame
}

// runMonitor reads frames at the camera rate. A frame is analyzed when
// monitoring is enabled, the subject has settled and at least MinInterval
// has passed since the previous live analysis.
func (a *App) runMonitor(ctx context.Context, camera capture.Camera, done chan struct{}) {
	defer close(done)
	defer a.release(camera, done)

	ticker := time.NewTicker(time.Second / time.Duration(max(camera.FPS(), 1)))
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := camera.ReadFrame()
			if err != nil {
				if errors.Is(err, capture.ErrNoFrames) || errors.Is(err, capture.ErrCameraNotOpen) {
					a.logger.Info("camera stopped delivering frames", "error", err)
					return
				}
				a.logger.Warn("error reading frame", "error", err)
				continue
			}

			if a.step(ctx, frame, last) {
				last = time.Now()
			}
			frame.Close()
		}
	}
}

// release tears the monitor down when the loop ends on its own. It is a
// no-op when Stop has already claimed the loop.
func (a *App) release(camera capture.Camera, done chan struct{}) {
	a.mu.Lock()
	if a.done != done {
		a.mu.Unlock()
		return
	}
	a.cancel()
	a.cancel, a.done = nil, nil
	// Closed under the lock so a stopped monitor never has an open camera.
	if err := camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	a.mu.Unlock()

	a.stillness.Reset()
	a.logger.Info("live monitor ended")
}

// step processes one frame and reports whether it was analyzed.
func (a *App) step(ctx context.Context, frame *gocv.Mat, last time.Time) bool {
	analyzed := false

	settled, changed := a.stillness.Observe(frame)
	if a.IsEnabled() && settled && time.Since(last) >= a.config.MinInterval {
		if _, err := a.analyzeFrame(ctx, frame, publish.SourceLive); err != nil {
			a.logger.Warn("live analysis failed", "error", err)
		} else {
			analyzed = true
		}
	} else {
		a.logger.Debug("frame skipped", "settled", settled, "changed", changed)
	}

	preview := frame.Clone()
	defer preview.Close()
	overlay.Draw(&preview, a.analyzer.Current())
	if data, err := capture.EncodeJPEG(&preview); err == nil {
		a.mu.Lock()
		a.lastFrame = data
		a.mu.Unlock()
	}

	return analyzed
}
