// Package app wires posture analysis to its inputs and outputs: uploaded
// images and poses, the live camera monitor, and the downstream sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/posturelab/internal/capture"
	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/plugin"
	"github.com/ayusman/posturelab/internal/posture"
	"github.com/ayusman/posturelab/internal/publish"
	"github.com/ayusman/posturelab/internal/slot"
	"github.com/ayusman/posturelab/internal/store"
	"github.com/ayusman/posturelab/internal/telemetry"
)

// Monitor defaults.
const (
	// DefaultMinInterval is the shortest time between two live analyses.
	DefaultMinInterval = 2 * time.Second
	// DefaultStillThreshold is the percentage of changed pixels still counted as motionless.
	DefaultStillThreshold = 1.0
	// subscriberBuffer is how many live updates a slow subscriber may lag behind.
	subscriberBuffer = 4
)

// SettingMonitorEnabled persists the monitor toggle across restarts.
const SettingMonitorEnabled = "monitor.enabled"

// Config holds configuration options for the application.
type Config struct {
	Store          *store.Store
	PluginDir      string
	PluginTimeout  time.Duration
	CameraID       int
	StillThreshold float64
	MinInterval    time.Duration
	Policy         posture.Policy
	Logger         *slog.Logger
	Metrics        *telemetry.Metrics
}

// App owns the analyzer, the detector and the live monitor.
type App struct {
	config    Config
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	slot      *slot.Slot
	analyzer  *posture.Analyzer
	camera    capture.Camera
	stillness *capture.StillnessDetector
	sinks     *publish.Fanout
	pluginMgr *plugin.Manager

	mu        sync.RWMutex
	detector  detector.Detector
	enabled   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastFrame []byte
	// detectorErr explains a nil detector.
	detectorErr error

	subMu       sync.Mutex
	subscribers map[int]chan *posture.Report
	nextSub     int
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.StillThreshold <= 0 {
		config.StillThreshold = DefaultStillThreshold
	}
	if config.MinInterval <= 0 {
		config.MinInterval = DefaultMinInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shared := slot.New()
	a := &App{
		config:      config,
		logger:      logger,
		metrics:     config.Metrics,
		slot:        shared,
		analyzer:    posture.NewAnalyzer(posture.WithPolicy(config.Policy), posture.WithSlot(shared)),
		camera:      capture.NewCamera(config.CameraID),
		stillness:   capture.NewStillnessDetector(config.StillThreshold, capture.DefaultSettleFrames),
		pluginMgr:   plugin.NewManager(config.PluginDir, logger),
		subscribers: make(map[int]chan *posture.Report),
	}

	a.sinks = publish.NewFanout(logger, a.metrics.SinkError)
	if config.Store != nil {
		a.sinks.Add(publish.NewArchive(config.Store))
		if v, err := config.Store.Settings().Get(SettingMonitorEnabled); err == nil {
			a.enabled, _ = strconv.ParseBool(v)
		} else if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("failed to load monitor setting", "error", err)
		}
	}
	a.sinks.Add(plugin.NewDispatcher(a.pluginMgr, plugin.NewExecutor(config.PluginTimeout), logger))

	// Without MediaPipe, image analysis fails; pose uploads still work.
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		logger.Info("using MediaPipe pose detection")
	} else {
		logger.Warn("MediaPipe not available, image analysis disabled", "error", err)
		a.detectorErr = err
	}

	return a
}

// AddSink registers an additional consumer of finished reports. It must be
// called before the app starts analyzing.
func (a *App) AddSink(s publish.Sink) {
	a.sinks.Add(s)
}

// SetDetector sets the pose detector implementation to use. A nil detector
// makes image analysis fail with detector.ErrUnavailable.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	a.detectorErr = nil
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// poseDetector returns the detector, or an error wrapping
// detector.ErrUnavailable and the reason there is none.
func (a *App) poseDetector() (detector.Detector, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.detector != nil {
		return a.detector, nil
	}
	if a.detectorErr != nil {
		return nil, fmt.Errorf("%w: %w", detector.ErrUnavailable, a.detectorErr)
	}
	return nil, detector.ErrUnavailable
}

// SetCamera replaces the camera used by the live monitor. It has no effect
// on a monitor that is already running.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Analyzer returns the posture analyzer.
func (a *App) Analyzer() *posture.Analyzer {
	return a.analyzer
}

// Slot returns the shared last-analysis slot.
func (a *App) Slot() *slot.Slot {
	return a.slot
}

// Store returns the archive store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Subscribe returns a channel receiving every live result; a nil report
// means the last frame had no usable pose. Updates are dropped for a
// subscriber whose buffer is full. Call the returned func to unsubscribe.
func (a *App) Subscribe() (<-chan *posture.Report, func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextSub
	a.nextSub++
	ch := make(chan *posture.Report, subscriberBuffer)
	a.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			defer a.subMu.Unlock()
			delete(a.subscribers, id)
			close(ch)
		})
	}
}

func (a *App) notify(report *posture.Report) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for _, ch := range a.subscribers {
		select {
		case ch <- report:
		default:
		}
	}
}

// Close stops the monitor and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.stillness.Close()

	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}
