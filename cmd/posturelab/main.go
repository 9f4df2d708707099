package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/ayusman/posturelab/internal/app"
	"github.com/ayusman/posturelab/internal/capture"
	"github.com/ayusman/posturelab/internal/config"
	"github.com/ayusman/posturelab/internal/detector"
	"github.com/ayusman/posturelab/internal/logging"
	"github.com/ayusman/posturelab/internal/posture"
	"github.com/ayusman/posturelab/internal/publish"
	"github.com/ayusman/posturelab/internal/server"
	"github.com/ayusman/posturelab/internal/store"
	"github.com/ayusman/posturelab/internal/telemetry"
	"github.com/ayusman/posturelab/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}

	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	withTray := flag.Bool("tray", false, "show the menu bar icon")
	analyze := flag.String("analyze", "", "analyze a pose (.json) or image file, print the SOAP note and exit")
	replay := flag.String("replay", "", "feed the live monitor from a directory of JPEG frames instead of the camera")
	flag.Parse()
	cfg.Addr = *addr

	if err := run(cfg, *withTray, *analyze, *replay); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, withTray bool, analyzePath, replayDir string) error {
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	metrics := telemetry.New()
	application := app.New(app.Config{
		Store:          st,
		PluginDir:      cfg.PluginDir,
		PluginTimeout:  cfg.PluginTimeout,
		CameraID:       cfg.CameraID,
		StillThreshold: cfg.StillThreshold,
		MinInterval:    cfg.MonitorInterval,
		Policy:         cfg.Policy(),
		Logger:         logger.Logger,
		Metrics:        metrics,
	})
	defer application.Close()

	if len(cfg.KafkaBrokers) > 0 {
		kp, err := publish.NewKafkaPublisher(publish.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger.Logger)
		if err != nil {
			return err
		}
		defer kp.Close()
		application.AddSink(kp)
		logger.Info("publishing analyses to kafka", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	}

	if err := application.DiscoverPlugins(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}

	if analyzePath != "" {
		return analyzeFile(application, analyzePath)
	}

	webDir := findWebDir(cfg.WebDir, cfg.DataDir)
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       application,
		Metrics:   metrics,
		Logger:    logger.Logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.CombinedLoggingHandler(log.Writer(), srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if replayDir != "" {
		cam, err := replayCamera(replayDir)
		if err != nil {
			return err
		}
		defer func() {
			application.Stop()
			cam.Release()
		}()
		application.SetCamera(cam)
		logger.Info("replaying recorded frames", "dir", replayDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		// The dashboard and upload analysis still work without a camera.
		logger.Warn("live monitor unavailable", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	result := make(chan error, 1)
	go func() {
		var err error
		select {
		case <-ctx.Done():
		case err = <-errCh:
		}
		result <- err
	}()

	if withTray {
		// The menu bar must own the main goroutine.
		t := newTray(ctx, application, stop, dashboardURL(cfg.Addr))
		go func() {
			err := <-result
			result <- err
			t.Quit()
		}()
		t.Run()
	}

	if err := <-result; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newTray builds the menu bar icon and mirrors live analyses into it.
func newTray(ctx context.Context, a *app.App, quit func(), url string) *tray.Tray {
	t := tray.New(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() { openBrowser(url) })
	t.OnQuit(quit)

	updates, unsubscribe := a.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case report, ok := <-updates:
				if !ok {
					return
				}
				if report != nil {
					t.ShowAnalysis(report.Analysis)
				}
			}
		}
	}()

	return t
}

// analyzeFile runs one analysis on a landmark JSON document or an image.
func analyzeFile(a *app.App, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var report *posture.Report
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var result detector.Result
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		report = a.AnalyzeLandmarks(ctx, result.PoseLandmarks)
	} else {
		report, err = a.AnalyzeImage(ctx, data)
		if err != nil {
			return err
		}
	}

	if report == nil {
		fmt.Println("no pose detected")
		return nil
	}
	fmt.Println(report.Note)
	return nil
}

// replayCamera loads every .jpg/.jpeg in dir, in name order, as a looping camera.
func replayCamera(dir string) (*capture.MockCamera, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images [][]byte
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".jpg" && ext != ".jpeg") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no JPEG frames in %s", dir)
	}

	return capture.NewMockCameraFromJPEG(true, images...)
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("failed to open browser: %v", err)
	}
}

// findWebDir returns the first existing directory among the configured one,
// its parents' copies and <dataDir>/web, or "" if none exists.
func findWebDir(configured, dataDir string) string {
	candidates := []string{configured}
	if !filepath.IsAbs(configured) {
		candidates = append(candidates, filepath.Join("..", configured), filepath.Join("..", "..", configured))
	}
	candidates = append(candidates, filepath.Join(dataDir, "web"))

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
