package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when the pose service script cannot be located.
var ErrScriptNotFound = errors.New("pose_service.py not found")

// idleTimeout is how long the subprocess may sit unused before it is stopped.
const idleTimeout = 30 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe Pose subprocess.
//
// Protocol: each request is a 4-byte big-endian length followed by a JPEG image.
// The service answers with exactly one JSON line per request.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe pose detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findPoseScript()
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect sends one image to the pose service and waits for its answer.
// If ctx ends first the subprocess is killed, since the stream can no longer
// be resynchronized; the next call starts a fresh one.
func (d *MediaPipeDetector) Detect(ctx context.Context, frame *gocv.Mat) (*Result, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	type reply struct {
		line string
		err  error
	}
	done := make(chan reply, 1)

	go func(stdin io.Writer, stdout *bufio.Reader) {
		length := make([]byte, 4)
		binary.BigEndian.PutUint32(length, uint32(len(data)))

		if _, err := stdin.Write(length); err != nil {
			done <- reply{err: fmt.Errorf("write length: %w", err)}
			return
		}
		if _, err := stdin.Write(data); err != nil {
			done <- reply{err: fmt.Errorf("write data: %w", err)}
			return
		}

		line, err := stdout.ReadString('\n')
		if err != nil {
			done <- reply{err: fmt.Errorf("read response: %w", err)}
			return
		}
		done <- reply{line: line}
	}(d.stdin, d.stdout)

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		d.kill()
		return nil, ctx.Err()
	}
	if r.err != nil {
		d.kill()
		return nil, r.err
	}

	var response jsonResult
	if err := json.Unmarshal([]byte(r.line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("pose service: %s", response.Error)
	}

	d.resetIdleTimer()

	return response.toResult(d.config.Mirror), nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath,
		"--model-complexity", strconv.Itoa(d.config.ModelComplexity),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-presence-confidence", strconv.FormatFloat(d.config.MinPresenceConf, 'f', 2, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.reset()

	return err
}

// kill terminates the subprocess without waiting for a clean exit.
func (d *MediaPipeDetector) kill() {
	if !d.started {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.cmd.Wait()
	d.reset()
}

func (d *MediaPipeDetector) reset() {
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findPoseScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".posturelab/scripts/pose_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".posturelab/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if absPath, err := filepath.Abs(path); err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonResult is the JSON structure written by the Python service.
type jsonResult struct {
	PoseLandmarks []jsonLandmark `json:"poseLandmarks"`
	Error         string         `json:"error,omitempty"`
}

type jsonLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// toResult converts the service answer. With mirror set every X is
// replaced by 1-X.
func (r jsonResult) toResult(mirror bool) *Result {
	if len(r.PoseLandmarks) == 0 {
		return &Result{}
	}

	landmarks := make([]Landmark, len(r.PoseLandmarks))
	for i, p := range r.PoseLandmarks {
		x := p.X
		if mirror {
			x = 1 - x
		}
		landmarks[i] = Landmark{X: x, Y: p.Y, Z: p.Z, Visibility: p.Visibility}
	}
	return &Result{PoseLandmarks: landmarks, Mirrored: mirror}
}
