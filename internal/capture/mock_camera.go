package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing and for replaying
// a recorded session through the live monitor.
type MockCamera struct {
	frames  []*gocv.Mat
	owned   bool
	index   int
	served  int
	loop    bool
	fps     int
	mu      sync.Mutex
	running bool
}

// NewMockCamera creates a MockCamera over frames. With loop set playback
// restarts after the last frame, otherwise ReadFrame returns ErrNoFrames.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

// NewMockCameraFromJPEG decodes encoded images into a MockCamera that owns
// its frames and releases them on Release.
func NewMockCameraFromJPEG(loop bool, images ...[]byte) (*MockCamera, error) {
	frames := make([]*gocv.Mat, 0, len(images))
	for i, data := range images {
		frame, err := DecodeImage(data)
		if err != nil {
			for _, f := range frames {
				f.Close()
			}
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, frame)
	}

	c := NewMockCamera(frames, loop)
	c.owned = true
	return c, nil
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrNoFrames
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++
	c.served++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Served returns how many frames have been read since creation.
func (c *MockCamera) Served() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}

// Release frees frames decoded by NewMockCameraFromJPEG. Frames passed to
// NewMockCamera stay owned by the caller.
func (c *MockCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.owned {
		return
	}
	for _, f := range c.frames {
		f.Close()
	}
	c.frames = nil
}
