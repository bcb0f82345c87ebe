// Package capture provides frame sources for the color filter: camera
// devices and video files through GoCV (OpenCV), plus conversion of
// captured Mats into RGBA images.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 30
	IdleFPS       = 5
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	// ErrCameraNotOpen is returned when trying to read from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the source produced a frame without pixels.
	ErrEmptyFrame = errors.New("captured frame is empty")
	// ErrEndOfStream is returned by file sources once every frame was read.
	ErrEndOfStream = errors.New("end of stream")
)

// Camera is a source of video frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type videoSource struct {
	source  any
	file    bool
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera returns a Camera reading from a capture device.
func NewCamera(deviceID int) Camera {
	return &videoSource{
		source: deviceID,
		fps:    DefaultFPS,
	}
}

// NewFileCamera returns a Camera playing back a video file once. ReadFrame
// returns ErrEndOfStream after the last frame.
func NewFileCamera(path string) Camera {
	return &videoSource{
		source: path,
		file:   true,
		fps:    DefaultFPS,
	}
}

// Open opens the source. Devices are asked for DefaultWidth x DefaultHeight;
// files keep their native size and report their own frame rate.
func (c *videoSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.source)
	if err != nil {
		return fmt.Errorf("open %v: %w", c.source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %v: %w", c.source, ErrCameraNotOpen)
	}

	if c.file {
		if fps := int(capture.Get(gocv.VideoCaptureFPS) + 0.5); fps > 0 {
			c.fps = fps
		}
	} else {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close releases the capture handle.
func (c *videoSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

func (c *videoSource) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		if c.file {
			return nil, ErrEndOfStream
		}
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	return &mat, nil
}

// SetFPS sets the capture rate. Values less than or equal to 0 are ignored.
func (c *videoSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil && !c.file {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *videoSource) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

func (c *videoSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
