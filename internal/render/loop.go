package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/colorhunt/internal/capture"
	"github.com/ayusman/colorhunt/internal/control"
)

// Loop timing defaults.
const (
	// DefaultIdleAfter is how long the scene must be still before the loop
	// drops to the idle rate.
	DefaultIdleAfter = 2 * time.Second
	// DefaultMotionThreshold is the percentage of changed pixels that
	// counts as motion.
	DefaultMotionThreshold = 1.0
)

// ParamSource provides the parameters for each draw.
type ParamSource interface {
	Snapshot() control.Snapshot
}

// Publisher receives each encoded output frame.
type Publisher interface {
	Publish(jpeg []byte)
}

// Config configures a Loop.
type Config struct {
	Camera   capture.Camera
	Params   ParamSource
	Output   Publisher
	Renderer *Renderer
	Logger   logrus.FieldLogger

	// ActiveFPS defaults to the camera's FPS when zero.
	ActiveFPS int
	// IdleFPS enables motion-adaptive pacing when positive.
	IdleFPS         int
	IdleAfter       time.Duration
	MotionThreshold float64
}

// Stats counts what the loop has done since it was created.
type Stats struct {
	Frames    uint64    `json:"frames"`
	Skipped   uint64    `json:"skipped"`
	Errors    uint64    `json:"errors"`
	LastFrame time.Time `json:"last_frame"`
}

// Status is a point-in-time view of the loop.
type Status struct {
	Running bool  `json:"running"`
	Paused  bool  `json:"paused"`
	FPS     int   `json:"fps"`
	Stats   Stats `json:"stats"`
}

// Loop renders frames on its own goroutine between Start and Stop. Pause
// keeps the goroutine alive but skips cycles.
type Loop struct {
	cfg Config
	log logrus.FieldLogger

	mu     sync.Mutex
	camera capture.Camera
	cancel context.CancelFunc
	done   chan struct{}

	paused  atomic.Bool
	wake    chan struct{}
	fps     atomic.Int64
	frames  atomic.Uint64
	skipped atomic.Uint64
	errs    atomic.Uint64
	last    atomic.Int64
}

// NewLoop creates a stopped Loop.
func NewLoop(cfg Config) *Loop {
	if cfg.Renderer == nil {
		cfg.Renderer = NewRenderer(DefaultQuality)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = DefaultIdleAfter
	}
	if cfg.MotionThreshold <= 0 {
		cfg.MotionThreshold = DefaultMotionThreshold
	}
	return &Loop{
		cfg:    cfg,
		log:    cfg.Logger.WithField("component", "render"),
		camera: cfg.Camera,
		wake:   make(chan struct{}, 1),
	}
}

// Start opens the camera and launches the render goroutine. Calling Start on
// a running loop does nothing.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.runningLocked() {
		return nil
	}
	return l.startLocked(ctx, l.camera)
}

func (l *Loop) startLocked(ctx context.Context, cam capture.Camera) error {
	if cam == nil {
		return fmt.Errorf("start render loop: %w", capture.ErrCameraNotOpen)
	}
	if err := cam.Open(); err != nil {
		return fmt.Errorf("start render loop: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	l.camera = cam
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, cam, l.done)

	l.log.WithField("fps", cam.FPS()).Info("render loop started")
	return nil
}

// Stop ends the render goroutine, waits for it and closes the camera.
// Calling Stop on a stopped loop does nothing.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.log.Info("render loop stopped")
}

// Restart stops the loop and starts it again on cam. If cam cannot be
// opened the previous camera is kept, and restarted if the loop was running.
func (l *Loop) Restart(ctx context.Context, cam capture.Camera) error {
	wasRunning := l.Running()
	l.Stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.startLocked(ctx, cam)
	if err == nil {
		return nil
	}
	if wasRunning {
		if rerr := l.startLocked(ctx, l.camera); rerr != nil {
			l.log.WithError(rerr).Warn("restarting previous camera")
		}
	}
	return err
}

// Pause skips render cycles until Resume.
func (l *Loop) Pause() {
	if !l.paused.Swap(true) {
		l.log.Info("render loop paused")
	}
}

// Resume continues rendering after Pause.
func (l *Loop) Resume() {
	if l.paused.Swap(false) {
		l.log.Info("render loop resumed")
		l.Wake()
	}
}

// Wake renders the next frame immediately and resets the idle timer. Used
// when the user touches a control so the change shows without waiting for
// an idle tick.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the render goroutine is alive.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runningLocked()
}

// Paused reports whether cycles are being skipped.
func (l *Loop) Paused() bool {
	return l.paused.Load()
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	s := Stats{
		Frames:  l.frames.Load(),
		Skipped: l.skipped.Load(),
		Errors:  l.errs.Load(),
	}
	if ns := l.last.Load(); ns > 0 {
		s.LastFrame = time.Unix(0, ns)
	}
	return s
}

// Status returns running state, pacing and counters together.
func (l *Loop) Status() Status {
	return Status{
		Running: l.Running(),
		Paused:  l.Paused(),
		FPS:     int(l.fps.Load()),
		Stats:   l.Stats(),
	}
}

func (l *Loop) runningLocked() bool {
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		// Finished on its own, e.g. end of a video file.
		l.cancel()
		l.cancel, l.done = nil, nil
		return false
	default:
		return true
	}
}

func (l *Loop) run(ctx context.Context, cam capture.Camera, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := cam.Close(); err != nil {
			l.log.WithError(err).Warn("closing camera")
		}
	}()

	active := l.cfg.ActiveFPS
	if active <= 0 {
		active = cam.FPS()
	}
	if active <= 0 {
		active = capture.DefaultFPS
	}

	var (
		motion *capture.MotionDetector
		rate   *capture.AdaptiveRate
	)
	if l.cfg.IdleFPS > 0 && l.cfg.IdleFPS < active {
		motion = capture.NewMotionDetector(l.cfg.MotionThreshold)
		defer motion.Close()
		rate = capture.NewAdaptiveRate(active, l.cfg.IdleFPS, l.cfg.IdleAfter)
	}

	fps := active
	cam.SetFPS(fps)
	l.fps.Store(int64(fps))
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			if rate != nil {
				rate.Wake(time.Now())
			}
		case <-ticker.C:
		}

		if l.paused.Load() {
			continue
		}

		moved, err := l.cycle(cam, motion)
		if errors.Is(err, capture.ErrEndOfStream) {
			l.log.Info("frame source ended")
			return
		}

		if rate == nil {
			continue
		}
		if next := rate.Observe(moved, time.Now()); next != fps {
			fps = next
			cam.SetFPS(fps)
			l.fps.Store(int64(fps))
			ticker.Reset(time.Second / time.Duration(fps))
			l.log.WithField("fps", fps).Debug("frame rate changed")
		}
	}
}

// cycle renders one frame. It reports whether motion was seen; degenerate
// frames are counted and skipped.
func (l *Loop) cycle(cam capture.Camera, motion *capture.MotionDetector) (bool, error) {
	mat, err := cam.ReadFrame()
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrEndOfStream):
			return false, err
		case errors.Is(err, capture.ErrEmptyFrame):
			l.skipped.Add(1)
			l.log.Debug("skipping empty frame")
		default:
			l.errs.Add(1)
			l.log.WithError(err).Debug("reading frame")
		}
		return false, nil
	}
	defer mat.Close()

	if mat.Cols() == 0 || mat.Rows() == 0 {
		l.skipped.Add(1)
		l.log.Debug("skipping zero-sized frame")
		return false, nil
	}

	var moved bool
	if motion != nil {
		moved, _ = motion.Detect(mat)
	}

	snap := l.cfg.Params.Snapshot()
	img, err := l.cfg.Renderer.Draw(mat, snap)
	if err != nil {
		l.skipped.Add(1)
		l.log.WithError(err).Debug("skipping frame")
		return moved, nil
	}

	jpeg, err := l.cfg.Renderer.Encode(img)
	if err != nil {
		l.errs.Add(1)
		l.log.WithError(err).Warn("encoding frame")
		return moved, nil
	}

	l.cfg.Output.Publish(jpeg)
	l.frames.Add(1)
	l.last.Store(time.Now().UnixNano())
	return moved, nil
}
