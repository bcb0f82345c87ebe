// Package app wires the Color Hunt runtime together: control state, the
// render loop, the frame hub, the shader program and persisted settings.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/colorhunt/internal/capture"
	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/render"
	"github.com/ayusman/colorhunt/internal/store"
)

// Pipeline defaults.
const (
	// persistDelay coalesces slider drags into one settings write.
	persistDelay = 500 * time.Millisecond
	// settingsTimeout bounds one settings read or write.
	settingsTimeout = 5 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	// Backend stores presets and settings. Nil runs without persistence.
	Backend store.Backend
	// CameraDevice selects the capture device. Negative means the saved
	// device, or 0 when nothing is saved.
	CameraDevice int
	// Camera overrides the device camera, e.g. a video file source.
	Camera capture.Camera
	// NewCamera opens a device camera; defaults to capture.NewCamera.
	NewCamera func(device int) capture.Camera

	Viewport        filter.Size
	ActiveFPS       int
	IdleFPS         int
	MotionThreshold float64
	Quality         int
	Logger          logrus.FieldLogger
}

// savedFilter is the persisted form of the last filter.
type savedFilter struct {
	Band  filter.Band  `json:"band"`
	Blend filter.Blend `json:"blend"`
}

// App is the main application that runs the filter pipeline.
type App struct {
	config  Config
	log     logrus.FieldLogger
	ctx     context.Context
	state   *control.State
	frames  *render.Hub
	loop    *render.Loop
	program *filter.Program

	mu     sync.RWMutex
	device int

	stopWatch   context.CancelFunc
	watchDone   chan struct{}
	unsubscribe func()
}

// New creates an App, restoring the saved filter and camera device. The
// render loop is not started; ctx bounds its lifetime once it is.
func New(ctx context.Context, config Config) *App {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.NewCamera == nil {
		config.NewCamera = capture.NewCamera
	}

	a := &App{
		config: config,
		log:    config.Logger.WithField("component", "app"),
		ctx:    ctx,
		state:  control.NewState(config.Viewport),
		frames: render.NewHub(),
	}

	a.restore(ctx)

	cam := config.Camera
	if cam == nil {
		cam = config.NewCamera(a.device)
	}
	a.loop = render.NewLoop(render.Config{
		Camera:          cam,
		Params:          a.state,
		Output:          a.frames,
		Renderer:        render.NewRenderer(config.Quality),
		Logger:          config.Logger,
		ActiveFPS:       config.ActiveFPS,
		IdleFPS:         config.IdleFPS,
		MotionThreshold: config.MotionThreshold,
	})

	if prog, err := filter.CompileProgram(); err == nil {
		a.program = prog
		a.log.WithField("spirv_bytes", len(prog.SPIRV)).Info("shader program compiled")
	} else {
		a.log.WithError(err).Info("GPU shader unavailable, using CPU renderer")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	a.watchDone = make(chan struct{})
	updates, unsubscribe := a.state.Subscribe()
	a.unsubscribe = unsubscribe
	go a.watch(watchCtx, updates, a.stateFilter(a.state.Snapshot()))

	return a
}

// restore applies saved settings. Missing or corrupt values are logged and
// skipped.
func (a *App) restore(ctx context.Context) {
	a.device = a.config.CameraDevice
	if a.config.Backend == nil {
		if a.device < 0 {
			a.device = 0
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, settingsTimeout)
	defer cancel()
	settings := a.config.Backend.Settings()

	if a.device < 0 {
		a.device = 0
		if v, err := settings.Get(ctx, store.SettingCameraDevice); err == nil {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				a.device = n
			} else {
				a.log.WithField("value", v).Warn("ignoring saved camera device")
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			a.log.WithError(err).Warn("reading saved camera device")
		}
	}

	v, err := settings.Get(ctx, store.SettingFilter)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		a.log.WithError(err).Warn("reading saved filter")
		return
	}
	var saved savedFilter
	if err := json.Unmarshal([]byte(v), &saved); err != nil {
		a.log.WithError(err).Warn("ignoring corrupt saved filter")
		return
	}
	if err := a.state.SetFilter(saved.Band, saved.Blend); err != nil {
		a.log.WithError(err).Warn("ignoring invalid saved filter")
		return
	}
	a.log.WithFields(logrus.Fields{
		"hue_min": saved.Band.HueMin,
		"hue_max": saved.Band.HueMax,
	}).Info("restored saved filter")
}

// Start begins rendering. It implements the render controller used by the
// HTTP API and the tray.
func (a *App) Start() error {
	return a.loop.Start(a.ctx)
}

// Stop ends rendering and releases the camera.
func (a *App) Stop() {
	a.loop.Stop()
}

// Pause keeps the camera open but skips rendering.
func (a *App) Pause() {
	a.loop.Pause()
}

// Resume continues rendering after Pause.
func (a *App) Resume() {
	a.loop.Resume()
}

// SetEnabled pauses or resumes rendering.
func (a *App) SetEnabled(enabled bool) {
	if enabled {
		a.Resume()
	} else {
		a.Pause()
	}
}

// IsEnabled returns whether frames are being rendered.
func (a *App) IsEnabled() bool {
	return a.loop.Running() && !a.loop.Paused()
}

// Status returns the render loop status.
func (a *App) Status() render.Status {
	return a.loop.Status()
}

// CameraDevice returns the active capture device.
func (a *App) CameraDevice() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.device
}

// SwitchCamera restarts capture on device, resets the zoom and saves the
// choice.
func (a *App) SwitchCamera(device int) error {
	if device < 0 {
		return fmt.Errorf("switch camera: invalid device %d", device)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.ResetZoom()
	if err := a.loop.Restart(a.ctx, a.config.NewCamera(device)); err != nil {
		return fmt.Errorf("switch camera: %w", err)
	}
	a.device = device
	a.log.WithField("device", device).Info("camera switched")

	if a.config.Backend != nil {
		ctx, cancel := context.WithTimeout(a.ctx, settingsTimeout)
		defer cancel()
		if err := a.config.Backend.Settings().Set(ctx, store.SettingCameraDevice, strconv.Itoa(device)); err != nil {
			a.log.WithError(err).Warn("saving camera device")
		}
	}
	return nil
}

// State returns the shared control state.
func (a *App) State() *control.State {
	return a.state
}

// Frames returns the hub carrying rendered frames.
func (a *App) Frames() *render.Hub {
	return a.frames
}

// Program returns the compiled shader, or nil when none is available.
func (a *App) Program() *filter.Program {
	return a.program
}

// Presets returns the preset store, or nil without a backend.
func (a *App) Presets() store.PresetStore {
	if a.config.Backend == nil {
		return nil
	}
	return a.config.Backend.Presets()
}

// Close stops rendering and flushes pending settings. It does not close the
// backend.
func (a *App) Close() {
	a.loop.Stop()
	a.stopWatch()
	<-a.watchDone
	a.unsubscribe()
}
