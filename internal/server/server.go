// Package server provides the HTTP server for the Color Hunt filter: the
// JSON control API, the rendered MJPEG stream, the websocket control channel
// and the static page shell.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/render"
	"github.com/ayusman/colorhunt/internal/server/api"
	"github.com/ayusman/colorhunt/internal/store"
)

// shellMaxAge lets browsers keep the page shell for offline use.
const shellMaxAge = "public, max-age=86400"

// Config holds the server configuration. Routes whose dependency is nil are
// not registered.
type Config struct {
	StaticDir string
	Presets   store.PresetStore
	State     *control.State
	Frames    *render.Hub
	Render    api.RenderController
	Camera    api.CameraSwitcher
	// Program is the compiled shader; nil when no GPU backend is available.
	Program *filter.Program
	Logger  logrus.FieldLogger
}

// Server represents the HTTP server for the Color Hunt application.
type Server struct {
	config  Config
	log     logrus.FieldLogger
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
	stream  *StreamHandler
	control *ControlHandler

	mu  sync.Mutex
	srv *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	s := &Server{
		config: config,
		log:    config.Logger.WithField("component", "server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = s.logRequests(s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/shader.wgsl", s.handleShaderSource)
	s.mux.HandleFunc("/api/shader.spv", s.handleShaderBinary)

	if s.config.State != nil {
		s.mux.Handle("/api/filter", api.NewFilterHandler(s.config.State))

		viewHandler := api.NewViewHandler(s.config.State)
		s.mux.Handle("/api/view", viewHandler)
		s.mux.Handle("/api/view/", viewHandler)

		s.control = NewControlHandler(s.config.State, s.log)
		s.mux.Handle("/api/control", s.control)
	}

	if s.config.Presets != nil && s.config.State != nil {
		presetHandler := api.NewPresetHandler(s.config.Presets, s.config.State, s.log)
		s.mux.Handle("/api/presets", presetHandler)
		s.mux.Handle("/api/presets/", presetHandler)
	}

	if s.config.Frames != nil {
		s.stream = NewStreamHandler(s.config.Frames)
		s.mux.Handle("/api/stream", s.stream)
		s.mux.Handle("/api/snapshot", NewSnapshotHandler(s.config.Frames))
	}

	if s.config.Render != nil {
		s.mux.Handle("/api/render", api.NewRenderHandler(s.config.Render))
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/camera", api.NewCameraHandler(s.config.Camera))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", cacheShell(fs))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
		"gpu":    s.config.Program != nil,
	}
	if s.config.Frames != nil {
		response["clients"] = s.config.Frames.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleShaderSource serves the WGSL program. The source is embedded, so it
// is available even when compilation failed.
func (s *Server) handleShaderSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", shellMaxAge)
	w.Write([]byte(filter.WGSLSource()))
}

// handleShaderBinary serves the compiled SPIR-V module.
func (s *Server) handleShaderBinary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Program == nil {
		http.Error(w, "Shader backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(s.config.Program.SPIRV)
}

// ListenAndServe starts the HTTP server on the given address. It returns nil
// after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.log.WithField("addr", addr).Info("http server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open streams and websocket clients, then stops the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stream != nil {
		s.stream.Close()
	}
	if s.control != nil {
		s.control.Close()
	}
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// cacheShell marks static responses cacheable for offline use.
func cacheShell(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", shellMaxAge)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging. It keeps
// the Flusher and Hijacker of the wrapped writer so streams and websockets
// work through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(began),
		}).Debug("request")
	})
}
