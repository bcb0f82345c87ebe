package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/ayusman/colorhunt/internal/render"
)

// mjpegBoundary separates parts of the multipart stream.
const mjpegBoundary = "frame"

// StreamHandler serves the rendered output as MJPEG.
type StreamHandler struct {
	frames *render.Hub

	once sync.Once
	done chan struct{}
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames *render.Hub) *StreamHandler {
	return &StreamHandler{frames: frames, done: make(chan struct{})}
}

// ServeHTTP streams rendered frames to the client as they are published. A
// slow client skips frames rather than delaying the others.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush(w)

	frames, unsubscribe := h.frames.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writePart(w, frame.JPEG); err != nil {
				return
			}
			flush(w)
		}
	}
}

// Close ends every open stream.
func (h *StreamHandler) Close() {
	h.once.Do(func() { close(h.done) })
}

// writePart writes one JPEG as a multipart section.
func writePart(w io.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// SnapshotHandler serves the most recent rendered frame as a single JPEG.
type SnapshotHandler struct {
	frames *render.Hub
}

func NewSnapshotHandler(frames *render.Hub) *SnapshotHandler {
	return &SnapshotHandler{frames: frames}
}

func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame := h.frames.Latest()
	if frame.Seq == 0 {
		http.Error(w, "No frame rendered yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.JPEG)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
	w.Write(frame.JPEG)
}
