package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
)

// ViewHandler serves the zoom/pan endpoints under /api/view.
type ViewHandler struct {
	state *control.State
}

func NewViewHandler(state *control.State) *ViewHandler {
	return &ViewHandler{state: state}
}

// ViewResponse is the current view and output size.
type ViewResponse struct {
	Zoom     float32      `json:"zoom"`
	Center   filter.Point `json:"center"`
	Viewport filter.Size  `json:"viewport"`
}

type pinchRequest struct {
	Scale float32 `json:"scale"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
}

type panRequest struct {
	DX float32 `json:"dx"`
	DY float32 `json:"dy"`
}

type viewportRequest struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

// NewViewResponse describes the state's view for clients.
func NewViewResponse(snap control.Snapshot) ViewResponse {
	return ViewResponse{
		Zoom:     snap.Params.View.Zoom,
		Center:   snap.Params.View.Center,
		Viewport: snap.Viewport,
	}
}

// ServeHTTP routes /api/view, /api/view/pinch, /api/view/pan,
// /api/view/reset and /api/view/viewport.
func (h *ViewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/view"), "/")

	if action == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, NewViewResponse(h.state.Snapshot()))
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "pinch":
		var req pinchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Scale <= 0 {
			writeError(w, http.StatusBadRequest, "Scale must be positive")
			return
		}
		h.state.Pinch(req.Scale, filter.Point{X: req.X, Y: req.Y})
	case "pan":
		var req panRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		h.state.Pan(req.DX, req.DY)
	case "reset":
		h.state.ResetZoom()
	case "viewport":
		var req viewportRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		size := control.ViewportFromCSS(req.Width, req.Height, req.DPR)
		if err := h.state.SetViewport(size); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, NewViewResponse(h.state.Snapshot()))
}
