package api

import (
	"net/http"

	"github.com/ayusman/colorhunt/internal/render"
)

// RenderController starts, stops and pauses the render loop.
type RenderController interface {
	Start() error
	Stop()
	Pause()
	Resume()
	Status() render.Status
}

// RenderHandler serves GET and POST /api/render.
type RenderHandler struct {
	ctrl RenderController
}

func NewRenderHandler(ctrl RenderController) *RenderHandler {
	return &RenderHandler{ctrl: ctrl}
}

type renderRequest struct {
	Action string `json:"action"`
}

func (h *RenderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	case http.MethodPost:
		h.act(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RenderHandler) act(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	switch req.Action {
	case "start":
		if err := h.ctrl.Start(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	case "stop":
		h.ctrl.Stop()
	case "pause":
		h.ctrl.Pause()
	case "resume":
		h.ctrl.Resume()
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	writeJSON(w, http.StatusOK, h.ctrl.Status())
}
