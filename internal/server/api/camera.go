package api

import "net/http"

// CameraSwitcher restarts capture on another device.
type CameraSwitcher interface {
	CameraDevice() int
	SwitchCamera(device int) error
}

// CameraHandler serves GET and PUT /api/camera.
type CameraHandler struct {
	cams CameraSwitcher
}

func NewCameraHandler(cams CameraSwitcher) *CameraHandler {
	return &CameraHandler{cams: cams}
}

type cameraBody struct {
	Device int `json:"device"`
}

func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, cameraBody{Device: h.cams.CameraDevice()})
	case http.MethodPut:
		var req cameraBody
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Device < 0 {
			writeError(w, http.StatusBadRequest, "Device must not be negative")
			return
		}
		if err := h.cams.SwitchCamera(req.Device); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, cameraBody{Device: h.cams.CameraDevice()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
