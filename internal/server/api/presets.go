package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/store"
)

// PresetHandler handles HTTP requests for preset resources.
type PresetHandler struct {
	presets store.PresetStore
	state   *control.State
	log     logrus.FieldLogger
}

// NewPresetHandler creates a PresetHandler. Applying a preset writes it to
// state.
func NewPresetHandler(presets store.PresetStore, state *control.State, log logrus.FieldLogger) *PresetHandler {
	return &PresetHandler{presets: presets, state: state, log: loggerOr(log)}
}

// ServeHTTP routes /api/presets, /api/presets/{id} and
// /api/presets/{id}/apply.
func (h *PresetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/presets")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
	case "apply":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.apply(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// presetRequest creates or updates a preset. For create, a missing band or
// blend is taken from the live filter state. For update, omitted fields keep
// their stored value.
type presetRequest struct {
	Name string `json:"name"`
	FilterRequest
}

type presetResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	HueMin     float64 `json:"hue_min"`
	HueMax     float64 `json:"hue_max"`
	SatMin     float64 `json:"sat_min"`
	SatMax     float64 `json:"sat_max"`
	Desaturate float64 `json:"desaturate"`
	Highlight  float64 `json:"highlight"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type listPresetsResponse struct {
	Presets []presetResponse `json:"presets"`
}

func toResponse(p *store.Preset) presetResponse {
	return presetResponse{
		ID:         p.ID,
		Name:       p.Name,
		HueMin:     p.HueMin,
		HueMax:     p.HueMax,
		SatMin:     p.SatMin,
		SatMax:     p.SatMax,
		Desaturate: p.Desaturate,
		Highlight:  p.Highlight,
		CreatedAt:  p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeStoreError maps store errors onto HTTP statuses.
func (h *PresetHandler) writeStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Preset not found")
	case errors.Is(err, store.ErrDuplicateName):
		writeError(w, http.StatusConflict, "Preset name already exists")
	case errors.Is(err, store.ErrInvalidPreset),
		errors.Is(err, filter.ErrInvalidBand),
		errors.Is(err, filter.ErrInvalidBlend):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).WithField("op", op).Error("preset store")
		writeError(w, http.StatusInternalServerError, "Failed to "+op+" preset")
	}
}

// list handles GET /api/presets.
func (h *PresetHandler) list(w http.ResponseWriter, r *http.Request) {
	presets, err := h.presets.List(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "list")
		return
	}

	response := listPresetsResponse{
		Presets: make([]presetResponse, 0, len(presets)),
	}
	for _, p := range presets {
		response.Presets = append(response.Presets, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/presets/{id}.
func (h *PresetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.presets.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "get")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

// create handles POST /api/presets.
func (h *PresetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	live := h.state.Params()
	band, blend := req.FilterRequest.Apply(live.Band, live.Blend)
	p := store.NewPreset(uuid.New().String(), req.Name, band, blend)

	if err := h.presets.Create(r.Context(), p); err != nil {
		h.writeStoreError(w, err, "create")
		return
	}

	h.log.WithFields(logrus.Fields{"id": p.ID, "name": p.Name}).Info("preset created")
	writeJSON(w, http.StatusCreated, toResponse(p))
}

// update handles PUT /api/presets/{id}.
func (h *PresetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.presets.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "get")
		return
	}

	var req presetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		p.Name = name
	}
	band, blend := req.FilterRequest.Apply(p.Band(), p.Blend())
	updated := store.NewPreset(p.ID, p.Name, band, blend)
	updated.CreatedAt = p.CreatedAt

	if err := h.presets.Update(r.Context(), updated); err != nil {
		h.writeStoreError(w, err, "update")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(updated))
}

// delete handles DELETE /api/presets/{id}.
func (h *PresetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.presets.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "delete")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// apply handles POST /api/presets/{id}/apply and returns the new filter.
func (h *PresetHandler) apply(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.presets.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "get")
		return
	}

	band, blend := p.Band(), p.Blend()
	if err := h.state.SetFilter(band, blend); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.WithField("name", p.Name).Debug("preset applied")
	writeJSON(w, http.StatusOK, NewFilterResponse(band, blend))
}
