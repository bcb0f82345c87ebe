package api

import (
	"net/http"

	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
)

// FilterHandler serves GET and PUT /api/filter.
type FilterHandler struct {
	state *control.State
}

func NewFilterHandler(state *control.State) *FilterHandler {
	return &FilterHandler{state: state}
}

// FilterResponse is the slider state. Desaturate and Highlight are slider
// percentages.
type FilterResponse struct {
	HueMin     float32          `json:"hue_min"`
	HueMax     float32          `json:"hue_max"`
	SatMin     float32          `json:"sat_min"`
	SatMax     float32          `json:"sat_max"`
	Desaturate float32          `json:"desaturate"`
	Highlight  float32          `json:"highlight"`
	Gradient   control.Gradient `json:"gradient"`
}

// FilterRequest carries a partial update; omitted fields keep their value.
type FilterRequest struct {
	HueMin     *float32 `json:"hue_min"`
	HueMax     *float32 `json:"hue_max"`
	SatMin     *float32 `json:"sat_min"`
	SatMax     *float32 `json:"sat_max"`
	Desaturate *float32 `json:"desaturate"`
	Highlight  *float32 `json:"highlight"`
}

// NewFilterResponse describes band and blend for clients.
func NewFilterResponse(band filter.Band, blend filter.Blend) FilterResponse {
	d, h := blend.Percent()
	return FilterResponse{
		HueMin:     band.HueMin,
		HueMax:     band.HueMax,
		SatMin:     band.SatMin,
		SatMax:     band.SatMax,
		Desaturate: d,
		Highlight:  h,
		Gradient:   control.GradientFor(band),
	}
}

// Apply merges the request into the current band and blend.
func (req FilterRequest) Apply(band filter.Band, blend filter.Blend) (filter.Band, filter.Blend) {
	set := func(dst *float32, v *float32) {
		if v != nil {
			*dst = *v
		}
	}
	set(&band.HueMin, req.HueMin)
	set(&band.HueMax, req.HueMax)
	set(&band.SatMin, req.SatMin)
	set(&band.SatMax, req.SatMax)

	d, h := blend.Percent()
	set(&d, req.Desaturate)
	set(&h, req.Highlight)
	return band, filter.BlendFromPercent(d, h)
}

func (h *FilterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p := h.state.Params()
		writeJSON(w, http.StatusOK, NewFilterResponse(p.Band, p.Blend))
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FilterHandler) update(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := h.state.Params()
	band, blend := req.Apply(p.Band, p.Blend)
	if err := h.state.SetFilter(band, blend); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NewFilterResponse(band, blend))
}
