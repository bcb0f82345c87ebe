package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBand is returned by Band.Validate for out-of-range bounds.
	ErrInvalidBand = errors.New("invalid filter band")
	// ErrInvalidBlend is returned by Blend.Validate for out-of-range weights.
	ErrInvalidBlend = errors.New("invalid blend parameters")
)

// Band selects the colors to keep. Hue bounds are degrees in [0,360) and
// saturation bounds are percent in [0,100].
//
// When HueMin > HueMax the hue band wraps through 0°, so it is the union of
// [HueMin,360) and [0,HueMax]. The saturation band never wraps: SatMin >
// SatMax matches nothing.
type Band struct {
	HueMin float32 `json:"hue_min"`
	HueMax float32 `json:"hue_max"`
	SatMin float32 `json:"sat_min"`
	SatMax float32 `json:"sat_max"`
}

// DefaultBand is the band shown when the page first loads.
func DefaultBand() Band {
	return Band{HueMin: 0, HueMax: 60, SatMin: 50, SatMax: 100}
}

// Wraps reports whether the hue band crosses 0°.
func (b Band) Wraps() bool {
	return b.HueMin > b.HueMax
}

// HueContains reports whether hue h (degrees) lies in the inclusive band.
func (b Band) HueContains(h float32) bool {
	if b.Wraps() {
		return h >= b.HueMin || h <= b.HueMax
	}
	return h >= b.HueMin && h <= b.HueMax
}

// SatContains reports whether saturation s (percent) lies in the band.
func (b Band) SatContains(s float32) bool {
	return s >= b.SatMin && s <= b.SatMax
}

// MidHue returns the hue halfway along the band, following the wrap.
func (b Band) MidHue() float32 {
	if !b.Wraps() {
		return (b.HueMin + b.HueMax) / 2
	}
	return mod((b.HueMin+b.HueMax+360)/2, 360)
}

// Validate checks hue bounds against [0,360] and saturation against [0,100].
func (b Band) Validate() error {
	if b.HueMin < 0 || b.HueMin > 360 || b.HueMax < 0 || b.HueMax > 360 {
		return fmt.Errorf("%w: hue bounds %.1f..%.1f outside 0..360", ErrInvalidBand, b.HueMin, b.HueMax)
	}
	if b.SatMin < 0 || b.SatMin > 100 || b.SatMax < 0 || b.SatMax > 100 {
		return fmt.Errorf("%w: saturation bounds %.1f..%.1f outside 0..100", ErrInvalidBand, b.SatMin, b.SatMax)
	}
	return nil
}

// Blend controls the color adjustment. Desaturate moves out-of-band pixels
// toward gray (0 unchanged, 1 fully gray). Highlight pushes in-band pixels
// away from gray (0 unchanged, 1 doubles the distance).
type Blend struct {
	Desaturate float32 `json:"desaturate"`
	Highlight  float32 `json:"highlight"`
}

// DefaultBlend grays out everything outside the band and leaves matches as-is.
func DefaultBlend() Blend {
	return Blend{Desaturate: 1, Highlight: 0}
}

// BlendFromPercent converts slider values in [0,100] to a Blend.
func BlendFromPercent(desaturate, highlight float32) Blend {
	return Blend{Desaturate: desaturate / 100, Highlight: highlight / 100}
}

// Percent returns the slider values for b.
func (b Blend) Percent() (desaturate, highlight float32) {
	return b.Desaturate * 100, b.Highlight * 100
}

// Validate checks both weights against [0,1].
func (b Blend) Validate() error {
	if b.Desaturate < 0 || b.Desaturate > 1 || b.Highlight < 0 || b.Highlight > 1 {
		return fmt.Errorf("%w: desaturate %.2f highlight %.2f outside 0..1", ErrInvalidBlend, b.Desaturate, b.Highlight)
	}
	return nil
}

// Params is everything one draw needs besides the frame itself.
type Params struct {
	Band  Band  `json:"band"`
	Blend Blend `json:"blend"`
	View  View  `json:"view"`
}

// DefaultParams returns the startup parameters.
func DefaultParams() Params {
	return Params{Band: DefaultBand(), Blend: DefaultBlend(), View: DefaultView()}
}
