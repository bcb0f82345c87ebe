package control

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ayusman/colorhunt/internal/filter"
)

// Gradient describes the saturation slider background: the band's middle hue
// running from gray to full saturation at 50% lightness.
type Gradient struct {
	Hue  float32 `json:"hue"`
	From string  `json:"from"`
	To   string  `json:"to"`
}

// GradientFor returns the saturation slider gradient for band.
func GradientFor(band filter.Band) Gradient {
	h := float64(band.MidHue())
	return Gradient{
		Hue:  float32(h),
		From: colorful.Hsl(h, 0, 0.5).Hex(),
		To:   colorful.Hsl(h, 1, 0.5).Hex(),
	}
}
