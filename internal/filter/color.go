// Package filter implements the Color Hunt color isolation filter: a per-pixel
// hue/saturation band classifier with a desaturate/highlight blend, and the
// letterbox and zoom/pan transform that maps a camera frame onto a viewport.
//
// Everything in this package is a pure function of its inputs. Callers own
// the parameters and pass a fresh Params value on every draw.
package filter

import "math"

// Luma weights for the grayscale reference.
const (
	LumaR = 0.299
	LumaG = 0.587
	LumaB = 0.114
)

// RGB is a color with channels normalized to [0,1].
type RGB struct {
	R, G, B float32
}

// RGB8 builds an RGB from 8-bit channels.
func RGB8(r, g, b uint8) RGB {
	return RGB{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255}
}

// Bytes converts the color back to 8-bit channels, rounding to nearest and
// clamping to [0,255].
func (c RGB) Bytes() (r, g, b uint8) {
	return toByte(c.R), toByte(c.G), toByte(c.B)
}

// Clamp limits every channel to [0,1].
func (c RGB) Clamp() RGB {
	return RGB{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

// Luma returns the perceptual grayscale intensity of c.
func Luma(c RGB) float32 {
	return LumaR*c.R + LumaG*c.G + LumaB*c.B
}

// RGBToHSV converts c to hue in degrees [0,360), saturation in percent
// [0,100] and value in [0,1].
//
// Hue is derived from whichever channel holds the maximum. When the chroma is
// zero the hue is 0 and irrelevant; when the value is zero the saturation is 0.
func RGBToHSV(c RGB) (h, s, v float32) {
	mx := max(c.R, c.G, c.B)
	mn := min(c.R, c.G, c.B)
	d := mx - mn

	if d > 0 {
		switch mx {
		case c.R:
			h = mod((c.G-c.B)/d, 6)
		case c.G:
			h = (c.B-c.R)/d + 2
		default:
			h = (c.R-c.G)/d + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
		// float32 rounding of mod can land exactly on 6.
		if h >= 360 {
			h -= 360
		}
	}

	if mx > 0 {
		s = d / mx * 100
	}

	return h, s, mx
}

// mod is the GLSL mod: x - y*floor(x/y), non-negative for positive y.
func mod(x, y float32) float32 {
	return x - y*float32(math.Floor(float64(x/y)))
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func toByte(x float32) uint8 {
	return uint8(clamp01(x)*255 + 0.5)
}
