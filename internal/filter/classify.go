package filter

// Matches reports whether c falls inside both the hue and saturation bands.
// Achromatic colors have no hue, so only the saturation band applies to them.
func Matches(c RGB, band Band) bool {
	h, s, _ := RGBToHSV(c)
	if !band.SatContains(s) {
		return false
	}
	return s == 0 || band.HueContains(h)
}

// Classify returns the filtered color for one pixel.
//
// In-band pixels move away from their luma by a factor of 1+Highlight and are
// clamped. Out-of-band pixels are interpolated toward their luma by
// Desaturate. The out-of-band result is clamped too, which only matters for
// inputs outside [0,1].
func Classify(c RGB, band Band, blend Blend) RGB {
	gray := Luma(c)

	if Matches(c, band) {
		f := 1 + blend.Highlight
		return RGB{
			R: gray + (c.R-gray)*f,
			G: gray + (c.G-gray)*f,
			B: gray + (c.B-gray)*f,
		}.Clamp()
	}

	d := blend.Desaturate
	k := 1 - d
	return RGB{
		R: c.R*k + gray*d,
		G: c.G*k + gray*d,
		B: c.B*k + gray*d,
	}.Clamp()
}
