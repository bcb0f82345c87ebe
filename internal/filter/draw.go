package filter

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// minRowsPerWorker keeps small images on a single goroutine.
const minRowsPerWorker = 16

// Apply runs Classify over every pixel of src and writes the result to dst.
// Both images must have the same bounds size. Alpha is forced opaque.
func Apply(dst, src *image.RGBA, band Band, blend Blend) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	forRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			si := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			di := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
			for x := 0; x < w; x++ {
				s := src.Pix[si : si+4 : si+4]
				out := Classify(RGB8(s[0], s[1], s[2]), band, blend)
				d := dst.Pix[di : di+4 : di+4]
				d[0], d[1], d[2] = out.Bytes()
				d[3] = 0xff
				si += 4
				di += 4
			}
		}
	})
}

// Draw renders frame into dst the way the display shader does: the frame is
// letterboxed into dst, the view's zoom/pan is applied to the sampling
// coordinate, and each sampled color is classified. Letterbox margins and
// samples that fall outside the frame are black.
//
// Sampling is bilinear with clamp-to-edge addressing.
func Draw(dst, frame *image.RGBA, p Params) {
	fs := Size{W: frame.Rect.Dx(), H: frame.Rect.Dy()}
	vs := Size{W: dst.Rect.Dx(), H: dst.Rect.Dy()}
	if vs.Empty() {
		return
	}
	scale, ok := FitViewport(fs, vs)
	if !ok {
		fill(dst, 0, vs.H)
		return
	}
	quad := scale.Rect(vs)
	qw, qh := float32(quad.Dx()), float32(quad.Dy())

	forRows(vs.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			di := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
			for x := 0; x < vs.W; x++ {
				d := dst.Pix[di : di+4 : di+4]
				di += 4

				if !(image.Point{X: x, Y: y}).In(quad) {
					d[0], d[1], d[2], d[3] = 0, 0, 0, 0xff
					continue
				}
				c := Point{
					X: (float32(x-quad.Min.X) + 0.5) / qw,
					Y: (float32(y-quad.Min.Y) + 0.5) / qh,
				}
				sp, in := p.View.Sample(c)
				if !in {
					d[0], d[1], d[2], d[3] = 0, 0, 0, 0xff
					continue
				}
				out := Classify(bilinear(frame, sp), p.Band, p.Blend)
				d[0], d[1], d[2] = out.Bytes()
				d[3] = 0xff
			}
		}
	})
}

// bilinear samples img at normalized coordinate p with texel centers at
// (i+0.5)/size, clamping to the edge texels.
func bilinear(img *image.RGBA, p Point) RGB {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	fx := p.X*float32(w) - 0.5
	fy := p.Y*float32(h) - 0.5
	x0f := float32(math.Floor(float64(fx)))
	y0f := float32(math.Floor(float64(fy)))
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := texel(img, x0, y0)
	c10 := texel(img, x0+1, y0)
	c01 := texel(img, x0, y0+1)
	c11 := texel(img, x0+1, y0+1)

	return RGB{
		R: lerp(lerp(c00.R, c10.R, tx), lerp(c01.R, c11.R, tx), ty),
		G: lerp(lerp(c00.G, c10.G, tx), lerp(c01.G, c11.G, tx), ty),
		B: lerp(lerp(c00.B, c10.B, tx), lerp(c01.B, c11.B, tx), ty),
	}
}

func texel(img *image.RGBA, x, y int) RGB {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	x = min(max(x, 0), w-1)
	y = min(max(y, 0), h-1)
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	return RGB8(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func fill(dst *image.RGBA, y0, y1 int) {
	w := dst.Rect.Dx()
	for y := y0; y < y1; y++ {
		i := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		for x := 0; x < w; x++ {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 0, 0, 0, 0xff
			i += 4
		}
	}
}

// forRows splits [0,h) into contiguous row bands and runs fn on each band in
// its own goroutine, returning when all bands are done.
func forRows(h int, fn func(y0, y1 int)) {
	workers := runtime.GOMAXPROCS(0)
	if n := h / minRowsPerWorker; n < workers {
		workers = n
	}
	if workers <= 1 {
		fn(0, h)
		return
	}

	step := (h + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < h; y0 += step {
		y1 := min(y0+step, h)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
