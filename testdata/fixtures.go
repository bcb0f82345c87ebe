// Package testdata builds synthetic frames for tests: hue bars, solid
// colors and a moving square, as images, Mats or a video file.
package testdata

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"

	"github.com/ayusman/colorhunt/internal/capture"
)

// HSV returns the opaque color for hue h in degrees and s, v in [0,1].
func HSV(h, s, v float64) color.RGBA {
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Solid returns a width x height image filled with c.
func Solid(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// HueBars returns an image split into equal vertical bars, one per hue, at
// full saturation and value.
func HueBars(width, height int, hues ...float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		c := HSV(hues[x*len(hues)/width], 1, 1)
		for y := 0; y < height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// MovingSquare returns n gray frames with a white square stepping right.
func MovingSquare(n, width, height int) []*image.RGBA {
	side := height / 4
	frames := make([]*image.RGBA, n)
	for i := range frames {
		img := Solid(width, height, color.RGBA{R: 60, G: 60, B: 60, A: 255})
		x0 := (i * side) % (width - side)
		y0 := (height - side) / 2
		for y := y0; y < y0+side; y++ {
			for x := x0; x < x0+side; x++ {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
		frames[i] = img
	}
	return frames
}

// Mats converts images to BGR Mats. The caller closes them.
func Mats(imgs ...*image.RGBA) ([]*gocv.Mat, error) {
	mats := make([]*gocv.Mat, 0, len(imgs))
	for i, img := range imgs {
		m, err := capture.FromRGBA(img)
		if err != nil {
			CloseAll(mats)
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		mats = append(mats, &m)
	}
	return mats, nil
}

// CloseAll closes every Mat.
func CloseAll(mats []*gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}

// WriteVideo encodes frames into an MP4 file at path.
func WriteVideo(path string, fps int, frames []*image.RGBA) error {
	if len(frames) == 0 {
		return errors.New("no frames to write")
	}
	b := frames[0].Rect
	w, err := capture.NewVideoWriter(path, fps, b.Dx(), b.Dy())
	if err != nil {
		return err
	}
	defer w.Close()

	mats, err := Mats(frames...)
	if err != nil {
		return err
	}
	defer CloseAll(mats)

	for i, m := range mats {
		if err := w.Write(*m); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}
