package capture

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
	"gocv.io/x/gocv"
)

// ToRGBA converts a BGR, BGRA or grayscale Mat into an RGBA image. dst is
// reused when it already has the frame's size; otherwise a new image is
// allocated. A Mat without pixels yields ErrEmptyFrame.
func ToRGBA(mat *gocv.Mat, dst *image.RGBA) (*image.RGBA, error) {
	if mat == nil || mat.Empty() || mat.Cols() == 0 || mat.Rows() == 0 {
		return dst, ErrEmptyFrame
	}

	var code gocv.ColorConversionCode
	switch mat.Channels() {
	case 1:
		code = gocv.ColorGrayToBGRA
	case 3:
		code = gocv.ColorBGRToRGBA
	case 4:
		code = gocv.ColorBGRAToRGBA
	default:
		return dst, fmt.Errorf("unsupported channel count %d", mat.Channels())
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(*mat, &rgba, code)
	if rgba.Empty() {
		return dst, fmt.Errorf("convert frame: %w", ErrEmptyFrame)
	}

	w, h := rgba.Cols(), rgba.Rows()
	if dst == nil || dst.Rect.Dx() != w || dst.Rect.Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	pix := rgba.ToBytes()
	row := w * 4
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+row], pix[y*row:(y+1)*row])
	}
	return dst, nil
}

// ImageToRGBA copies any decoded image into an RGBA image with its origin at
// (0,0), reusing dst when the size matches.
func ImageToRGBA(img image.Image, dst *image.RGBA) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Empty() {
		return dst, ErrEmptyFrame
	}
	if dst == nil || dst.Rect.Dx() != b.Dx() || dst.Rect.Dy() != b.Dy() {
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	return dst, nil
}

// FromRGBA converts an RGBA image into a BGR Mat for JPEG encoding or for
// writing to a video file. The caller owns the returned Mat.
func FromRGBA(img *image.RGBA) (gocv.Mat, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), ErrEmptyFrame
	}

	pix := img.Pix[:min(len(img.Pix), w*h*4)]
	if img.Stride != w*4 || img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y) != 0 {
		packed := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.Copy(packed, image.Point{}, img, img.Rect, xdraw.Src, nil)
		pix = packed.Pix
	}

	rgba, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert image: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}
