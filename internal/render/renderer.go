// Package render runs the per-frame pipeline: read a camera frame, snapshot
// the control state, draw the filtered output and publish it as JPEG.
package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/colorhunt/internal/capture"
	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
)

// DefaultQuality is the JPEG quality used for published frames.
const DefaultQuality = 85

// Renderer draws frames into an output image sized to the viewport. It keeps
// its buffers between calls and is not safe for concurrent use.
type Renderer struct {
	quality int
	frame   *image.RGBA
	out     *image.RGBA
}

// NewRenderer returns a Renderer encoding at the given JPEG quality. Values
// outside 1..100 select DefaultQuality.
func NewRenderer(quality int) *Renderer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Renderer{quality: quality}
}

// Draw converts mat and renders it with the snapshot's parameters. The
// returned image is owned by the Renderer and is overwritten by the next
// call.
func (r *Renderer) Draw(mat *gocv.Mat, snap control.Snapshot) (*image.RGBA, error) {
	frame, err := capture.ToRGBA(mat, r.frame)
	if err != nil {
		return nil, err
	}
	r.frame = frame
	return r.DrawImage(frame, snap), nil
}

// DrawImage renders an already converted frame. An empty viewport renders at
// the frame's own size.
func (r *Renderer) DrawImage(frame *image.RGBA, snap control.Snapshot) *image.RGBA {
	size := snap.Viewport
	if size.Empty() {
		size = filter.Size{W: frame.Rect.Dx(), H: frame.Rect.Dy()}
	}
	if r.out == nil || r.out.Rect.Dx() != size.W || r.out.Rect.Dy() != size.H {
		r.out = image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	}
	filter.Draw(r.out, frame, snap.Params)
	return r.out
}

// Encode compresses img as JPEG. The returned bytes are a copy owned by the
// caller.
func (r *Renderer) Encode(img *image.RGBA) ([]byte, error) {
	mat, err := capture.FromRGBA(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, r.quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
