package filter

import "image"

// Zoom limits enforced by the gesture handling that owns a View.
const (
	MinZoom = 1.0
	MaxZoom = 4.0
)

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

// Aspect returns W/H.
func (s Size) Aspect() float32 {
	return float32(s.W) / float32(s.H)
}

// Scale is the fraction of the viewport, per axis, covered by the frame.
type Scale struct {
	X, Y float32
}

// FitViewport computes the letterbox scale of a frame inside a viewport.
// The frame keeps its aspect ratio and fills the viewport along the
// constraining axis. ok is false, and the scale is {1,1}, when either size is
// degenerate.
func FitViewport(frame, viewport Size) (s Scale, ok bool) {
	if frame.Empty() || viewport.Empty() {
		return Scale{X: 1, Y: 1}, false
	}

	vr := frame.Aspect()
	sr := viewport.Aspect()
	if vr > sr {
		return Scale{X: 1, Y: sr / vr}, true
	}
	return Scale{X: vr / sr, Y: 1}, true
}

// Rect returns the pixel rectangle, centered in viewport, that the frame is
// drawn into.
func (s Scale) Rect(viewport Size) image.Rectangle {
	w := int(float32(viewport.W)*s.X + 0.5)
	h := int(float32(viewport.H)*s.Y + 0.5)
	x0 := (viewport.W - w) / 2
	y0 := (viewport.H - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// Point is a normalized coordinate, (0,0) top-left and (1,1) bottom-right.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// InUnit reports whether p lies inside [0,1]², boundaries included.
func (p Point) InUnit() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// View is a crop-and-magnify window into the frame: Zoom times
// magnification around Center. Zoom 1 is the identity.
//
// View does not clamp its fields; the gesture handler owning it keeps Zoom in
// [MinZoom,MaxZoom] and Center in [0,1]².
type View struct {
	Zoom   float32 `json:"zoom"`
	Center Point   `json:"center"`
}

// DefaultView is the untransformed view.
func DefaultView() View {
	return View{Zoom: 1, Center: Point{X: 0.5, Y: 0.5}}
}

// Identity reports whether v leaves coordinates unchanged.
func (v View) Identity() bool {
	return v.Zoom <= 1
}

// Sample maps a display coordinate to the frame coordinate it shows:
// (c-center)/zoom + center. ok is false when the result falls outside the
// frame, in which case the pixel is drawn black.
func (v View) Sample(c Point) (Point, bool) {
	if v.Identity() {
		return c, c.InUnit()
	}
	p := Point{
		X: (c.X-v.Center.X)/v.Zoom + v.Center.X,
		Y: (c.Y-v.Center.Y)/v.Zoom + v.Center.Y,
	}
	return p, p.InUnit()
}

// Project is the inverse of Sample: it maps a frame coordinate to the display
// coordinate where it appears, (p-center)*zoom + center. ok is false when the
// frame point is pushed off screen by the zoom.
func (v View) Project(p Point) (Point, bool) {
	if v.Identity() {
		return p, p.InUnit()
	}
	c := Point{
		X: (p.X-v.Center.X)*v.Zoom + v.Center.X,
		Y: (p.Y-v.Center.Y)*v.Zoom + v.Center.Y,
	}
	return c, c.InUnit()
}
