package control

import "github.com/ayusman/colorhunt/internal/filter"

// View returns the current zoom/pan view.
func (s *State) View() filter.View {
	return s.Params().View
}

// Pinch scales the zoom by scale around focus, a display coordinate in
// [0,1]². The frame point under the focus stays put unless clamping moves it.
// Zoom is clamped to [MinZoom,MaxZoom] and the center to [0,1]².
func (s *State) Pinch(scale float32, focus filter.Point) filter.View {
	if scale <= 0 {
		return s.View()
	}
	focus = clampPoint(focus)

	var v filter.View
	s.update(func(p *filter.Params) {
		old := p.View
		anchor, _ := old.Sample(focus)

		zoom := clampZoom(old.Zoom * scale)
		if zoom <= filter.MinZoom {
			p.View = filter.DefaultView()
			v = p.View
			return
		}

		// Solve (focus-c)/zoom + c = anchor for c.
		k := 1 - 1/zoom
		p.View = clampView(filter.View{
			Zoom: zoom,
			Center: filter.Point{
				X: (anchor.X - focus.X/zoom) / k,
				Y: (anchor.Y - focus.Y/zoom) / k,
			},
		})
		v = p.View
	})
	return v
}

// Pan drags the view by (dx, dy) in display units, so the content follows the
// pointer. Panning is a no-op at zoom 1.
func (s *State) Pan(dx, dy float32) filter.View {
	var v filter.View
	s.update(func(p *filter.Params) {
		old := p.View
		if old.Identity() {
			v = old
			return
		}
		k := old.Zoom - 1
		p.View = clampView(filter.View{
			Zoom: old.Zoom,
			Center: filter.Point{
				X: old.Center.X - dx/k,
				Y: old.Center.Y - dy/k,
			},
		})
		v = p.View
	})
	return v
}

// SetView replaces the view, clamping zoom and center.
func (s *State) SetView(view filter.View) filter.View {
	view = clampView(view)
	s.update(func(p *filter.Params) { p.View = view })
	return view
}

// ResetZoom restores the untransformed view. Used for double-tap and camera
// restarts.
func (s *State) ResetZoom() filter.View {
	return s.SetView(filter.DefaultView())
}

func clampView(v filter.View) filter.View {
	v.Zoom = clampZoom(v.Zoom)
	v.Center = clampPoint(v.Center)
	return v
}

func clampZoom(z float32) float32 {
	// NaN compares false everywhere and falls through to MinZoom.
	if z >= filter.MaxZoom {
		return filter.MaxZoom
	}
	if z >= filter.MinZoom {
		return z
	}
	return filter.MinZoom
}

func clampPoint(p filter.Point) filter.Point {
	return filter.Point{X: clampUnit(p.X), Y: clampUnit(p.Y)}
}

func clampUnit(x float32) float32 {
	if x >= 1 {
		return 1
	}
	if x >= 0 {
		return x
	}
	return 0
}
