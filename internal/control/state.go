// Package control owns the live filter parameters: the hue/saturation band
// and blend set by the sliders, the zoom/pan view driven by gestures, and the
// viewport size reported by the page.
//
// The render loop reads a Snapshot once per frame; every mutation is visible
// to the next frame.
package control

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ayusman/colorhunt/internal/filter"
)

// Snapshot is a consistent copy of the state taken for one draw.
type Snapshot struct {
	Params   filter.Params `json:"params"`
	Viewport filter.Size   `json:"viewport"`
}

// State holds the parameters shared between the control surfaces and the
// render loop. It is safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	params   filter.Params
	viewport filter.Size

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

// NewState creates a State with default parameters and the given viewport.
func NewState(viewport filter.Size) *State {
	return &State{
		params:   filter.DefaultParams(),
		viewport: viewport,
		subs:     make(map[chan Snapshot]struct{}),
	}
}

// Snapshot returns the current parameters.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Params: s.params, Viewport: s.viewport}
}

// Params returns the current filter parameters.
func (s *State) Params() filter.Params {
	return s.Snapshot().Params
}

// SetBand replaces the filter band after validating it.
func (s *State) SetBand(b filter.Band) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.update(func(p *filter.Params) { p.Band = b })
	return nil
}

// SetBlend replaces the blend weights after validating them.
func (s *State) SetBlend(b filter.Blend) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.update(func(p *filter.Params) { p.Blend = b })
	return nil
}

// SetSliders sets the blend from slider positions in [0,100].
func (s *State) SetSliders(desaturate, highlight float32) error {
	return s.SetBlend(filter.BlendFromPercent(desaturate, highlight))
}

// SetFilter replaces band and blend together so no frame sees half an update.
func (s *State) SetFilter(band filter.Band, blend filter.Blend) error {
	if err := band.Validate(); err != nil {
		return err
	}
	if err := blend.Validate(); err != nil {
		return err
	}
	s.update(func(p *filter.Params) {
		p.Band = band
		p.Blend = blend
	})
	return nil
}

// Viewport limits. The render buffer is allocated at the viewport size, so
// both the edge and the total pixel count are bounded.
const (
	MaxViewportEdge   = 8192
	MaxViewportPixels = 8192 * 4320
	MaxDPR            = 8
)

// ErrInvalidViewport is returned for empty or oversized viewports.
var ErrInvalidViewport = errors.New("invalid viewport")

// CheckViewport reports whether size can be rendered.
func CheckViewport(size filter.Size) error {
	switch {
	case size.Empty():
		return fmt.Errorf("%w: %dx%d is empty", ErrInvalidViewport, size.W, size.H)
	case size.W > MaxViewportEdge || size.H > MaxViewportEdge:
		return fmt.Errorf("%w: %dx%d exceeds %d pixels per edge", ErrInvalidViewport, size.W, size.H, MaxViewportEdge)
	case size.W*size.H > MaxViewportPixels:
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidViewport, size.W, size.H, MaxViewportPixels)
	}
	return nil
}

// SetViewport records the output size in device pixels. Sizes rejected by
// CheckViewport leave the current viewport in place.
func (s *State) SetViewport(size filter.Size) error {
	if err := CheckViewport(size); err != nil {
		return err
	}
	s.mu.Lock()
	s.viewport = size
	s.mu.Unlock()
	s.notify()
	return nil
}

// ViewportFromCSS converts a CSS pixel size and device pixel ratio into a
// device pixel size. A missing or non-finite ratio counts as 1 and ratios
// above MaxDPR are clamped. Edges past MaxViewportEdge saturate just above
// it so CheckViewport rejects them.
func ViewportFromCSS(width, height int, dpr float64) filter.Size {
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	dpr = math.Min(dpr, MaxDPR)

	edge := func(css int) int {
		v := math.Round(float64(css) * dpr)
		if v > MaxViewportEdge {
			return MaxViewportEdge + 1
		}
		return int(v)
	}
	return filter.Size{W: edge(width), H: edge(height)}
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow receivers only see the most recent value. Call the returned
// function to unsubscribe.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
}

func (s *State) update(fn func(p *filter.Params)) {
	s.mu.Lock()
	fn(&s.params)
	s.mu.Unlock()
	s.notify()
}

func (s *State) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
