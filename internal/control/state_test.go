package control

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/colorhunt/internal/filter"
)

func TestNewState_Defaults(t *testing.T) {
	s := NewState(filter.Size{W: 640, H: 480})
	snap := s.Snapshot()

	if snap.Params != filter.DefaultParams() {
		t.Errorf("params = %+v, want defaults", snap.Params)
	}
	if snap.Viewport != (filter.Size{W: 640, H: 480}) {
		t.Errorf("viewport = %+v", snap.Viewport)
	}
}

func TestState_SetBandValidates(t *testing.T) {
	s := NewState(filter.Size{W: 1, H: 1})

	tests := []struct {
		name    string
		band    filter.Band
		wantErr bool
	}{
		{"valid", filter.Band{HueMin: 100, HueMax: 140, SatMin: 30, SatMax: 100}, false},
		{"wrapped", filter.Band{HueMin: 350, HueMax: 10, SatMin: 0, SatMax: 100}, false},
		{"hue too large", filter.Band{HueMin: 0, HueMax: 400, SatMin: 0, SatMax: 100}, true},
		{"negative sat", filter.Band{HueMin: 0, HueMax: 60, SatMin: -5, SatMax: 100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Params().Band
			err := s.SetBand(tt.band)
			if tt.wantErr {
				if !errors.Is(err, filter.ErrInvalidBand) {
					t.Fatalf("SetBand() error = %v, want ErrInvalidBand", err)
				}
				if got := s.Params().Band; got != before {
					t.Errorf("rejected band was applied: %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetBand() error = %v", err)
			}
			if got := s.Params().Band; got != tt.band {
				t.Errorf("band = %+v, want %+v", got, tt.band)
			}
		})
	}
}

func TestState_SetSliders(t *testing.T) {
	s := NewState(filter.Size{W: 1, H: 1})

	if err := s.SetSliders(40, 25); err != nil {
		t.Fatalf("SetSliders() error = %v", err)
	}
	b := s.Params().Blend
	if !near(b.Desaturate, 0.4) || !near(b.Highlight, 0.25) {
		t.Errorf("blend = %+v, want {0.4 0.25}", b)
	}

	if err := s.SetSliders(150, 0); !errors.Is(err, filter.ErrInvalidBlend) {
		t.Errorf("SetSliders(150) error = %v, want ErrInvalidBlend", err)
	}
}

func TestState_SetFilterIsAtomic(t *testing.T) {
	s := NewState(filter.Size{W: 1, H: 1})
	good := filter.Band{HueMin: 200, HueMax: 250, SatMin: 10, SatMax: 90}

	err := s.SetFilter(good, filter.Blend{Desaturate: 2})
	if !errors.Is(err, filter.ErrInvalidBlend) {
		t.Fatalf("SetFilter() error = %v, want ErrInvalidBlend", err)
	}
	if s.Params().Band == good {
		t.Error("band applied even though blend was rejected")
	}

	if err := s.SetFilter(good, filter.Blend{Desaturate: 0.5, Highlight: 0.5}); err != nil {
		t.Fatalf("SetFilter() error = %v", err)
	}
	if p := s.Params(); p.Band != good || p.Blend.Desaturate != 0.5 {
		t.Errorf("params = %+v", p)
	}
}

func TestState_SetViewportRejectsInvalid(t *testing.T) {
	s := NewState(filter.Size{W: 800, H: 600})
	ch, cancel := s.Subscribe()
	defer cancel()

	for _, size := range []filter.Size{
		{W: 0, H: 600},
		{W: -4, H: 600},
		{W: MaxViewportEdge + 1, H: 600},
		{W: 600, H: MaxViewportEdge + 1},
		{W: MaxViewportEdge, H: MaxViewportEdge},
		ViewportFromCSS(1<<20, 1<<20, 8),
	} {
		if err := s.SetViewport(size); !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("SetViewport(%+v) error = %v, want ErrInvalidViewport", size, err)
		}
	}
	if got := s.Snapshot().Viewport; got != (filter.Size{W: 800, H: 600}) {
		t.Errorf("viewport = %+v after rejected updates", got)
	}
	select {
	case snap := <-ch:
		t.Errorf("rejected viewport notified subscribers: %+v", snap.Viewport)
	default:
	}

	if err := s.SetViewport(filter.Size{W: 1920, H: 1080}); err != nil {
		t.Fatalf("SetViewport() error = %v", err)
	}
	if got := s.Snapshot().Viewport; got != (filter.Size{W: 1920, H: 1080}) {
		t.Errorf("viewport = %+v", got)
	}
}

func TestViewportFromCSS(t *testing.T) {
	tests := []struct {
		w, h int
		dpr  float64
		want filter.Size
	}{
		{400, 300, 1, filter.Size{W: 400, H: 300}},
		{400, 300, 2, filter.Size{W: 800, H: 600}},
		{375, 667, 1.5, filter.Size{W: 563, H: 1001}},
		{400, 300, 0, filter.Size{W: 400, H: 300}},
		{400, 300, math.NaN(), filter.Size{W: 400, H: 300}},
		{400, 300, math.Inf(1), filter.Size{W: 400, H: 300}},
		{400, 300, 1e9, filter.Size{W: 3200, H: 2400}},
		{1 << 40, 300, 1, filter.Size{W: MaxViewportEdge + 1, H: 300}},
	}
	for _, tt := range tests {
		if got := ViewportFromCSS(tt.w, tt.h, tt.dpr); got != tt.want {
			t.Errorf("ViewportFromCSS(%d, %d, %v) = %+v, want %+v", tt.w, tt.h, tt.dpr, got, tt.want)
		}
	}
}

func TestSubscribe_LatestValueWins(t *testing.T) {
	s := NewState(filter.Size{W: 1, H: 1})
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		if err := s.SetSliders(float32(i*10), 0); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case snap := <-ch:
		if !near(snap.Params.Blend.Desaturate, 0.5) {
			t.Errorf("desaturate = %f, want latest 0.5", snap.Params.Blend.Desaturate)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	select {
	case snap := <-ch:
		t.Errorf("unexpected extra snapshot %+v", snap)
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	s := NewState(filter.Size{W: 1, H: 1})
	ch, cancel := s.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	// Updates after cancel must not panic on the closed channel.
	s.ResetZoom()
}

func TestState_ConcurrentUse(t *testing.T) {
	s := NewState(filter.Size{W: 100, H: 100})
	ch, cancel := s.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.Pinch(1.1, filter.Point{X: 0.5, Y: 0.5})
				s.Pan(0.01, -0.01)
				_ = s.SetSliders(float32(j%100), float32(i*10))
				_ = s.Snapshot()
			}
		}(i)
	}
	go func() {
		for range ch {
		}
	}()
	wg.Wait()

	v := s.View()
	if v.Zoom < filter.MinZoom || v.Zoom > filter.MaxZoom || !v.Center.InUnit() {
		t.Errorf("view escaped its limits: %+v", v)
	}
}
