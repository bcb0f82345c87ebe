package filter

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestWGSLSource_EntryPoints(t *testing.T) {
	src := WGSLSource()
	if len(src) < 100 {
		t.Fatalf("shader source suspiciously short: %d bytes", len(src))
	}
	for _, want := range []string{
		"@vertex", "@fragment", "vs_main", "fs_main",
		"texture_2d<f32>", "textureSample", "var<uniform> params",
		"0.299, 0.587, 0.114",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("shader source missing %q", want)
		}
	}
}

func TestCompileProgram(t *testing.T) {
	p, err := CompileProgram()
	if err != nil {
		if !errors.Is(err, ErrUnsupportedBackend) {
			t.Fatalf("CompileProgram() error = %v, want ErrUnsupportedBackend", err)
		}
		// The host falls back to the CPU renderer in this case.
		t.Skipf("GPU program unavailable: %v", err)
	}

	if p.WGSL != WGSLSource() {
		t.Error("program should carry the embedded source")
	}
	words := p.Words()
	if len(words) == 0 || words[0] != spirvMagic {
		t.Errorf("SPIR-V magic = %#x, want %#x", words[0], spirvMagic)
	}
}

func TestUniformBytes_Layout(t *testing.T) {
	p := Params{
		Band:  Band{HueMin: 350, HueMax: 10, SatMin: 20, SatMax: 90},
		Blend: Blend{Desaturate: 0.8, Highlight: 0.3},
		View:  View{Zoom: 2.5, Center: Point{X: 0.25, Y: 0.75}},
	}
	buf := UniformBytes(p, Scale{X: 1, Y: 0.5})
	if len(buf) != UniformSize {
		t.Fatalf("len = %d, want %d", len(buf), UniformSize)
	}

	at := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	want := []float32{350, 10, 20, 90, 0.8, 0.3, 2.5, 0, 0.25, 0.75, 1, 0.5}
	for i, w := range want {
		if got := at(i); got != w {
			t.Errorf("field %d = %f, want %f", i, got, w)
		}
	}
}
